package storefront

import (
	"net/http"

	"github.com/dukerupert/khetikara/internal/handler"
	"github.com/dukerupert/khetikara/internal/service"
)

// OrderHandler handles order placement, confirmation and the language
// preference sent with the order.
type OrderHandler struct {
	store *service.Storefront
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(store *service.Storefront) *OrderHandler {
	return &OrderHandler{store: store}
}

// Place handles POST /orders.
//
// Response codes:
//   - 201: order accepted; fallback=true means the number was issued locally
//   - 400: recipients invalid (fields keyed recipients.N.field) or cart empty
//   - 409: another order is being placed
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	conf, err := h.store.PlaceOrder(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, conf)
}

// Confirmation handles GET /orders/confirmation
func (h *OrderHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	conf, err := h.store.Confirmation()
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, conf)
}

// DismissConfirmation handles DELETE /orders/confirmation
func (h *OrderHandler) DismissConfirmation(w http.ResponseWriter, r *http.Request) {
	h.store.DismissConfirmation()
	w.WriteHeader(http.StatusNoContent)
}

type languageBody struct {
	Language string `json:"language"`
}

// Language handles GET /language
func (h *OrderHandler) Language(w http.ResponseWriter, r *http.Request) {
	handler.WriteJSON(w, http.StatusOK, languageBody{Language: h.store.Language()})
}

// SetLanguage handles PUT /language
func (h *OrderHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageBody
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.store.SetLanguage(req.Language); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, languageBody{Language: h.store.Language()})
}
