package storefront

import (
	"net/http"

	"github.com/dukerupert/khetikara/internal/cart"
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/handler"
	"github.com/dukerupert/khetikara/internal/service"
)

// BasketHandler handles the persisted (id, grade) basket.
type BasketHandler struct {
	store *service.Storefront
}

// NewBasketHandler creates a new basket handler
func NewBasketHandler(store *service.Storefront) *BasketHandler {
	return &BasketHandler{store: store}
}

type basketResponse struct {
	Lines []cart.Line `json:"lines"`
	Total int64       `json:"total"`
	Count int         `json:"count"`
}

// View handles GET /basket
func (h *BasketHandler) View(w http.ResponseWriter, r *http.Request) {
	if h.store.Basket() == nil {
		handler.ErrorResponse(w, r, service.ErrBasketNotConfigured)
		return
	}
	h.respond(w, http.StatusOK)
}

// Add handles POST /basket/lines
func (h *BasketHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Grade    string `json:"grade"`
		Quantity int    `json:"quantity"`
	}
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.ID == "" {
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("basket.add", "id", "Product id is required"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.store.BasketAdd(r.Context(), req.ID, req.Grade, req.Quantity); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK)
}

// Update handles POST /basket/lines/{id}/{grade}
func (h *BasketHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Quantity == nil {
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("basket.update", "quantity", "Quantity is required"))
		return
	}

	if err := h.store.BasketUpdate(r.Context(), r.PathValue("id"), r.PathValue("grade"), *req.Quantity); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK)
}

// Remove handles DELETE /basket/lines/{id}/{grade}
func (h *BasketHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.BasketRemove(r.Context(), r.PathValue("id"), r.PathValue("grade")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK)
}

// Clear handles DELETE /basket
func (h *BasketHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.BasketClear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK)
}

func (h *BasketHandler) respond(w http.ResponseWriter, status int) {
	b := h.store.Basket()
	handler.WriteJSON(w, status, basketResponse{Lines: b.Lines(), Total: b.Total(), Count: b.Count()})
}

type basketFailure struct {
	basketResponse
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// fail reports err. A failed save still changed the basket in memory, so
// that response carries the current lines alongside the error.
func (h *BasketHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	b := h.store.Basket()
	if b == nil || !domain.IsCode(err, domain.EUNAVAILABLE) {
		handler.ErrorResponse(w, r, err)
		return
	}

	resp := basketFailure{basketResponse: basketResponse{Lines: b.Lines(), Total: b.Total(), Count: b.Count()}}
	resp.Error.Code = domain.EUNAVAILABLE
	resp.Error.Message = domain.ErrorMessage(err)
	handler.WriteJSON(w, http.StatusServiceUnavailable, resp)
}
