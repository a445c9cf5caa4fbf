package storefront

import (
	"net/http"

	"github.com/dukerupert/khetikara/internal/cart"
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/handler"
	"github.com/dukerupert/khetikara/internal/pricing"
	"github.com/dukerupert/khetikara/internal/service"
)

// CartHandler handles the catalogue cart routes.
type CartHandler struct {
	store *service.Storefront
}

// NewCartHandler creates a new cart handler
func NewCartHandler(store *service.Storefront) *CartHandler {
	return &CartHandler{store: store}
}

type itemResponse struct {
	Item    cart.Item       `json:"item"`
	Summary pricing.Summary `json:"summary"`
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	handler.WriteJSON(w, http.StatusOK, h.store.Summary())
}

// UpdateQuantity handles POST /cart/items/{id}/quantity
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta *int `json:"delta"`
	}
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Delta == nil {
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("cart.update_quantity", "delta", "Delta is required"))
		return
	}

	item, err := h.store.UpdateQuantity(r.PathValue("id"), *req.Delta)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, itemResponse{Item: item, Summary: h.store.Summary()})
}

// SetGrade handles POST /cart/items/{id}/grade
func (h *CartHandler) SetGrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Grade string `json:"grade"`
	}
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Grade == "" {
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("cart.set_grade", "grade", "Grade is required"))
		return
	}

	item, err := h.store.SetGrade(r.PathValue("id"), req.Grade)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, itemResponse{Item: item, Summary: h.store.Summary()})
}

// Clear handles POST /cart/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearCart(); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, h.store.Summary())
}
