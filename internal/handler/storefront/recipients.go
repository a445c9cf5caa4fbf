package storefront

import (
	"net/http"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/handler"
	"github.com/dukerupert/khetikara/internal/roster"
	"github.com/dukerupert/khetikara/internal/service"
)

// RecipientHandler handles the delivery roster routes.
type RecipientHandler struct {
	store *service.Storefront
}

// NewRecipientHandler creates a new recipient handler
func NewRecipientHandler(store *service.Storefront) *RecipientHandler {
	return &RecipientHandler{store: store}
}

type recipientsResponse struct {
	Recipients []roster.Recipient `json:"recipients"`
	Valid      *bool              `json:"valid,omitempty"`
}

// List handles GET /recipients
func (h *RecipientHandler) List(w http.ResponseWriter, r *http.Request) {
	handler.WriteJSON(w, http.StatusOK, recipientsResponse{Recipients: h.store.Recipients()})
}

// Add handles POST /recipients
func (h *RecipientHandler) Add(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.AddRecipient()
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, rec)
}

// Update handles PATCH /recipients/{id}
func (h *RecipientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	field, ok := roster.ParseField(req.Field)
	if !ok {
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("recipient.update", "field", "Unknown field"))
		return
	}

	rec, err := h.store.UpdateRecipient(r.PathValue("id"), field, req.Value)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, rec)
}

// Remove handles DELETE /recipients/{id}
func (h *RecipientHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveRecipient(r.PathValue("id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate handles POST /recipients/validate. Invalid recipients are not an
// error here: the response carries valid=false and the per-field messages.
func (h *RecipientHandler) Validate(w http.ResponseWriter, r *http.Request) {
	valid, recs := h.store.ValidateRecipients()
	handler.WriteJSON(w, http.StatusOK, recipientsResponse{Recipients: recs, Valid: &valid})
}
