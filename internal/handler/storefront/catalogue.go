// Package storefront holds the JSON handlers a storefront UI calls.
package storefront

import (
	"net/http"

	"github.com/dukerupert/khetikara/internal/cart"
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/handler"
	"github.com/dukerupert/khetikara/internal/service"
)

// CatalogueHandler serves the product list and market metrics.
type CatalogueHandler struct {
	store *service.Storefront
}

// NewCatalogueHandler creates a new catalogue handler
func NewCatalogueHandler(store *service.Storefront) *CatalogueHandler {
	return &CatalogueHandler{store: store}
}

type catalogueResponse struct {
	Items    []cart.Item `json:"items"`
	Fallback *bool       `json:"fallback,omitempty"`
}

// List handles GET /catalogue?q=
func (h *CatalogueHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.store.Items(r.URL.Query().Get("q"))
	handler.WriteJSON(w, http.StatusOK, catalogueResponse{Items: items})
}

// Reload handles POST /catalogue/reload
func (h *CatalogueHandler) Reload(w http.ResponseWriter, r *http.Request) {
	fallback := h.store.LoadCatalogue(r.Context())
	handler.WriteJSON(w, http.StatusOK, catalogueResponse{
		Items:    h.store.Items(""),
		Fallback: &fallback,
	})
}

// MarketMetrics handles GET /market-metrics
func (h *CatalogueHandler) MarketMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, fallback := h.store.MarketMetrics(r.Context())
	handler.WriteJSON(w, http.StatusOK, struct {
		Metrics  []domain.MarketMetric `json:"metrics"`
		Fallback bool                  `json:"fallback"`
	}{metrics, fallback})
}
