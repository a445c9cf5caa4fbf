package routes

import (
	"net/http"

	"github.com/dukerupert/khetikara/internal/router"
)

// RegisterOpsRoutes registers health and metrics routes.
// These routes are polled by infrastructure and carry no storefront state.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.HealthHandler)
	if deps.MetricsHandler != nil {
		r.Handle(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
}
