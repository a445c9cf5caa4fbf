package routes

import (
	"net/http"

	"github.com/dukerupert/khetikara/internal/handler/storefront"
	"github.com/dukerupert/khetikara/internal/middleware"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	// Catalogue (list, reload, market metrics)
	CatalogueHandler *storefront.CatalogueHandler

	// Cart (quantity, grade, clear)
	CartHandler *storefront.CartHandler

	// Delivery roster
	RecipientHandler *storefront.RecipientHandler

	// Order placement, confirmation and language
	OrderHandler *storefront.OrderHandler

	// Persisted (id, grade) basket
	BasketHandler *storefront.BasketHandler

	// OrderLimiter throttles order placement per client. Optional.
	OrderLimiter *middleware.RateLimiter
}

// OpsDeps contains dependencies for operational routes
type OpsDeps struct {
	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler
}
