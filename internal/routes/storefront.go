package routes

import (
	"github.com/dukerupert/khetikara/internal/router"
)

// RegisterStorefrontRoutes registers all customer-facing storefront routes.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Catalogue
	r.Get("/catalogue", deps.CatalogueHandler.List)
	r.Post("/catalogue/reload", deps.CatalogueHandler.Reload)
	r.Get("/market-metrics", deps.CatalogueHandler.MarketMetrics)

	// Cart
	r.Get("/cart", deps.CartHandler.View)
	r.Post("/cart/items/{id}/quantity", deps.CartHandler.UpdateQuantity)
	r.Post("/cart/items/{id}/grade", deps.CartHandler.SetGrade)
	r.Post("/cart/clear", deps.CartHandler.Clear)

	// Recipients
	r.Get("/recipients", deps.RecipientHandler.List)
	r.Post("/recipients", deps.RecipientHandler.Add)
	r.Post("/recipients/validate", deps.RecipientHandler.Validate)
	r.Patch("/recipients/{id}", deps.RecipientHandler.Update)
	r.Delete("/recipients/{id}", deps.RecipientHandler.Remove)

	// Language sent with the order
	r.Get("/language", deps.OrderHandler.Language)
	r.Put("/language", deps.OrderHandler.SetLanguage)

	// Orders (placement is rate limited separately)
	orders := r
	if deps.OrderLimiter != nil {
		orders = r.Group(deps.OrderLimiter.Middleware)
	}
	orders.Post("/orders", deps.OrderHandler.Place)
	r.Get("/orders/confirmation", deps.OrderHandler.Confirmation)
	r.Delete("/orders/confirmation", deps.OrderHandler.DismissConfirmation)

	// Basket
	r.Get("/basket", deps.BasketHandler.View)
	r.Delete("/basket", deps.BasketHandler.Clear)
	r.Post("/basket/lines", deps.BasketHandler.Add)
	r.Post("/basket/lines/{id}/{grade}", deps.BasketHandler.Update)
	r.Delete("/basket/lines/{id}/{grade}", deps.BasketHandler.Remove)
}
