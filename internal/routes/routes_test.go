package routes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/khetikara/internal/cart"
	"github.com/dukerupert/khetikara/internal/catalogue"
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/handler/storefront"
	"github.com/dukerupert/khetikara/internal/middleware"
	"github.com/dukerupert/khetikara/internal/order"
	"github.com/dukerupert/khetikara/internal/router"
	"github.com/dukerupert/khetikara/internal/service"
	"github.com/dukerupert/khetikara/internal/store"
	"github.com/stretchr/testify/assert"
)

type offlineSource struct{}

func (offlineSource) ListProducts(context.Context) ([]domain.Product, error) {
	return nil, errors.New("backend offline")
}

func (offlineSource) MarketMetrics(context.Context) ([]domain.MarketMetric, error) {
	return nil, errors.New("backend offline")
}

func newRouter(t *testing.T, limiter *middleware.RateLimiter) *router.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := service.NewStorefront(service.Config{},
		catalogue.NewService(offlineSource{}, logger, nil),
		order.NewSubmitter(nil, order.NewStoreLedger(store.NewMemoryStore()), logger),
		cart.NewKeyedCart(store.NewMemoryStore(), cart.DefaultSlot, nil),
		logger, nil,
	)
	s.LoadCatalogue(context.Background())

	r := router.New()
	RegisterStorefrontRoutes(r, StorefrontDeps{
		CatalogueHandler: storefront.NewCatalogueHandler(s),
		CartHandler:      storefront.NewCartHandler(s),
		RecipientHandler: storefront.NewRecipientHandler(s),
		OrderHandler:     storefront.NewOrderHandler(s),
		BasketHandler:    storefront.NewBasketHandler(s),
		OrderLimiter:     limiter,
	})
	RegisterOpsRoutes(r, OpsDeps{
		HealthHandler: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# metrics"))
		}),
	})
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterStorefrontRoutes(t *testing.T) {
	r := newRouter(t, nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/catalogue", "", http.StatusOK},
		{http.MethodPost, "/catalogue/reload", "", http.StatusOK},
		{http.MethodGet, "/market-metrics", "", http.StatusOK},
		{http.MethodGet, "/cart", "", http.StatusOK},
		{http.MethodPost, "/cart/items/item-1/quantity", `{"delta":1}`, http.StatusOK},
		{http.MethodPost, "/cart/items/item-1/grade", `{"grade":"A3"}`, http.StatusOK},
		{http.MethodGet, "/recipients", "", http.StatusOK},
		{http.MethodPost, "/recipients", "", http.StatusCreated},
		{http.MethodPost, "/recipients/validate", "", http.StatusOK},
		{http.MethodPatch, "/recipients/missing", `{"field":"name","value":"x"}`, http.StatusNotFound},
		{http.MethodDelete, "/recipients/missing", "", http.StatusNotFound},
		{http.MethodGet, "/language", "", http.StatusOK},
		{http.MethodPut, "/language", `{"language":"Hindi"}`, http.StatusOK},
		{http.MethodPost, "/orders", "", http.StatusBadRequest},
		{http.MethodGet, "/orders/confirmation", "", http.StatusNotFound},
		{http.MethodDelete, "/orders/confirmation", "", http.StatusNoContent},
		{http.MethodPost, "/basket/lines", `{"id":"item-2"}`, http.StatusOK},
		{http.MethodPost, "/basket/lines/item-2/A1", `{"quantity":4}`, http.StatusOK},
		{http.MethodDelete, "/basket/lines/item-2/A1", "", http.StatusOK},
		{http.MethodGet, "/basket", "", http.StatusOK},
		{http.MethodDelete, "/basket", "", http.StatusOK},
		{http.MethodPost, "/cart/clear", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRegisterStorefrontRoutes_MethodNotAllowed(t *testing.T) {
	r := newRouter(t, nil)

	rec := serve(r, http.MethodPut, "/cart", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRegisterStorefrontRoutes_OrderRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	defer limiter.Stop()
	r := newRouter(t, limiter)

	first := serve(r, http.MethodPost, "/orders", "")
	second := serve(r, http.MethodPost, "/orders", "")
	other := serve(r, http.MethodGet, "/orders/confirmation", "")

	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNotFound, other.Code, "only placement is limited")
}
