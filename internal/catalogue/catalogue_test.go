package catalogue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukerupert/khetikara/internal/catalogue"
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	products []domain.Product
	metrics  []domain.MarketMetric
	err      error
}

func (f *fakeSource) ListProducts(context.Context) ([]domain.Product, error) {
	return f.products, f.err
}

func (f *fakeSource) MarketMetrics(context.Context) ([]domain.MarketMetric, error) {
	return f.metrics, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProducts_FromSource(t *testing.T) {
	src := &fakeSource{products: []domain.Product{{ID: "p1", Name: "Ginger"}}}
	svc := catalogue.NewService(src, discardLogger(), nil)

	products, fallback := svc.Products(context.Background())

	assert.False(t, fallback)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
}

func TestProducts_FallsBackToDefaults(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewBusinessMetrics(reg, "test")
	svc := catalogue.NewService(&fakeSource{err: errors.New("connection refused")}, discardLogger(), metrics)

	products, fallback := svc.Products(context.Background())

	assert.True(t, fallback)
	require.Len(t, products, 2)
	assert.Equal(t, "Desi Tomatoes", products[0].Name)
	assert.Equal(t, "A1", products[0].DefaultGrade())
	assert.Equal(t, 1, products[1].MinOrderQty)
	assert.Equal(t, 100, products[1].MaxOrderQty)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogueFallbacks.WithLabelValues("products")))
}

func TestMetrics_FallsBackToDefaults(t *testing.T) {
	svc := catalogue.NewService(&fakeSource{err: errors.New("timeout")}, discardLogger(), nil)

	metrics, fallback := svc.Metrics(context.Background())

	assert.True(t, fallback)
	require.Len(t, metrics, 2)
	assert.Equal(t, "market_arrival_volume", metrics[0].Type)
	assert.True(t, metrics[0].Value.Equal(decimal.RequireFromString("2.82")))
	assert.True(t, metrics[1].Value.Equal(decimal.RequireFromString("-0.4")))
}

func TestDefaultProducts_AreFreshCopies(t *testing.T) {
	a := catalogue.DefaultProducts()
	a[0].Grades[0].Label = "changed"

	b := catalogue.DefaultProducts()
	assert.Equal(t, "A1 - Premium Grade", b[0].Grades[0].Label)
}
