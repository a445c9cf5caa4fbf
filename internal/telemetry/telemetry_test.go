package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics(reg, "test")

	m.CartAction("UPDATE_QUANTITY")
	m.CartAction("UPDATE_QUANTITY")
	m.OrderPlaced(OutcomeFallback, 251, 2)
	m.OrderPlaced(OutcomeRejected, 0, 0)
	m.CatalogueFallback("products")
	m.ObserveBackend("orders", 30*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CartActions.WithLabelValues("UPDATE_QUANTITY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersPlaced.WithLabelValues(OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersPlaced.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogueFallbacks.WithLabelValues("products")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.BackendLatency))
}

func TestBusinessMetrics_NilIsNoop(t *testing.T) {
	var m *BusinessMetrics

	assert.NotPanics(t, func() {
		m.CartAction("CLEAR_CART")
		m.BasketAction("add", "ok")
		m.ValidationFailure("phone")
		m.OrderPlaced(OutcomeSubmitted, 10, 1)
		m.OrderReconciled(true)
		m.CatalogueFallback("metrics")
		m.ObserveBackend("products", time.Second, nil)
	})
}

func TestSentryDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cleanup, err := InitSentry(SentryConfig{Enabled: false}, logger)
	require.NoError(t, err)
	defer cleanup()

	assert.False(t, IsEnabled())
	assert.NotPanics(t, func() {
		CaptureError(errors.New("x"), nil)
		CaptureWarning(context.Background(), errors.New("x"), nil, nil)
		RecoverPanic(context.Background(), "boom")
	})
}

func TestSentryEnabledWithoutDSN(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := InitSentry(SentryConfig{Enabled: true}, logger)
	require.NoError(t, err)

	assert.False(t, IsEnabled())
}

func TestHTTPTransport_PassesThroughWhenDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &HTTPTransport{}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
