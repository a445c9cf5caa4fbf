package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Order outcomes used as label values.
const (
	OutcomeSubmitted = "submitted"
	OutcomeFallback  = "fallback"
	OutcomeRejected  = "rejected"
)

// BusinessMetrics holds Prometheus metrics for storefront behaviour.
// A nil *BusinessMetrics is valid and records nothing.
type BusinessMetrics struct {
	// Cart
	CartActions   *prometheus.CounterVec
	BasketActions *prometheus.CounterVec
	CartValue     prometheus.Histogram

	// Recipients
	ValidationFailures *prometheus.CounterVec

	// Orders
	OrdersPlaced    *prometheus.CounterVec
	OrderValue      *prometheus.HistogramVec
	OrderLineCount  prometheus.Histogram
	OrdersRecovered *prometheus.CounterVec

	// Catalogue
	CatalogueFallbacks *prometheus.CounterVec

	// External API performance
	BackendLatency *prometheus.HistogramVec
}

// NewBusinessMetrics creates all business metrics and registers them on reg.
func NewBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "khetikara"
	}

	subsystem := "business"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		// =======================================================================
		// Cart
		// =======================================================================
		CartActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_actions_total",
				Help:      "Total cart state machine actions applied",
			},
			[]string{"action"}, // UPDATE_QUANTITY, SET_GRADE, CLEAR_CART, INITIALIZE
		),
		BasketActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "basket_actions_total",
				Help:      "Total keyed basket mutations by result",
			},
			[]string{"action", "result"}, // result: ok, persist_failed, rejected
		),
		CartValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_value_rupees",
				Help:      "Cart total at order time in rupees",
				Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
		),

		// =======================================================================
		// Recipients
		// =======================================================================
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "recipient_validation_failures_total",
				Help:      "Recipient field validation failures",
			},
			[]string{"field"},
		),

		// =======================================================================
		// Orders
		// =======================================================================
		OrdersPlaced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_placed_total",
				Help:      "Total order placements by outcome",
			},
			[]string{"outcome"}, // submitted, fallback, rejected
		),
		OrderValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_rupees",
				Help:      "Order total distribution in rupees",
				Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"outcome"},
		),
		OrderLineCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_line_count",
				Help:      "Number of priced lines per order",
				Buckets:   []float64{1, 2, 3, 5, 10, 15, 20},
			},
		),
		OrdersRecovered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fallback_orders_reconciled_total",
				Help:      "Fallback orders replayed to the order service by result",
			},
			[]string{"result"}, // ok, error
		),

		// =======================================================================
		// Catalogue
		// =======================================================================
		CatalogueFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "catalogue_fallbacks_total",
				Help:      "Times the built-in default data was served instead of backend data",
			},
			[]string{"source"}, // products, metrics
		),

		// =======================================================================
		// External API performance
		// =======================================================================
		BackendLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "backend_request_duration_seconds",
				Help:      "Latency of backend API requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint", "result"}, // result: ok, error
		),
	}
}

// CartAction counts an applied cart action.
func (m *BusinessMetrics) CartAction(action string) {
	if m == nil {
		return
	}
	m.CartActions.WithLabelValues(action).Inc()
}

// BasketAction counts a keyed basket mutation.
func (m *BusinessMetrics) BasketAction(action, result string) {
	if m == nil {
		return
	}
	m.BasketActions.WithLabelValues(action, result).Inc()
}

// ValidationFailure counts one failing recipient field.
func (m *BusinessMetrics) ValidationFailure(field string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(field).Inc()
}

// OrderPlaced records an order outcome with its total and line count.
func (m *BusinessMetrics) OrderPlaced(outcome string, total int64, lines int) {
	if m == nil {
		return
	}
	m.OrdersPlaced.WithLabelValues(outcome).Inc()
	if outcome == OutcomeRejected {
		return
	}
	m.OrderValue.WithLabelValues(outcome).Observe(float64(total))
	m.CartValue.Observe(float64(total))
	m.OrderLineCount.Observe(float64(lines))
}

// OrderReconciled counts a replayed fallback order.
func (m *BusinessMetrics) OrderReconciled(ok bool) {
	if m == nil {
		return
	}
	m.OrdersRecovered.WithLabelValues(resultLabel(ok)).Inc()
}

// CatalogueFallback counts a fallback to built-in data.
func (m *BusinessMetrics) CatalogueFallback(source string) {
	if m == nil {
		return
	}
	m.CatalogueFallbacks.WithLabelValues(source).Inc()
}

// ObserveBackend matches backend.Observer.
func (m *BusinessMetrics) ObserveBackend(endpoint string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.BackendLatency.WithLabelValues(endpoint, resultLabel(err == nil)).Observe(elapsed.Seconds())
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
