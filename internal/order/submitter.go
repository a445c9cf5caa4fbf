package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/telemetry"
	"github.com/google/uuid"
)

// DefaultFallbackPrefix tags locally synthesized order numbers.
const DefaultFallbackPrefix = "KK"

// FallbackID is prefix followed by the last six digits of t in Unix
// milliseconds.
func FallbackID(prefix string, t time.Time) string {
	return fmt.Sprintf("%s%06d", prefix, t.UnixMilli()%1_000_000)
}

// Submitter sends assembled payloads to the order service. When the service
// fails, the order is still accepted under a fallback number and written to
// the ledger so an operator can replay it.
type Submitter struct {
	service domain.OrderService
	ledger  Ledger
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics
	events  Publisher
	now     func() time.Time
	prefix  string
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) { s.now = now }
}

// WithMetrics records order outcomes.
func WithMetrics(m *telemetry.BusinessMetrics) Option {
	return func(s *Submitter) { s.metrics = m }
}

// WithFallbackPrefix overrides DefaultFallbackPrefix.
func WithFallbackPrefix(prefix string) Option {
	return func(s *Submitter) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithPublisher announces every accepted order on p.
func WithPublisher(p Publisher) Option {
	return func(s *Submitter) { s.events = p }
}

// NewSubmitter creates a submitter. ledger may be nil, in which case
// fallback orders are only logged.
func NewSubmitter(service domain.OrderService, ledger Ledger, logger *slog.Logger, opts ...Option) *Submitter {
	s := &Submitter{
		service: service,
		ledger:  ledger,
		logger:  logger,
		now:     time.Now,
		prefix:  DefaultFallbackPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit makes a single attempt to create the order. It always returns a
// confirmation; Fallback is set when the number was synthesized locally.
func (s *Submitter) Submit(ctx context.Context, payload domain.OrderPayload) domain.OrderConfirmation {
	number, err := s.create(ctx, payload)
	placedAt := s.now()

	if err == nil {
		s.logger.Info("Order placed",
			"order_number", number,
			"total_amount", payload.TotalAmount,
			"items", len(payload.Items),
		)
		s.metrics.OrderPlaced(telemetry.OutcomeSubmitted, payload.TotalAmount, len(payload.Items))
		conf := domain.OrderConfirmation{
			OrderNumber: number,
			TotalAmount: payload.TotalAmount,
			PlacedAt:    placedAt,
		}
		s.publish(ctx, newEvent(EventPlaced, conf, payload))
		return conf
	}

	number = FallbackID(s.prefix, placedAt)
	s.logger.Warn("Order service failed, accepted order with fallback number",
		"order_number", number,
		"total_amount", payload.TotalAmount,
		"error", err,
	)
	s.metrics.OrderPlaced(telemetry.OutcomeFallback, payload.TotalAmount, len(payload.Items))
	telemetry.CaptureWarning(ctx, err,
		map[string]string{"order.fallback": "true"},
		map[string]any{"order_number": number, "total_amount": payload.TotalAmount},
	)

	s.record(ctx, FallbackOrder{
		ID:          uuid.NewString(),
		OrderNumber: number,
		Payload:     payload,
		Reason:      err.Error(),
		CreatedAt:   placedAt,
	})

	conf := domain.OrderConfirmation{
		OrderNumber: number,
		Fallback:    true,
		TotalAmount: payload.TotalAmount,
		PlacedAt:    placedAt,
	}
	s.publish(ctx, newEvent(EventFallback, conf, payload))
	return conf
}

func (s *Submitter) create(ctx context.Context, payload domain.OrderPayload) (string, error) {
	if s.service == nil {
		return "", domain.Unavailable(nil, "order.submit", "order service is not configured")
	}
	return s.service.CreateOrder(ctx, payload)
}

func (s *Submitter) record(ctx context.Context, o FallbackOrder) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(ctx, o); err != nil {
		s.logger.Error("Failed to record fallback order",
			"order_number", o.OrderNumber,
			"error", err,
		)
		telemetry.CaptureError(err, map[string]any{"order_number": o.OrderNumber})
	}
}

// publish is best effort: the order has already been accepted.
func (s *Submitter) publish(ctx context.Context, e Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("Failed to publish order event",
			"event", e.Type,
			"order_number", e.OrderNumber,
			"error", err,
		)
	}
}
