package order

import (
	"context"
	"time"

	"github.com/dukerupert/khetikara/internal/domain"
)

// Event types published for accepted orders.
const (
	EventPlaced   = "order.placed"
	EventFallback = "order.fallback"
)

// Event announces an accepted order to downstream consumers such as the
// packing floor display. It carries totals only, never recipient details.
type Event struct {
	Type        string    `json:"type"`
	OrderNumber string    `json:"order_number"`
	Fallback    bool      `json:"fallback"`
	TotalAmount int64     `json:"total_amount"`
	Items       int       `json:"items"`
	Units       int       `json:"units"`
	Recipients  int       `json:"recipients"`
	Language    string    `json:"language"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher delivers order events. Implementations: events.NATSPublisher.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

func newEvent(typ string, conf domain.OrderConfirmation, payload domain.OrderPayload) Event {
	var units int
	for _, it := range payload.Items {
		units += it.Quantity
	}
	return Event{
		Type:        typ,
		OrderNumber: conf.OrderNumber,
		Fallback:    conf.Fallback,
		TotalAmount: conf.TotalAmount,
		Items:       len(payload.Items),
		Units:       units,
		Recipients:  len(payload.Addresses),
		Language:    payload.Customer.LanguagePreference,
		OccurredAt:  conf.PlacedAt,
	}
}
