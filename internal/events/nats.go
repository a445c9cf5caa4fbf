// Package events publishes order events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/order"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to the event type to form the subject,
// e.g. "khetikara.order.placed".
const DefaultSubjectPrefix = "khetikara"

// conn is the subset of *nats.Conn used here.
type conn interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher implements order.Publisher on a core NATS connection.
type NATSPublisher struct {
	nc     conn
	prefix string
	drain  func() error
}

var _ order.Publisher = (*NATSPublisher)(nil)

// Connect dials url and keeps reconnecting for the life of the process.
func Connect(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("khetikara-storefront"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p := newPublisher(nc, prefix)
	p.drain = nc.Drain
	return p, nil
}

func newPublisher(nc conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Subject returns the subject an event of type typ is published on.
func (p *NATSPublisher) Subject(typ string) string {
	return p.prefix + "." + typ
}

// Publish sends e as JSON. The order number is set as the message id so a
// JetStream stream on the subject drops redeliveries.
func (p *NATSPublisher) Publish(ctx context.Context, e order.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return domain.Internal(err, "events.publish", "failed to encode order event")
	}

	msg := nats.NewMsg(p.Subject(e.Type))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, e.Type+":"+e.OrderNumber)

	if err := p.nc.PublishMsg(msg); err != nil {
		return domain.Unavailable(err, "events.publish", "failed to publish order event")
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.drain == nil {
		return nil
	}
	return p.drain()
}
