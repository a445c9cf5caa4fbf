package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/order"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	msgs []*nats.Msg
	err  error
}

func (c *fakeConn) PublishMsg(m *nats.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, m)
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	nc := &fakeConn{}
	p := newPublisher(nc, "")
	at := time.Date(2024, 6, 10, 6, 30, 0, 0, time.UTC)

	err := p.Publish(context.Background(), order.Event{
		Type:        order.EventFallback,
		OrderNumber: "KK654321",
		Fallback:    true,
		TotalAmount: 171,
		Items:       1,
		Units:       3,
		Recipients:  1,
		Language:    "Assamese",
		OccurredAt:  at,
	})
	require.NoError(t, err)

	require.Len(t, nc.msgs, 1)
	msg := nc.msgs[0]
	assert.Equal(t, "khetikara.order.fallback", msg.Subject)
	assert.Equal(t, "order.fallback:KK654321", msg.Header.Get(nats.MsgIdHdr))

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "KK654321", got["order_number"])
	assert.Equal(t, true, got["fallback"])
	assert.Equal(t, float64(171), got["total_amount"])
	assert.NotContains(t, got, "phone")
}

func TestNATSPublisher_Errors(t *testing.T) {
	t.Run("connection failure is unavailable", func(t *testing.T) {
		p := newPublisher(&fakeConn{err: nats.ErrConnectionClosed}, "shop")

		err := p.Publish(context.Background(), order.Event{Type: order.EventPlaced, OrderNumber: "ORD-1"})

		assert.True(t, domain.IsCode(err, domain.EUNAVAILABLE))
		assert.True(t, errors.Is(err, nats.ErrConnectionClosed))
	})

	t.Run("cancelled context publishes nothing", func(t *testing.T) {
		nc := &fakeConn{}
		p := newPublisher(nc, "shop")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := p.Publish(ctx, order.Event{Type: order.EventPlaced})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, nc.msgs)
	})
}

func TestNATSPublisher_Subject(t *testing.T) {
	assert.Equal(t, "shop.order.placed", newPublisher(&fakeConn{}, "shop").Subject(order.EventPlaced))
	assert.NoError(t, newPublisher(&fakeConn{}, "").Close())
}
