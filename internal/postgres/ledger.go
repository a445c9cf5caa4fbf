// Package postgres implements durable storage on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used here.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Ledger implements order.Ledger on the fallback_orders table.
type Ledger struct {
	db DB
}

// Compile-time check that Ledger implements order.Ledger.
var _ order.Ledger = (*Ledger)(nil)

// NewLedger creates a PostgreSQL-backed fallback order ledger.
func NewLedger(db DB) *Ledger {
	return &Ledger{db: db}
}

// Record inserts a new fallback order.
func (l *Ledger) Record(ctx context.Context, o order.FallbackOrder) error {
	payload, err := json.Marshal(o.Payload)
	if err != nil {
		return domain.Internal(err, "ledger.record", "failed to encode order payload")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO fallback_orders (id, order_number, payload, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.OrderNumber, payload, o.Reason, o.CreatedAt,
	)
	if err != nil {
		return domain.Internal(err, "ledger.record", "failed to record fallback order")
	}
	return nil
}

// Pending returns unreconciled orders, oldest first.
func (l *Ledger) Pending(ctx context.Context) ([]order.FallbackOrder, error) {
	rows, err := l.db.Query(ctx, `
		SELECT id, order_number, payload, reason, attempts, last_error, created_at
		FROM fallback_orders
		WHERE reconciled_at IS NULL
		ORDER BY created_at`)
	if err != nil {
		return nil, domain.Internal(err, "ledger.pending", "failed to list fallback orders")
	}
	defer rows.Close()

	pending := []order.FallbackOrder{}
	for rows.Next() {
		var (
			o       order.FallbackOrder
			payload []byte
		)
		if err := rows.Scan(&o.ID, &o.OrderNumber, &payload, &o.Reason, &o.Attempts, &o.LastError, &o.CreatedAt); err != nil {
			return nil, domain.Internal(err, "ledger.pending", "failed to scan fallback order")
		}
		if err := json.Unmarshal(payload, &o.Payload); err != nil {
			return nil, domain.Internal(err, "ledger.pending", fmt.Sprintf("corrupt payload for order %s", o.OrderNumber))
		}
		pending = append(pending, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "ledger.pending", "failed to read fallback orders")
	}
	return pending, nil
}

// MarkReconciled stores the number the order service assigned.
func (l *Ledger) MarkReconciled(ctx context.Context, id, remoteNumber string, at time.Time) error {
	tag, err := l.db.Exec(ctx, `
		UPDATE fallback_orders
		SET attempts = attempts + 1, last_error = '', remote_order_number = $2, reconciled_at = $3
		WHERE id = $1`,
		id, remoteNumber, at,
	)
	if err != nil {
		return domain.Internal(err, "ledger.mark_reconciled", "failed to update fallback order")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("ledger.mark_reconciled", "fallback order", id)
	}
	return nil
}

// MarkFailed records another unsuccessful replay.
func (l *Ledger) MarkFailed(ctx context.Context, id, reason string) error {
	tag, err := l.db.Exec(ctx, `
		UPDATE fallback_orders
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1`,
		id, reason,
	)
	if err != nil {
		return domain.Internal(err, "ledger.mark_failed", "failed to update fallback order")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("ledger.mark_failed", "fallback order", id)
	}
	return nil
}
