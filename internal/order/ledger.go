package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/store"
)

// FallbackOrder is an order accepted with a locally synthesized number
// because the order service could not take it.
type FallbackOrder struct {
	ID           string              `json:"id"`
	OrderNumber  string              `json:"order_number"`
	Payload      domain.OrderPayload `json:"payload"`
	Reason       string              `json:"reason"`
	CreatedAt    time.Time           `json:"created_at"`
	Attempts     int                 `json:"attempts"`
	LastError    string              `json:"last_error,omitempty"`
	ReconciledAt *time.Time          `json:"reconciled_at,omitempty"`
	RemoteNumber string              `json:"remote_order_number,omitempty"`
}

// Reconciled reports whether the order has reached the order service.
func (o FallbackOrder) Reconciled() bool {
	return o.ReconciledAt != nil
}

// Ledger durably records fallback orders until an operator reconciles them.
type Ledger interface {
	Record(ctx context.Context, o FallbackOrder) error
	Pending(ctx context.Context) ([]FallbackOrder, error)
	MarkReconciled(ctx context.Context, id, remoteNumber string, at time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// LedgerSlot is the store key StoreLedger keeps its entries under.
const LedgerSlot = "fallback_orders"

// StoreLedger keeps the ledger as a single JSON document in a store slot.
type StoreLedger struct {
	mu    sync.Mutex
	store store.Store
	slot  string
}

// NewStoreLedger creates a ledger persisted in st.
func NewStoreLedger(st store.Store) *StoreLedger {
	return &StoreLedger{store: st, slot: LedgerSlot}
}

var _ Ledger = (*StoreLedger)(nil)

func (l *StoreLedger) load(ctx context.Context) ([]FallbackOrder, error) {
	data, err := l.store.Load(ctx, l.slot)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	var entries []FallbackOrder
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger: %w", err)
	}
	return entries, nil
}

func (l *StoreLedger) save(ctx context.Context, entries []FallbackOrder) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := l.store.Save(ctx, l.slot, data); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

func (l *StoreLedger) Record(ctx context.Context, o FallbackOrder) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(ctx)
	if err != nil {
		return err
	}
	return l.save(ctx, append(entries, o))
}

func (l *StoreLedger) Pending(ctx context.Context) ([]FallbackOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	pending := []FallbackOrder{}
	for _, e := range entries {
		if !e.Reconciled() {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (l *StoreLedger) MarkReconciled(ctx context.Context, id, remoteNumber string, at time.Time) error {
	return l.update(ctx, id, func(e *FallbackOrder) {
		e.Attempts++
		e.LastError = ""
		e.RemoteNumber = remoteNumber
		e.ReconciledAt = &at
	})
}

func (l *StoreLedger) MarkFailed(ctx context.Context, id, reason string) error {
	return l.update(ctx, id, func(e *FallbackOrder) {
		e.Attempts++
		e.LastError = reason
	})
}

func (l *StoreLedger) update(ctx context.Context, id string, fn func(*FallbackOrder)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(ctx)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			fn(&entries[i])
			return l.save(ctx, entries)
		}
	}
	return domain.NotFound("ledger.update", "fallback order", id)
}
