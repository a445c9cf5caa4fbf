package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/telemetry"
)

// Report summarizes one reconciliation run.
type Report struct {
	Attempted  int `json:"attempted"`
	Reconciled int `json:"reconciled"`
	Failed     int `json:"failed"`
}

// Reconciler replays pending fallback orders to the order service. It is
// run by an operator, never from the submission path.
type Reconciler struct {
	ledger  Ledger
	service domain.OrderService
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics
	now     func() time.Time
}

// NewReconciler creates a reconciler. metrics may be nil.
func NewReconciler(ledger Ledger, service domain.OrderService, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *Reconciler {
	return &Reconciler{
		ledger:  ledger,
		service: service,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run submits every pending fallback order once. A failed order stays
// pending with its attempt count increased.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report

	pending, err := r.ledger.Pending(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list pending orders: %w", err)
	}

	for _, o := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++

		payload := o.Payload
		payload.Notes = replayNotes(payload.Notes, o.OrderNumber)

		number, err := r.service.CreateOrder(ctx, payload)
		if err != nil {
			report.Failed++
			r.metrics.OrderReconciled(false)
			r.logger.Warn("Fallback order still rejected",
				"order_number", o.OrderNumber,
				"attempts", o.Attempts+1,
				"error", err,
			)
			if markErr := r.ledger.MarkFailed(ctx, o.ID, err.Error()); markErr != nil {
				return report, fmt.Errorf("failed to mark order %s: %w", o.OrderNumber, markErr)
			}
			continue
		}

		report.Reconciled++
		r.metrics.OrderReconciled(true)
		r.logger.Info("Fallback order reconciled",
			"order_number", o.OrderNumber,
			"remote_order_number", number,
		)
		if err := r.ledger.MarkReconciled(ctx, o.ID, number, r.now()); err != nil {
			return report, fmt.Errorf("failed to mark order %s: %w", o.OrderNumber, err)
		}
	}

	return report, nil
}

func replayNotes(notes, localNumber string) string {
	ref := "Local reference " + localNumber
	if notes == "" {
		return ref
	}
	return notes + " (" + ref + ")"
}
