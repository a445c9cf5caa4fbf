// Command reconcile replays fallback orders recorded while the order service
// was unreachable. It is run by an operator; the storefront never replays.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/khetikara/internal"
	"github.com/dukerupert/khetikara/internal/backend"
	"github.com/dukerupert/khetikara/internal/order"
	"github.com/dukerupert/khetikara/internal/postgres"
	"github.com/dukerupert/khetikara/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

func run() error {
	dryRun := flag.Bool("dry-run", false, "list pending fallback orders without submitting them")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	// The ledger lives where the server put it: postgres when a database is
	// configured, otherwise the configured store.
	var ledger order.Ledger
	if cfg.DatabaseUrl != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()
		ledger = postgres.NewLedger(pool)
	} else {
		st, err := store.NewStore(ctx, store.Config{
			Provider:      cfg.Store.Provider,
			LocalPath:     cfg.Store.LocalPath,
			KeyPrefix:     cfg.Store.KeyPrefix,
			RedisURL:      cfg.Store.RedisURL,
			S3Bucket:      cfg.Store.S3Bucket,
			S3Region:      cfg.Store.S3Region,
			S3Endpoint:    cfg.Store.S3Endpoint,
			S3AccessKeyID: cfg.Store.S3AccessKeyID,
			S3SecretKey:   cfg.Store.S3SecretKey,
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize %s store: %w", cfg.Store.Provider, err)
		}
		ledger = order.NewStoreLedger(st)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *dryRun {
		pending, err := ledger.Pending(ctx)
		if err != nil {
			return fmt.Errorf("failed to list pending orders: %w", err)
		}
		logger.Info("Pending fallback orders", "count", len(pending))
		return enc.Encode(pending)
	}

	client := backend.New(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	report, err := order.NewReconciler(ledger, client, logger, nil).Run(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	logger.Info("Reconciliation finished",
		"attempted", report.Attempted,
		"reconciled", report.Reconciled,
		"failed", report.Failed,
	)
	return enc.Encode(report)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
