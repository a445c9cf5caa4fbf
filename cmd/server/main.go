package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/khetikara/internal"
	"github.com/dukerupert/khetikara/internal/backend"
	"github.com/dukerupert/khetikara/internal/cart"
	"github.com/dukerupert/khetikara/internal/catalogue"
	"github.com/dukerupert/khetikara/internal/events"
	"github.com/dukerupert/khetikara/internal/handler/storefront"
	"github.com/dukerupert/khetikara/internal/middleware"
	"github.com/dukerupert/khetikara/internal/order"
	"github.com/dukerupert/khetikara/internal/postgres"
	"github.com/dukerupert/khetikara/internal/router"
	"github.com/dukerupert/khetikara/internal/routes"
	"github.com/dukerupert/khetikara/internal/service"
	"github.com/dukerupert/khetikara/internal/store"
	"github.com/dukerupert/khetikara/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry
	flush, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flush()

	// Initialize Prometheus metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	business := telemetry.NewBusinessMetrics(reg, cfg.Metrics.Namespace)
	httpMetrics := middleware.NewMetrics(reg, cfg.Metrics.Namespace)

	// ==========================================================================
	// Database (optional)
	// ==========================================================================

	var pool *pgxpool.Pool
	if cfg.DatabaseUrl != "" {
		pool, err = openDatabase(ctx, cfg.DatabaseUrl, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// ==========================================================================
	// Stores
	// ==========================================================================

	storeCfg := store.Config{
		Provider:      cfg.Store.Provider,
		LocalPath:     cfg.Store.LocalPath,
		KeyPrefix:     cfg.Store.KeyPrefix,
		RedisURL:      cfg.Store.RedisURL,
		S3Bucket:      cfg.Store.S3Bucket,
		S3Region:      cfg.Store.S3Region,
		S3Endpoint:    cfg.Store.S3Endpoint,
		S3AccessKeyID: cfg.Store.S3AccessKeyID,
		S3SecretKey:   cfg.Store.S3SecretKey,
	}
	var basketStore store.Store
	if pool != nil {
		basketStore, err = store.NewStore(ctx, storeCfg, pool)
	} else {
		basketStore, err = store.NewStore(ctx, storeCfg, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", cfg.Store.Provider, err)
	}
	logger.Info("Cart store initialized", "provider", cfg.Store.Provider)

	var ledger order.Ledger
	if pool != nil {
		ledger = postgres.NewLedger(pool)
	} else {
		ledger = order.NewStoreLedger(basketStore)
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	client := backend.New(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Timeout,
		backend.WithHTTPClient(&http.Client{
			Timeout:   cfg.Backend.Timeout,
			Transport: &telemetry.HTTPTransport{},
		}),
		backend.WithObserver(business.ObserveBackend),
	)

	submitterOpts := []order.Option{
		order.WithMetrics(business),
		order.WithFallbackPrefix(cfg.Order.FallbackPrefix),
	}
	if cfg.Events.NATSURL != "" {
		publisher, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		submitterOpts = append(submitterOpts, order.WithPublisher(publisher))
		logger.Info("Publishing order events", "subject", publisher.Subject("order.*"))
	}

	catalogueService := catalogue.NewService(client, logger, business)
	submitter := order.NewSubmitter(client, ledger, logger, submitterOpts...)

	basket := cart.NewKeyedCart(basketStore, cfg.Store.Slot, nil)
	if err := basket.Restore(ctx); err != nil {
		logger.Warn("Saved basket could not be restored, starting empty", "error", err)
	}

	front := service.NewStorefront(service.Config{
		Notes:    cfg.Order.Notes,
		Language: cfg.Order.Language,
	}, catalogueService, submitter, basket, logger, business)

	if fallback := front.LoadCatalogue(ctx); fallback {
		logger.Warn("Backend unavailable, serving default catalogue", "backend_url", cfg.Backend.URL)
	}

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.HSTSMaxAge = 0
	}

	orderLimiter := middleware.NewRateLimiter(middleware.StrictRateLimiterConfig())
	defer orderLimiter.Stop()
	defaultLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer defaultLimiter.Stop()

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		defaultLimiter.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
	)
	r.Use(
		router.Recovery(logger),
		router.CORS(cfg.CORSOrigins),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
		httpMetrics.Middleware,
		middleware.SecurityHeaders(securityConfig),
		telemetry.SentryMiddleware(),
	)

	routes.RegisterStorefrontRoutes(r, routes.StorefrontDeps{
		CatalogueHandler: storefront.NewCatalogueHandler(front),
		CartHandler:      storefront.NewCartHandler(front),
		RecipientHandler: storefront.NewRecipientHandler(front),
		OrderHandler:     storefront.NewOrderHandler(front),
		BasketHandler:    storefront.NewBasketHandler(front),
		OrderLimiter:     orderLimiter,
	})
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		HealthHandler: func(w http.ResponseWriter, req *http.Request) {
			if pool != nil {
				if err := pool.Ping(req.Context()); err != nil {
					http.Error(w, "database unavailable", http.StatusServiceUnavailable)
					return
				}
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		},
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port))),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting storefront server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// openDatabase runs migrations over database/sql and returns a pgx pool for
// the ledger and the postgres store.
func openDatabase(ctx context.Context, url string, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
