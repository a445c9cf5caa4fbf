// Package catalogue supplies products and market metrics to the storefront,
// falling back to a built-in snapshot whenever the backend cannot.
package catalogue

import (
	"context"
	"log/slog"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/telemetry"
	"github.com/shopspring/decimal"
)

// Source is where products and metrics normally come from.
type Source interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	MarketMetrics(ctx context.Context) ([]domain.MarketMetric, error)
}

// Service wraps a Source and never fails: backend errors are logged and the
// default snapshot is returned instead.
type Service struct {
	source  Source
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics
}

// NewService creates a catalogue service. metrics may be nil.
func NewService(source Source, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *Service {
	return &Service{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// Products returns the catalogue. fallback reports whether the default
// catalogue was used.
func (s *Service) Products(ctx context.Context) (products []domain.Product, fallback bool) {
	products, err := s.source.ListProducts(ctx)
	if err == nil {
		return products, false
	}

	s.logger.Warn("Failed to load products, using default catalogue", "error", err)
	s.metrics.CatalogueFallback("products")
	return DefaultProducts(), true
}

// Metrics returns the market metrics. fallback reports whether the default
// snapshot was used.
func (s *Service) Metrics(ctx context.Context) (metrics []domain.MarketMetric, fallback bool) {
	metrics, err := s.source.MarketMetrics(ctx)
	if err == nil {
		return metrics, false
	}

	s.logger.Warn("Failed to load market metrics, using defaults", "error", err)
	s.metrics.CatalogueFallback("metrics")
	return DefaultMetrics(), true
}

func standardGrades() []domain.Grade {
	return []domain.Grade{
		{Key: "A1", Label: "A1 - Premium Grade", Multiplier: decimal.RequireFromString("1.0")},
		{Key: "A2", Label: "A2 - Standard Grade", Multiplier: decimal.RequireFromString("0.9")},
		{Key: "A3", Label: "A3 - Economy Grade", Multiplier: decimal.RequireFromString("0.78")},
	}
}

// DefaultProducts is the catalogue shown when the backend is unavailable.
func DefaultProducts() []domain.Product {
	return []domain.Product{
		{
			ID:          "item-1",
			Name:        "Desi Tomatoes",
			Variety:     "Bilahi",
			Unit:        "kg",
			ImageURL:    "https://images.unsplash.com/photo-1546470427-0fd5d2aa7c39?q=80&w=600&auto=format&fit=crop",
			BasePrice:   decimal.NewFromInt(56),
			MRP:         decimal.NewFromInt(62),
			MinOrderQty: 1,
			MaxOrderQty: 100,
			Grades:      standardGrades(),
		},
		{
			ID:          "item-2",
			Name:        "Onion",
			Variety:     "Red",
			Unit:        "kg",
			ImageURL:    "https://images.unsplash.com/photo-1604908554049-9f4a2f2f8bff?q=80&w=600&auto=format&fit=crop",
			BasePrice:   decimal.NewFromInt(48),
			MRP:         decimal.NewFromInt(54),
			MinOrderQty: 1,
			MaxOrderQty: 100,
			Grades:      standardGrades(),
		},
	}
}

// DefaultMetrics is the market snapshot shown when the backend is unavailable.
func DefaultMetrics() []domain.MarketMetric {
	return []domain.MarketMetric{
		{
			Type:        "market_arrival_volume",
			Value:       decimal.RequireFromString("2.82"),
			Unit:        "percent",
			Description: "Market Arrival Volume Change",
		},
		{
			Type:        "demand_index",
			Value:       decimal.RequireFromString("-0.4"),
			Unit:        "points",
			Description: "Demand Index Change",
		},
	}
}
