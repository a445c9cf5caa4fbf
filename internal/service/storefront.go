// Package service holds the storefront state machine: the catalogue cart,
// the recipient roster, the keyed basket, the language preference and the
// last order confirmation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukerupert/khetikara/internal/cart"
	"github.com/dukerupert/khetikara/internal/catalogue"
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/order"
	"github.com/dukerupert/khetikara/internal/pricing"
	"github.com/dukerupert/khetikara/internal/roster"
	"github.com/dukerupert/khetikara/internal/telemetry"
)

// DefaultLanguage is used until the customer picks one.
const DefaultLanguage = "Assamese"

// Config holds the session's order defaults.
type Config struct {
	Notes    string
	Language string
}

// Storefront serializes every cart and roster mutation. The lock is released
// while an order is with the order service; in the meantime the submitting
// flag rejects a second submission and any cart or roster change, since
// both are reset when the order completes.
//
// There is one Storefront per process: every client of the HTTP surface
// shares its cart, roster and confirmation.
type Storefront struct {
	mu sync.Mutex

	machine  *cart.Machine
	roster   *roster.Roster
	products map[string]domain.Product

	catalogue *catalogue.Service
	submitter *order.Submitter
	basket    *cart.KeyedCart
	logger    *slog.Logger
	metrics   *telemetry.BusinessMetrics

	notes        string
	language     string
	submitting   bool
	confirmation *domain.OrderConfirmation
}

// New creates a session with an empty cart and one empty recipient. Call
// LoadCatalogue to populate the cart. metrics may be nil.
func NewStorefront(cfg Config, cat *catalogue.Service, submitter *order.Submitter, basket *cart.KeyedCart, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *Storefront {
	if cfg.Notes == "" {
		cfg.Notes = order.DefaultNotes
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	s := &Storefront{
		machine:   cart.NewMachine(nil),
		roster:    roster.New(),
		products:  map[string]domain.Product{},
		catalogue: cat,
		submitter: submitter,
		basket:    basket,
		logger:    logger,
		metrics:   metrics,
		notes:     cfg.Notes,
		language:  cfg.Language,
	}
	s.machine.OnDispatch = func(a cart.ActionType) {
		metrics.CartAction(string(a))
	}
	if basket != nil {
		basket.SetLookup(s.lookup)
	}
	return s
}

// LoadCatalogue fetches the catalogue and re-initializes the cart with it.
// Any previous confirmation is dismissed.
func (s *Storefront) LoadCatalogue(ctx context.Context) (fallback bool) {
	products, fallback := s.catalogue.Products(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[string]domain.Product, len(products))
	for _, p := range products {
		s.products[p.ID] = p
	}
	s.machine.Initialize(cart.FromCatalogue(products))
	s.confirmation = nil

	s.logger.Info("Catalogue loaded", "products", len(products), "fallback", fallback)
	return fallback
}

// MarketMetrics returns the latest market indicators.
func (s *Storefront) MarketMetrics(ctx context.Context) ([]domain.MarketMetric, bool) {
	return s.catalogue.Metrics(ctx)
}

func (s *Storefront) lookup(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// =============================================================================
// CART
// =============================================================================

// Items returns the cart items whose name or variety matches query.
func (s *Storefront) Items(query string) []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.Filter(s.machine.Items(), query)
}

// Summary prices the current cart.
func (s *Storefront) Summary() pricing.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Summary()
}

// idle reports ErrSubmissionInFlight while an order is being placed.
// Callers hold mu.
func (s *Storefront) idle() error {
	if s.submitting {
		return domain.ErrSubmissionInFlight
	}
	return nil
}

// UpdateQuantity changes the quantity of item id by delta. The result is
// clamped to [0, cart.MaxQuantity].
func (s *Storefront) UpdateQuantity(id string, delta int) (cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idle(); err != nil {
		return cart.Item{}, err
	}

	if _, ok := s.machine.Item(id); !ok {
		return cart.Item{}, domain.NotFound("cart.update_quantity", "product", id)
	}
	s.machine.UpdateQuantity(id, delta)
	it, _ := s.machine.Item(id)
	return it, nil
}

// SetGrade selects grade for item id.
func (s *Storefront) SetGrade(id, grade string) (cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idle(); err != nil {
		return cart.Item{}, err
	}

	if _, ok := s.machine.Item(id); !ok {
		return cart.Item{}, domain.NotFound("cart.set_grade", "product", id)
	}
	s.machine.SetGrade(id, grade)
	it, _ := s.machine.Item(id)
	return it, nil
}

// ClearCart zeroes every quantity.
func (s *Storefront) ClearCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idle(); err != nil {
		return err
	}
	s.machine.Clear()
	return nil
}

// =============================================================================
// RECIPIENTS
// =============================================================================

func (s *Storefront) Recipients() []roster.Recipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Recipients()
}

func (s *Storefront) AddRecipient() (roster.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idle(); err != nil {
		return roster.Recipient{}, err
	}
	return s.roster.Add(), nil
}

func (s *Storefront) RemoveRecipient(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idle(); err != nil {
		return err
	}
	return s.roster.Remove(id)
}

func (s *Storefront) UpdateRecipient(id string, field roster.Field, value string) (roster.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idle(); err != nil {
		return roster.Recipient{}, err
	}
	return s.roster.Update(id, field, value)
}

// ValidateRecipients runs the full validation pass and returns the roster
// with its errors.
func (s *Storefront) ValidateRecipients() (bool, []roster.Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	valid := s.roster.ValidateAll()
	recs := s.roster.Recipients()
	if !valid {
		s.countValidationFailures(recs)
	}
	return valid, recs
}

// recipientErrors collects the roster's field errors, keyed
// recipients.N.field, into a ValidationError wrapping
// domain.ErrInvalidRecipients. Callers hold mu.
func (s *Storefront) recipientErrors() error {
	var err error = &domain.ValidationError{
		Op:     "order.place",
		Fields: map[string]string{},
		Err:    domain.ErrInvalidRecipients,
	}
	if s.roster.Len() == 0 {
		err = domain.AddFieldError(err, "recipients", "At least one recipient is required")
	}
	for i, rec := range s.roster.Recipients() {
		for field, msg := range rec.Errors.Map() {
			err = domain.AddFieldError(err, fmt.Sprintf("recipients.%d.%s", i, field), msg)
		}
	}
	return err
}

func (s *Storefront) countValidationFailures(recs []roster.Recipient) {
	for _, r := range recs {
		for field := range r.Errors.Map() {
			s.metrics.ValidationFailure(field)
		}
	}
}

// =============================================================================
// LANGUAGE
// =============================================================================

func (s *Storefront) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Storefront) SetLanguage(language string) error {
	language = strings.TrimSpace(language)
	if language == "" {
		return ErrLanguageRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = language
	return nil
}

// =============================================================================
// ORDERS
// =============================================================================

// PlaceOrder validates the roster and cart, submits the order and, whatever
// the order service answers, clears the cart and resets the roster.
// It fails only on invalid input or while another submission is in flight.
// Invalid recipients yield a *domain.ValidationError carrying the field
// errors found by this call.
func (s *Storefront) PlaceOrder(ctx context.Context) (domain.OrderConfirmation, error) {
	s.mu.Lock()
	if err := s.idle(); err != nil {
		s.mu.Unlock()
		return domain.OrderConfirmation{}, err
	}

	payload, err := order.Assemble(s.machine.Summary(), s.roster, s.language, s.notes)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRecipients) {
			s.countValidationFailures(s.roster.Recipients())
			err = s.recipientErrors()
		}
		s.metrics.OrderPlaced(telemetry.OutcomeRejected, 0, 0)
		s.mu.Unlock()
		return domain.OrderConfirmation{}, err
	}
	s.submitting = true
	s.mu.Unlock()

	// A started submission runs to completion even if the caller goes away.
	conf := s.submitter.Submit(context.WithoutCancel(ctx), payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.Clear()
	s.roster.Reset()
	s.confirmation = &conf
	s.submitting = false
	return conf, nil
}

// Confirmation returns the last order confirmation.
func (s *Storefront) Confirmation() (domain.OrderConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.confirmation == nil {
		return domain.OrderConfirmation{}, domain.ErrNoConfirmation
	}
	return *s.confirmation, nil
}

// DismissConfirmation forgets the last confirmation.
func (s *Storefront) DismissConfirmation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmation = nil
}

// =============================================================================
// BASKET
// =============================================================================

// Basket returns the keyed cart, or nil when none is configured.
func (s *Storefront) Basket() *cart.KeyedCart {
	return s.basket
}

// BasketAdd adds quantity units of product id at grade to the basket.
func (s *Storefront) BasketAdd(ctx context.Context, id, grade string, quantity int) error {
	return s.basketDo("add", func() error { return s.basket.Add(ctx, id, grade, quantity) })
}

// BasketUpdate sets the quantity of (id, grade); zero removes the line.
func (s *Storefront) BasketUpdate(ctx context.Context, id, grade string, quantity int) error {
	return s.basketDo("update", func() error { return s.basket.UpdateQuantity(ctx, id, grade, quantity) })
}

// BasketRemove drops (id, grade) from the basket.
func (s *Storefront) BasketRemove(ctx context.Context, id, grade string) error {
	return s.basketDo("remove", func() error { return s.basket.RemoveFromCart(ctx, id, grade) })
}

// BasketClear empties the basket.
func (s *Storefront) BasketClear(ctx context.Context) error {
	return s.basketDo("clear", func() error { return s.basket.ClearCart(ctx) })
}

func (s *Storefront) basketDo(action string, fn func() error) error {
	if s.basket == nil {
		return ErrBasketNotConfigured
	}

	err := fn()
	switch {
	case err == nil:
		s.metrics.BasketAction(action, "ok")
	case domain.IsCode(err, domain.EUNAVAILABLE):
		// The in-memory change stands; only the save failed.
		s.metrics.BasketAction(action, "persist_failed")
		s.logger.Warn("Failed to persist basket", "action", action, "error", err)
	default:
		s.metrics.BasketAction(action, "rejected")
	}
	return err
}
