package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/pricing"
	"github.com/dukerupert/khetikara/internal/store"
)

// DefaultSlot is the store key the basket is saved under.
const DefaultSlot = "cart"

// Line is one product at one grade in the keyed cart. Price is the unit
// price captured when the line was added.
type Line struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Variety    string `json:"variety"`
	Unit       string `json:"unit"`
	ImageURL   string `json:"image_url,omitempty"`
	Grade      string `json:"grade"`
	GradeLabel string `json:"grade_label"`
	Price      int64  `json:"price"`
	MRP        int64  `json:"mrp"`
	Quantity   int    `json:"quantity"`
}

// LineFor builds a line for product p at grade with the current price.
func LineFor(p domain.Product, grade string, quantity int) Line {
	if grade == "" {
		grade = p.DefaultGrade()
	}
	return Line{
		ID:         p.ID,
		Name:       p.Name,
		Variety:    p.Variety,
		Unit:       p.Unit,
		ImageURL:   p.ImageURL,
		Grade:      grade,
		GradeLabel: pricing.GradeLabel(p, grade),
		Price:      pricing.UnitPrice(p, grade),
		MRP:        p.MRP.Round(0).IntPart(),
		Quantity:   quantity,
	}
}

// LookupFunc resolves a product id against the catalogue.
type LookupFunc func(id string) (domain.Product, bool)

// KeyedCart is a cart keyed by (product id, grade). The full line list is
// written to its store slot after every mutation. If the write fails the
// error is returned but the in-memory mutation stands.
type KeyedCart struct {
	mu     sync.Mutex
	lines  []Line
	store  store.Store
	slot   string
	lookup LookupFunc
}

// NewKeyedCart creates an empty keyed cart saved under slot. lookup is used
// by Add to resolve product details and may be nil.
func NewKeyedCart(st store.Store, slot string, lookup LookupFunc) *KeyedCart {
	if slot == "" {
		slot = DefaultSlot
	}
	return &KeyedCart{
		lines:  []Line{},
		store:  st,
		slot:   slot,
		lookup: lookup,
	}
}

// SetLookup replaces the catalogue lookup used by Add.
func (c *KeyedCart) SetLookup(lookup LookupFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookup = lookup
}

// Restore loads the saved lines. A missing slot yields an empty cart. An
// unreadable document also yields an empty cart, and the decode error is
// returned so the caller can log it.
func (c *KeyedCart) Restore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = []Line{}

	data, err := c.store.Load(ctx, c.slot)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}

	var saved []Line
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("failed to decode saved cart: %w", err)
	}
	for _, l := range saved {
		if l.Quantity > 0 {
			l.Quantity = clampQuantity(l.Quantity)
			c.lines = append(c.lines, l)
		}
	}
	return nil
}

// AddToCart merges line into the cart. A line with the same id and grade
// has its quantity increased, saturating at MaxQuantity; otherwise line is
// appended.
func (c *KeyedCart) AddToCart(ctx context.Context, line Line) error {
	if line.ID == "" {
		return domain.Invalid("cart.add_to_cart", "Product id is required")
	}
	if line.Quantity <= 0 {
		return domain.Invalid("cart.add_to_cart", "Quantity must be at least 1")
	}
	if line.Quantity > MaxQuantity {
		return domain.Errorf(domain.EINVALID, "cart.add_to_cart", "Quantity must be at most %d", MaxQuantity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(line.ID, line.Grade); i >= 0 {
		c.lines[i].Quantity = addQuantity(c.lines[i].Quantity, line.Quantity)
	} else {
		c.lines = append(c.lines, line)
	}
	return c.persist(ctx)
}

// UpdateQuantity sets the quantity of (id, grade), clamped to
// [0, MaxQuantity]. Lines that reach 0 are removed.
func (c *KeyedCart) UpdateQuantity(ctx context.Context, id, grade string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		if l.ID == id && l.Grade == grade {
			l.Quantity = clampQuantity(quantity)
		}
		if l.Quantity > 0 {
			next = append(next, l)
		}
	}
	c.lines = next
	return c.persist(ctx)
}

// RemoveFromCart drops (id, grade).
func (c *KeyedCart) RemoveFromCart(ctx context.Context, id, grade string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		if l.ID == id && l.Grade == grade {
			continue
		}
		next = append(next, l)
	}
	c.lines = next
	return c.persist(ctx)
}

// ClearCart empties the cart.
func (c *KeyedCart) ClearCart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = []Line{}
	return c.persist(ctx)
}

// Lines returns a copy of the current lines in insertion order.
func (c *KeyedCart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is the sum of price times quantity over all lines.
func (c *KeyedCart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, l := range c.lines {
		total += l.Price * int64(l.Quantity)
	}
	return total
}

// Count is the number of units across all lines.
func (c *KeyedCart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Add resolves productID through the catalogue lookup and merges a new line.
func (c *KeyedCart) Add(ctx context.Context, productID, grade string, quantity int) error {
	c.mu.Lock()
	lookup := c.lookup
	c.mu.Unlock()

	if lookup == nil {
		return domain.Internal(nil, "cart.add", "catalogue lookup is not configured")
	}
	p, ok := lookup(productID)
	if !ok {
		return domain.NotFound("cart.add", "product", productID)
	}
	return c.AddToCart(ctx, LineFor(p, grade, quantity))
}

func (c *KeyedCart) Update(ctx context.Context, productID, grade string, quantity int) error {
	return c.UpdateQuantity(ctx, productID, grade, quantity)
}

func (c *KeyedCart) Remove(ctx context.Context, productID, grade string) error {
	return c.RemoveFromCart(ctx, productID, grade)
}

func (c *KeyedCart) index(id, grade string) int {
	for i, l := range c.lines {
		if l.ID == id && l.Grade == grade {
			return i
		}
	}
	return -1
}

// persist must be called with mu held.
func (c *KeyedCart) persist(ctx context.Context) error {
	data, err := json.Marshal(c.lines)
	if err != nil {
		return domain.Internal(err, "cart.persist", "failed to encode cart")
	}
	if err := c.store.Save(ctx, c.slot, data); err != nil {
		return domain.Unavailable(err, "cart.persist", "failed to save cart")
	}
	return nil
}
