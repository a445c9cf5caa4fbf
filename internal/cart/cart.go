// Package cart holds the two cart abstractions of the storefront: the
// catalogue-wide Machine driven by discrete actions, and the KeyedCart
// whose lines are keyed by product and grade and persisted to a store slot.
package cart

import "context"

// Cart is the capability both cart variants share. Their data shapes stay
// separate; only these operations are common.
type Cart interface {
	// Add puts quantity more units of productID at grade into the cart.
	Add(ctx context.Context, productID, grade string, quantity int) error

	// Update sets the quantity of productID at grade. Zero removes it.
	Update(ctx context.Context, productID, grade string, quantity int) error

	// Remove drops productID at grade from the cart.
	Remove(ctx context.Context, productID, grade string) error

	// Total is the item subtotal in whole rupees.
	Total() int64
}

var (
	_ Cart = (*Machine)(nil)
	_ Cart = (*KeyedCart)(nil)
)
