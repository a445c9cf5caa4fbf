// Package order turns a priced cart and a recipient roster into an order,
// submits it, and keeps a ledger of orders that had to be accepted locally.
package order

import (
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/pricing"
	"github.com/dukerupert/khetikara/internal/roster"
)

// DefaultNotes is attached to every order unless configured otherwise.
const DefaultNotes = "Order placed via KhetiKara app"

// BuildPayload assembles the order service payload. The first recipient is
// the customer; every recipient becomes a delivery address.
func BuildPayload(sum pricing.Summary, recipients []roster.Recipient, language, notes string) domain.OrderPayload {
	p := domain.OrderPayload{
		Addresses:      make([]domain.OrderAddress, 0, len(recipients)),
		Items:          make([]domain.OrderItem, 0, len(sum.Lines)),
		ItemsTotal:     sum.ItemsTotal,
		HandlingFee:    sum.HandlingFee,
		DeliveryFee:    sum.DeliveryFee,
		DiscountAmount: 0,
		TotalAmount:    sum.TotalAmount,
		Notes:          notes,
	}

	if len(recipients) > 0 {
		p.Customer = domain.OrderCustomer{
			Phone:              recipients[0].Phone,
			Name:               recipients[0].Name,
			LanguagePreference: language,
		}
	}

	for _, r := range recipients {
		p.Addresses = append(p.Addresses, domain.OrderAddress{
			Name:        r.Name,
			Phone:       r.Phone,
			FlatAddress: r.FlatAddress,
			PinCode:     r.PinCode,
		})
	}

	for _, l := range sum.Lines {
		p.Items = append(p.Items, domain.OrderItem{
			ProductID:      l.ProductID,
			ProductName:    l.Name,
			ProductVariety: l.Variety,
			GradeKey:       l.GradeKey,
			GradeLabel:     l.GradeLabel,
			UnitPrice:      l.UnitPrice,
			Quantity:       l.Quantity,
			TotalPrice:     l.Total,
		})
	}

	return p
}

// Assemble validates the roster and the cart and builds the payload.
// Validation errors are written back onto the roster; nothing is sent.
func Assemble(sum pricing.Summary, r *roster.Roster, language, notes string) (domain.OrderPayload, error) {
	if !r.ValidateAll() {
		return domain.OrderPayload{}, domain.ErrInvalidRecipients
	}
	if sum.ItemCount == 0 {
		return domain.OrderPayload{}, domain.ErrEmptyCart
	}
	return BuildPayload(sum, r.Recipients(), language, notes), nil
}
