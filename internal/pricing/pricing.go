// Package pricing derives unit prices, savings and order totals from
// catalogue products and grade selections. Everything here is pure.
package pricing

import (
	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/shopspring/decimal"
)

// HandlingFeeRate is the surcharge applied to the item subtotal.
var HandlingFeeRate = decimal.RequireFromString("0.02")

// DeliveryFee is currently fixed.
const DeliveryFee int64 = 0

// Multiplier returns the price multiplier for gradeKey, or 1 when the key
// does not resolve to one of the product's grades.
func Multiplier(p domain.Product, gradeKey string) decimal.Decimal {
	if g, ok := p.FindGrade(gradeKey); ok {
		return g.Multiplier
	}
	return decimal.NewFromInt(1)
}

// UnitPrice is round(base_price * multiplier), half away from zero.
func UnitPrice(p domain.Product, gradeKey string) int64 {
	return p.BasePrice.Mul(Multiplier(p, gradeKey)).Round(0).IntPart()
}

// Savings is the per-unit discount against MRP, never negative.
func Savings(p domain.Product, unitPrice int64) int64 {
	s := p.MRP.Sub(decimal.NewFromInt(unitPrice))
	if s.IsNegative() {
		return 0
	}
	return s.Round(0).IntPart()
}

// GradeLabel resolves the display label for gradeKey, falling back to the
// key itself.
func GradeLabel(p domain.Product, gradeKey string) string {
	if g, ok := p.FindGrade(gradeKey); ok && g.Label != "" {
		return g.Label
	}
	return gradeKey
}

// Line is one priced product at one grade.
type Line struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"product_name"`
	Variety    string `json:"product_variety"`
	Unit       string `json:"unit"`
	GradeKey   string `json:"grade_key"`
	GradeLabel string `json:"grade_label"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	Total      int64  `json:"total_price"`
	Savings    int64  `json:"savings"`
}

// PriceLine prices quantity units of p at gradeKey.
func PriceLine(p domain.Product, gradeKey string, quantity int) Line {
	unit := UnitPrice(p, gradeKey)
	q := int64(quantity)
	return Line{
		ProductID:  p.ID,
		Name:       p.Name,
		Variety:    p.Variety,
		Unit:       p.Unit,
		GradeKey:   gradeKey,
		GradeLabel: GradeLabel(p, gradeKey),
		UnitPrice:  unit,
		Quantity:   quantity,
		Total:      unit * q,
		Savings:    Savings(p, unit) * q,
	}
}

// Selection is a product with a chosen grade and quantity.
type Selection struct {
	Product  domain.Product
	Grade    string
	Quantity int
}

// Summary is the derived view of a cart. It is recomputed on every read.
type Summary struct {
	Lines       []Line `json:"lines"`
	ItemCount   int    `json:"item_count"`
	UnitCount   int    `json:"unit_count"`
	ItemsTotal  int64  `json:"items_total"`
	MRPTotal    int64  `json:"mrp_total"`
	Savings     int64  `json:"savings"`
	HandlingFee int64  `json:"handling_fee"`
	DeliveryFee int64  `json:"delivery_fee"`
	TotalAmount int64  `json:"total_amount"`
}

// Summarize prices every selection with a positive quantity.
func Summarize(selections []Selection) Summary {
	sum := Summary{Lines: []Line{}, DeliveryFee: DeliveryFee}
	mrp := decimal.Zero

	for _, s := range selections {
		if s.Quantity <= 0 {
			continue
		}
		line := PriceLine(s.Product, s.Grade, s.Quantity)
		sum.Lines = append(sum.Lines, line)
		sum.ItemCount++
		sum.UnitCount += s.Quantity
		sum.ItemsTotal += line.Total
		mrp = mrp.Add(s.Product.MRP.Mul(decimal.NewFromInt(int64(s.Quantity))))
	}

	items := decimal.NewFromInt(sum.ItemsTotal)
	sum.MRPTotal = mrp.Round(0).IntPart()
	if saved := mrp.Sub(items); saved.IsPositive() {
		sum.Savings = saved.Round(0).IntPart()
	}
	sum.HandlingFee = HandlingFee(sum.ItemsTotal)
	sum.TotalAmount = sum.ItemsTotal + sum.HandlingFee + sum.DeliveryFee
	return sum
}

// HandlingFee is round(itemsTotal * HandlingFeeRate).
func HandlingFee(itemsTotal int64) int64 {
	return decimal.NewFromInt(itemsTotal).Mul(HandlingFeeRate).Round(0).IntPart()
}
