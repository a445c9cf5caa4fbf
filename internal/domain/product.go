package domain

import "github.com/shopspring/decimal"

// DefaultGradeKey is selected for products that arrive without any grades.
const DefaultGradeKey = "A1"

// Grade is a quality tier for a product with its own price multiplier.
type Grade struct {
	Key        string          `json:"grade_key"`
	Label      string          `json:"grade_label"`
	Multiplier decimal.Decimal `json:"price_multiplier"`
}

// Product is a catalogue record as supplied by the catalogue source.
// The core never mutates products; it copies them into cart state.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Variety     string          `json:"variety"`
	Unit        string          `json:"unit"`
	ImageURL    string          `json:"image_url,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	MRP         decimal.Decimal `json:"mrp"`
	MinOrderQty int             `json:"min_order_qty"`
	MaxOrderQty int             `json:"max_order_qty"`
	Grades      []Grade         `json:"product_grades"`
}

// FindGrade returns the grade with the given key.
func (p Product) FindGrade(key string) (Grade, bool) {
	for _, g := range p.Grades {
		if g.Key == key {
			return g, true
		}
	}
	return Grade{}, false
}

// DefaultGrade is the first declared grade key, or DefaultGradeKey.
func (p Product) DefaultGrade() string {
	if len(p.Grades) > 0 && p.Grades[0].Key != "" {
		return p.Grades[0].Key
	}
	return DefaultGradeKey
}

// MarketMetric is a headline market indicator shown next to the catalogue.
type MarketMetric struct {
	Type        string          `json:"metric_type"`
	Value       decimal.Decimal `json:"metric_value"`
	Unit        string          `json:"metric_unit"`
	Description string          `json:"description"`
}
