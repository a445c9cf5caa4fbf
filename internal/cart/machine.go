package cart

import (
	"context"
	"math"
	"strings"

	"github.com/dukerupert/khetikara/internal/domain"
	"github.com/dukerupert/khetikara/internal/pricing"
)

// MaxQuantity bounds the quantity of a single cart line so that priced
// totals stay within int64.
const MaxQuantity = math.MaxInt32

// addQuantity returns q+delta clamped to [0, MaxQuantity]. It never
// overflows, whatever the magnitude of delta.
func addQuantity(q, delta int) int {
	q = clampQuantity(q)
	switch {
	case delta > MaxQuantity-q:
		return MaxQuantity
	case delta < -q:
		return 0
	}
	return q + delta
}

func clampQuantity(q int) int {
	return min(max(q, 0), MaxQuantity)
}

// Item is a catalogue product carried in cart state with the selected grade
// and quantity. Quantity 0 means the product is not in the cart.
type Item struct {
	domain.Product
	Grade    string `json:"grade"`
	Quantity int    `json:"quantity"`
}

// ActionType names a cart transition.
type ActionType string

const (
	ActionUpdateQuantity ActionType = "UPDATE_QUANTITY"
	ActionSetGrade       ActionType = "SET_GRADE"
	ActionClearCart      ActionType = "CLEAR_CART"
	ActionInitialize     ActionType = "INITIALIZE"
)

// Action is a single cart transition. Only the fields relevant to Type are
// read.
type Action struct {
	Type  ActionType
	ID    string
	Delta int
	Grade string
	Items []Item
}

// Reduce applies action to state and returns the next state. It never
// modifies or aliases state; unknown ids and action types leave the
// contents unchanged.
func Reduce(state []Item, action Action) []Item {
	switch action.Type {
	case ActionInitialize:
		next := clone(action.Items)
		for i := range next {
			next[i].Quantity = clampQuantity(next[i].Quantity)
		}
		return next

	case ActionUpdateQuantity:
		next := clone(state)
		for i := range next {
			if next[i].ID == action.ID {
				next[i].Quantity = addQuantity(next[i].Quantity, action.Delta)
			}
		}
		return next

	case ActionSetGrade:
		next := clone(state)
		for i := range next {
			if next[i].ID == action.ID {
				next[i].Grade = action.Grade
			}
		}
		return next

	case ActionClearCart:
		next := clone(state)
		for i := range next {
			next[i].Quantity = 0
		}
		return next
	}

	return clone(state)
}

func clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// FromCatalogue copies products into cart state with their default grade
// and zero quantity.
func FromCatalogue(products []domain.Product) []Item {
	items := make([]Item, len(products))
	for i, p := range products {
		items[i] = Item{Product: p, Grade: p.DefaultGrade()}
	}
	return items
}

// Filter returns the items whose name or variety contains query,
// ignoring case. An empty query matches everything.
func Filter(items []Item, query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return clone(items)
	}

	out := []Item{}
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) ||
			strings.Contains(strings.ToLower(it.Variety), q) {
			out = append(out, it)
		}
	}
	return out
}

// Machine holds cart state and applies actions to it through Reduce.
// It is not safe for concurrent use; callers serialize access.
type Machine struct {
	items []Item

	// OnDispatch, if set, is called after every applied action.
	OnDispatch func(ActionType)
}

// NewMachine creates a machine initialized with items.
func NewMachine(items []Item) *Machine {
	return &Machine{items: clone(items)}
}

// Dispatch applies action to the current state.
func (m *Machine) Dispatch(action Action) {
	m.items = Reduce(m.items, action)
	if m.OnDispatch != nil {
		m.OnDispatch(action.Type)
	}
}

func (m *Machine) UpdateQuantity(id string, delta int) {
	m.Dispatch(Action{Type: ActionUpdateQuantity, ID: id, Delta: delta})
}

func (m *Machine) SetGrade(id, grade string) {
	m.Dispatch(Action{Type: ActionSetGrade, ID: id, Grade: grade})
}

func (m *Machine) Clear() {
	m.Dispatch(Action{Type: ActionClearCart})
}

func (m *Machine) Initialize(items []Item) {
	m.Dispatch(Action{Type: ActionInitialize, Items: items})
}

// Items returns a copy of the current state.
func (m *Machine) Items() []Item {
	return clone(m.items)
}

// Item looks up a single item by product id.
func (m *Machine) Item(id string) (Item, bool) {
	for _, it := range m.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Summary prices the current state. It is recomputed on every call.
func (m *Machine) Summary() pricing.Summary {
	selections := make([]pricing.Selection, 0, len(m.items))
	for _, it := range m.items {
		selections = append(selections, pricing.Selection{
			Product:  it.Product,
			Grade:    it.Grade,
			Quantity: it.Quantity,
		})
	}
	return pricing.Summarize(selections)
}

// IsEmpty reports whether no item has a positive quantity.
func (m *Machine) IsEmpty() bool {
	for _, it := range m.items {
		if it.Quantity > 0 {
			return false
		}
	}
	return true
}

// Add selects grade (when given) and increases the quantity of productID.
func (m *Machine) Add(ctx context.Context, productID, grade string, quantity int) error {
	if _, ok := m.Item(productID); !ok {
		return domain.NotFound("cart.add", "product", productID)
	}
	if grade != "" {
		m.SetGrade(productID, grade)
	}
	m.UpdateQuantity(productID, quantity)
	return nil
}

// Update selects grade (when given) and sets the quantity of productID.
func (m *Machine) Update(ctx context.Context, productID, grade string, quantity int) error {
	it, ok := m.Item(productID)
	if !ok {
		return domain.NotFound("cart.update", "product", productID)
	}
	if grade != "" {
		m.SetGrade(productID, grade)
	}
	m.UpdateQuantity(productID, quantity-it.Quantity)
	return nil
}

// Remove zeroes the quantity of productID. The machine tracks one grade per
// product, so grade is ignored.
func (m *Machine) Remove(ctx context.Context, productID, grade string) error {
	it, ok := m.Item(productID)
	if !ok {
		return domain.NotFound("cart.remove", "product", productID)
	}
	m.UpdateQuantity(productID, -it.Quantity)
	return nil
}

func (m *Machine) Total() int64 {
	return m.Summary().ItemsTotal
}
