package orders

import (
	"github.com/ariefcatur/icebay-pos/internal/catalog"
)

// Line is one entry of a cart. UnitPriceCents is taken from the catalog
// when the line is created and is not re-read afterwards.
type Line struct {
	VarietyID      string           `json:"variety_id"`
	Name           string           `json:"name"`
	Category       catalog.Category `json:"category"`
	Quantity       int              `json:"qty"`
	UnitPriceCents int64            `json:"unit_price_cents"`
	LineTotalCents int64            `json:"line_total_cents"`
}

// Cart holds the lines an operator is composing. It holds at most one line
// per variety and every line has a positive quantity. EditingOrderID is set
// while an UNPAID order is being edited.
type Cart struct {
	Lines          []Line `json:"lines"`
	EditingOrderID string `json:"editing_order_id,omitempty"`
}

func (c *Cart) Len() int { return len(c.Lines) }

func (c *Cart) index(varietyID string) int {
	for i := range c.Lines {
		if c.Lines[i].VarietyID == varietyID {
			return i
		}
	}
	return -1
}

// Quantity returns how many units of a variety the cart holds.
func (c *Cart) Quantity(varietyID string) int {
	if i := c.index(varietyID); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

// AddItem adds qty units of v (1 when qty is not positive). Adding a
// variety already in the cart increments its line.
func (c *Cart) AddItem(v catalog.Variety, qty int) error {
	if qty <= 0 {
		qty = 1
	}
	have := c.Quantity(v.ID)
	if v.Stock-have < qty {
		return &InsufficientStockError{VarietyID: v.ID, Name: v.Name, Requested: have + qty, Available: v.Stock}
	}

	if i := c.index(v.ID); i >= 0 {
		c.Lines[i].Quantity += qty
		c.Lines[i].LineTotalCents = int64(c.Lines[i].Quantity) * c.Lines[i].UnitPriceCents
		return nil
	}
	c.Lines = append(c.Lines, Line{
		VarietyID:      v.ID,
		Name:           v.Name,
		Category:       v.Category,
		Quantity:       qty,
		UnitPriceCents: v.PriceCents,
		LineTotalCents: int64(qty) * v.PriceCents,
	})
	return nil
}

// SetQuantity sets the line for v to qty, removing it when qty <= 0. Only
// v.Stock is consulted; the line keeps its original unit price.
func (c *Cart) SetQuantity(v catalog.Variety, qty int) error {
	if qty <= 0 {
		c.RemoveItem(v.ID)
		return nil
	}
	i := c.index(v.ID)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty > v.Stock {
		return &InsufficientStockError{VarietyID: v.ID, Name: c.Lines[i].Name, Requested: qty, Available: v.Stock}
	}
	c.Lines[i].Quantity = qty
	c.Lines[i].LineTotalCents = int64(qty) * c.Lines[i].UnitPriceCents
	return nil
}

func (c *Cart) RemoveItem(varietyID string) {
	if i := c.index(varietyID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.LineTotalCents
	}
	return total
}

// Clear empties the cart and drops the editing marker.
func (c *Cart) Clear() {
	c.Lines = nil
	c.EditingOrderID = ""
}

// LoadFrom replaces the cart with a copy of an UNPAID order's items and
// marks that order as being edited.
func (c *Cart) LoadFrom(o Order) error {
	if o.Status == StatusPaid {
		return ErrOrderLocked
	}
	lines := make([]Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, Line(it))
	}
	c.Lines = lines
	c.EditingOrderID = o.ID
	return nil
}

func (c *Cart) snapshot() []OrderItem {
	items := make([]OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, OrderItem(l))
	}
	return items
}
