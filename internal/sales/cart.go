package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shelfpos/internal/pricing"
)

// CartLine is one desired purchase. UnitPrice is the price captured when the
// item was added and is not re-read from the catalog at checkout.
type CartLine struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Total returns quantity × unit price.
func (l CartLine) Total() decimal.Decimal {
	return pricing.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice}.Total()
}

// Cart is an immutable, ordered set of lines with at most one positive line
// per item. A line with a non-positive quantity is never merged with another,
// so it survives until the engine rejects it. Every mutating method returns a
// new Cart and leaves the receiver untouched.
type Cart struct {
	lines []CartLine
}

// NewCart builds a cart from lines, merging repeated items into the first
// line for that item.
func NewCart(lines ...CartLine) Cart {
	var c Cart
	for _, l := range lines {
		c = c.Add(l)
	}
	return c
}

// Add appends line, or increments the quantity of the existing line for the
// same item. The existing line keeps its original price snapshot. Lines with
// a non-positive quantity are appended as given.
func (c Cart) Add(line CartLine) Cart {
	out := c.clone()
	if line.Quantity <= 0 {
		out.lines = append(out.lines, line)
		return out
	}
	for i := range out.lines {
		if out.lines[i].ItemID == line.ItemID && out.lines[i].Quantity > 0 {
			out.lines[i].Quantity += line.Quantity
			return out
		}
	}
	out.lines = append(out.lines, line)
	return out
}

// SetQuantity replaces the quantity of the line for id. Unknown ids are
// ignored. A non-positive qty makes the cart invalid; use Remove to drop a line.
func (c Cart) SetQuantity(id uuid.UUID, qty int) Cart {
	out := c.clone()
	for i := range out.lines {
		if out.lines[i].ItemID == id {
			out.lines[i].Quantity = qty
		}
	}
	return out
}

// Remove drops the line for id.
func (c Cart) Remove(id uuid.UUID) Cart {
	out := Cart{lines: make([]CartLine, 0, len(c.lines))}
	for _, l := range c.lines {
		if l.ItemID != id {
			out.lines = append(out.lines, l)
		}
	}
	return out
}

// Lines returns a copy of the cart's lines in insertion order.
func (c Cart) Lines() []CartLine {
	return c.clone().lines
}

// Validate reports the first line, in cart order, whose quantity is not
// positive.
func (c Cart) Validate() error {
	for _, l := range c.lines {
		if l.Quantity <= 0 {
			return &InvalidQuantityError{ItemID: l.ItemID, Quantity: l.Quantity}
		}
	}
	return nil
}

func (c Cart) Len() int {
	return len(c.lines)
}

func (c Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// PricingLines adapts the cart for the pricing calculator.
func (c Cart) PricingLines() []pricing.Line {
	out := make([]pricing.Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = pricing.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return out
}

func (c Cart) clone() Cart {
	if c.lines == nil {
		return Cart{}
	}
	lines := make([]CartLine, len(c.lines))
	copy(lines, c.lines)
	return Cart{lines: lines}
}
