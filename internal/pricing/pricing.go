// Package pricing turns cart lines and sale-level rates into a priced breakdown.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
)

// Line is the priced view of a cart line.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns quantity × unit price.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Breakdown is the immutable result of pricing a cart. Amounts keep full
// precision; round them only when displaying.
type Breakdown struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
}

// TaxableBase is the post-discount amount tax is charged on.
func (b Breakdown) TaxableBase() decimal.Decimal {
	return b.Subtotal.Sub(b.DiscountAmount)
}

// RateError reports a discount or tax percentage outside [0, 100].
type RateError struct {
	Field string
	Value decimal.Decimal
}

func (e *RateError) Error() string {
	return fmt.Sprintf("%s must be between 0 and 100, got %s", e.Field, e.Value)
}

// ValidateRate checks that a percentage lies in [0, 100].
func ValidateRate(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return &RateError{Field: field, Value: pct}
	}
	return nil
}

// Price computes the breakdown for lines at the given sale-level rates.
// Tax is charged on the discounted base, never on the raw subtotal.
func Price(lines []Line, discountPercent, taxPercent decimal.Decimal) (Breakdown, error) {
	if err := ValidateRate("discount_percent", discountPercent); err != nil {
		return Breakdown{}, err
	}
	if err := ValidateRate("tax_percent", taxPercent); err != nil {
		return Breakdown{}, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}

	// Shift(-2) divides by 100 exactly; Div would truncate at DivisionPrecision.
	discount := subtotal.Mul(discountPercent).Shift(-2)
	base := subtotal.Sub(discount)
	tax := base.Mul(taxPercent).Shift(-2)

	return Breakdown{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discount,
		TaxPercent:      taxPercent,
		TaxAmount:       tax,
		GrandTotal:      base.Add(tax),
	}, nil
}

// Display formats an amount to two decimal places.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
