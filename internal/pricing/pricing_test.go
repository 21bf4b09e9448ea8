package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPrice_ExampleScenario(t *testing.T) {
	lines := []Line{
		{Quantity: 3, UnitPrice: dec("2.00")},
		{Quantity: 1, UnitPrice: dec("10.00")},
	}

	b, err := Price(lines, dec("10"), dec("5"))
	require.NoError(t, err)

	assert.True(t, b.Subtotal.Equal(dec("16.00")), "subtotal %s", b.Subtotal)
	assert.True(t, b.DiscountAmount.Equal(dec("1.60")), "discount %s", b.DiscountAmount)
	assert.True(t, b.TaxableBase().Equal(dec("14.40")), "base %s", b.TaxableBase())
	assert.True(t, b.TaxAmount.Equal(dec("0.72")), "tax %s", b.TaxAmount)
	assert.True(t, b.GrandTotal.Equal(dec("15.12")), "total %s", b.GrandTotal)
	assert.Equal(t, "15.12", Display(b.GrandTotal))
}

func TestPrice_TaxOnDiscountedBase(t *testing.T) {
	b, err := Price([]Line{{Quantity: 1, UnitPrice: dec("100")}}, dec("50"), dec("10"))
	require.NoError(t, err)

	// 10% of 50, not 10% of 100.
	assert.True(t, b.TaxAmount.Equal(dec("5")))
	assert.True(t, b.GrandTotal.Equal(dec("55")))
}

func TestPrice_KeepsFullPrecision(t *testing.T) {
	b, err := Price([]Line{{Quantity: 1, UnitPrice: dec("0.99")}}, dec("33.3"), dec("7.25"))
	require.NoError(t, err)

	assert.True(t, b.DiscountAmount.Equal(dec("0.32967")))
	assert.True(t, b.TaxAmount.Equal(dec("0.047873925")))
	assert.Equal(t, "0.71", Display(b.GrandTotal))
}

func TestPrice_EmptyCartIsZero(t *testing.T) {
	b, err := Price(nil, dec("10"), dec("5"))
	require.NoError(t, err)
	assert.True(t, b.GrandTotal.IsZero())
}

func TestPrice_RejectsOutOfRangeRates(t *testing.T) {
	lines := []Line{{Quantity: 1, UnitPrice: dec("1")}}

	_, err := Price(lines, dec("-1"), decimal.Zero)
	var rateErr *RateError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "discount_percent", rateErr.Field)

	_, err = Price(lines, decimal.Zero, dec("100.01"))
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "tax_percent", rateErr.Field)

	_, err = Price(lines, dec("100"), dec("100"))
	assert.NoError(t, err)
}

func genLines(t *rapid.T) []Line {
	n := rapid.IntRange(0, 8).Draw(t, "lines")
	lines := make([]Line, n)
	for i := range lines {
		cents := rapid.Int64Range(0, 1_000_000).Draw(t, "cents")
		lines[i] = Line{
			Quantity:  rapid.IntRange(1, 500).Draw(t, "qty"),
			UnitPrice: decimal.New(cents, -2),
		}
	}
	return lines
}

func genRate(t *rapid.T, label string) decimal.Decimal {
	return decimal.New(rapid.Int64Range(0, 10000).Draw(t, label), -2)
}

func TestPrice_GrandTotalIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := genLines(t)
		disc, tax := genRate(t, "discount"), genRate(t, "tax")

		b, err := Price(lines, disc, tax)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		base := b.Subtotal.Sub(b.DiscountAmount)
		if !b.TaxAmount.Equal(base.Mul(tax).Shift(-2)) {
			t.Fatalf("tax %s not computed on discounted base %s", b.TaxAmount, base)
		}
		if !b.GrandTotal.Equal(b.Subtotal.Sub(b.DiscountAmount).Add(b.TaxAmount)) {
			t.Fatalf("grand total %s != subtotal - discount + tax", b.GrandTotal)
		}
		if b.GrandTotal.IsNegative() {
			t.Fatalf("negative grand total %s", b.GrandTotal)
		}
	})
}

func TestPrice_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := genLines(t)
		disc, tax := genRate(t, "discount"), genRate(t, "tax")

		first, err := Price(lines, disc, tax)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, _ := Price(lines, disc, tax)

		if first.GrandTotal.String() != second.GrandTotal.String() ||
			first.TaxAmount.String() != second.TaxAmount.String() ||
			first.DiscountAmount.String() != second.DiscountAmount.String() ||
			first.Subtotal.String() != second.Subtotal.String() {
			t.Fatalf("pricing not deterministic: %+v vs %+v", first, second)
		}
	})
}
