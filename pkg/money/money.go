// Package money holds the tax arithmetic shared by invoicing and checkout.
// All billed prices are tax inclusive; base and tax figures are derived from
// them with half-up rounding to two decimal places.
package money

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// BasePrice strips the tax component from a tax-inclusive unit price.
func BasePrice(priceInclTax, taxRatePercent decimal.Decimal) decimal.Decimal {
	multiplier := one.Add(taxRatePercent.Div(hundred))
	return priceInclTax.DivRound(multiplier, 2)
}

// TaxAmount is the per-unit tax share of a tax-inclusive price.
func TaxAmount(priceInclTax, taxRatePercent decimal.Decimal) decimal.Decimal {
	return priceInclTax.Sub(BasePrice(priceInclTax, taxRatePercent))
}

// Line captures the rounded amounts for one invoice line.
type Line struct {
	BaseAmount  decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// ComputeLine derives the rounded base, tax, and inclusive amounts for a
// quantity of units priced tax-inclusively. Each figure is rounded before the
// caller sums lines, so invoice totals always equal the sum of their lines.
func ComputeLine(priceInclTax, taxRatePercent, qty decimal.Decimal) Line {
	base := BasePrice(priceInclTax, taxRatePercent)
	unitTax := priceInclTax.Sub(base)
	return Line{
		BaseAmount:  base.Mul(qty).Round(2),
		TaxAmount:   unitTax.Mul(qty).Round(2),
		TotalAmount: priceInclTax.Mul(qty).Round(2),
	}
}
