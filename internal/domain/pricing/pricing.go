// Package pricing computes order totals from cart lines. All functions
// are pure; totals must be recomputed whenever cart lines or coupon
// state change.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/cart"
)

// Default shipping rule: orders above the threshold ship free, anything
// at or below it pays the flat fee.
var (
	DefaultShippingThreshold = decimal.NewFromInt(500)
	DefaultShippingFee       = decimal.NewFromInt(50)
)

// Totals holds the computed price breakdown for a cart.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Options overrides the default shipping rule.
type Options struct {
	ShippingThreshold decimal.Decimal
	ShippingFee       decimal.Decimal
}

// ComputeTotals sums the effective line prices and applies the shipping
// rule. Shipping is free only when the subtotal strictly exceeds the
// threshold.
func ComputeTotals(lines []cart.Line, opts Options) Totals {
	if opts.ShippingThreshold.IsZero() {
		opts.ShippingThreshold = DefaultShippingThreshold
	}
	if opts.ShippingFee.IsZero() {
		opts.ShippingFee = DefaultShippingFee
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		subtotal = subtotal.Add(line.Variant.EffectivePrice().Mul(qty))
	}

	shipping := opts.ShippingFee
	if subtotal.GreaterThan(opts.ShippingThreshold) {
		shipping = decimal.Zero
	}
	if len(lines) == 0 {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal.Round(2),
		Shipping: shipping,
		Total:    subtotal.Add(shipping).Round(2),
	}
}

// ApplyDiscount subtracts a coupon discount from the totals, flooring
// the grand total at zero.
func ApplyDiscount(t Totals, discount decimal.Decimal) Totals {
	total := t.Subtotal.Add(t.Shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	t.Total = total.Round(2)
	return t
}
