package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount the coupon grants against the given
// order subtotal. Eligibility (dates, minimum order) is the validator's
// concern; Apply only computes the amount.
func Apply(c *Coupon, subtotal decimal.Decimal) (decimal.Decimal, error) {
	switch c.DiscountType {
	case DiscountPercentage:
		return applyPercentage(c, subtotal), nil
	case DiscountFixed:
		return applyFixed(c, subtotal), nil
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.DiscountType)
	}
}

// applyPercentage computes subtotal * value / 100, capped at the
// coupon's MaxOrderAmount when one is set.
func applyPercentage(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	amount := subtotal.Mul(c.DiscountValue).Div(hundred)
	if c.MaxOrderAmount.IsPositive() && amount.GreaterThan(c.MaxOrderAmount) {
		amount = c.MaxOrderAmount
	}
	return floorAtZero(amount).Round(2)
}

// applyFixed grants the flat value, never exceeding the subtotal.
func applyFixed(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	amount := decimal.Min(c.DiscountValue, subtotal)
	return floorAtZero(amount).Round(2)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
