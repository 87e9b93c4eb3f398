// Package inventory re-validates cart lines immediately before order
// submission. Stock and publication status can change between cart
// add-time and checkout-time, so a stale cart must be caught here.
package inventory

import (
	"fmt"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/cart"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/catalog"
)

// Result reports the outcome of an availability check. When OK is
// false, Reason is a human-readable explanation and Line points at the
// first offending cart line.
type Result struct {
	OK     bool
	Reason string
	Line   *cart.Line
}

// Guard checks that every cart line is still purchasable.
type Guard struct{}

// NewGuard creates an inventory Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Check walks the lines in cart order and returns the first failure:
// product inactive, category blocked, brand blocked, variant blocked,
// or insufficient stock. A passing result means all lines were
// purchasable at the moment of the check; the window between this check
// and the stock decrement at submit remains a known race.
func (g *Guard) Check(lines []cart.Line) Result {
	for i := range lines {
		line := &lines[i]

		if line.Product.Status != catalog.StatusActive {
			return fail(line, fmt.Sprintf("%s is no longer available", line.Product.Name))
		}
		if line.Product.CategoryStatus == catalog.StatusBlocked {
			return fail(line, fmt.Sprintf("the category of %s is currently unavailable", line.Product.Name))
		}
		if line.Product.BrandStatus == catalog.StatusBlocked {
			return fail(line, fmt.Sprintf("the brand of %s is currently unavailable", line.Product.Name))
		}
		if line.Variant.IsBlocked {
			return fail(line, fmt.Sprintf("the selected variant of %s is currently unavailable", line.Product.Name))
		}
		if line.Variant.Stock < line.Quantity {
			return fail(line, fmt.Sprintf("only %d left in stock for %s (%s)",
				line.Variant.Stock, line.Product.Name, line.Variant.Color))
		}
	}
	return Result{OK: true}
}

func fail(line *cart.Line, reason string) Result {
	return Result{OK: false, Reason: reason, Line: line}
}
