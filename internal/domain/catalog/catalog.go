package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the publication state of a product, category, or brand.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// Sentinel errors for catalog lookups and stock mutation.
var (
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is a catalog item together with the state of its category and
// brand. A product is only purchasable while all three are active.
type Product struct {
	ID             string
	Name           string
	Status         Status
	CategoryStatus Status
	BrandStatus    Status
}

// Variant is a purchasable variation of a product. DiscountPrice is nil
// when the variant has no markdown.
type Variant struct {
	ID            string
	Color         string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Stock         int
	IsBlocked     bool
}

// EffectivePrice returns the unit price a customer pays for the variant:
// the discount price when one is set and lower than the list price,
// otherwise the list price.
func (v Variant) EffectivePrice() decimal.Decimal {
	if v.DiscountPrice != nil && v.DiscountPrice.LessThan(v.Price) {
		return *v.DiscountPrice
	}
	return v.Price
}

// StockStore mutates per-variant stock levels.
//
// Decrement must be atomic with respect to the current stock level: it
// fails with ErrInsufficientStock instead of driving stock negative.
// Restore is the compensating operation used to undo decrements when a
// multi-line batch aborts partway through.
type StockStore interface {
	Decrement(ctx context.Context, productID, variantID string, qty int) error
	Restore(ctx context.Context, productID, variantID string, qty int) error
}
