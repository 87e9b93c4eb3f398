package cart

import (
	"context"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/catalog"
)

// Line is one product variant plus the quantity the customer intends to
// buy. Lines are owned by the cart collaborator and read-only here;
// quantity is always >= 1.
type Line struct {
	Product  catalog.Product
	Variant  catalog.Variant
	Quantity int
}

// Repository provides access to a customer's cart.
type Repository interface {
	Lines(ctx context.Context, customerID string) ([]Line, error)
	Clear(ctx context.Context, customerID string) error
}
