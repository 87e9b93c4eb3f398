package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/catalog"
)

const (
	decrementStockSQL = `UPDATE variants SET stock = stock - $3
		WHERE id = $2 AND product_id = $1 AND stock >= $3`

	restoreStockSQL = `UPDATE variants SET stock = stock + $3
		WHERE id = $2 AND product_id = $1`
)

var _ catalog.StockStore = (*StockRepository)(nil)

// StockRepository implements catalog.StockStore backed by PostgreSQL.
// Decrement relies on a conditional UPDATE so concurrent checkouts can
// never drive stock negative.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository returns a StockRepository that uses the given pool.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// Decrement atomically subtracts qty from the variant's stock. It fails
// with catalog.ErrInsufficientStock when the remaining stock is lower
// than qty.
func (r *StockRepository) Decrement(ctx context.Context, productID, variantID string, qty int) error {
	tag, err := r.pool.Exec(ctx, decrementStockSQL, productID, variantID, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock for variant %q: %w", variantID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrInsufficientStock
	}
	return nil
}

// Restore adds qty back to the variant's stock, compensating a prior
// decrement.
func (r *StockRepository) Restore(ctx context.Context, productID, variantID string, qty int) error {
	_, err := r.pool.Exec(ctx, restoreStockSQL, productID, variantID, qty)
	if err != nil {
		return fmt.Errorf("restoring stock for variant %q: %w", variantID, err)
	}
	return nil
}
