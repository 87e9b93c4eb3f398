package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/cart"
)

const (
	// Cart lines carry the live catalog state of everything the guard
	// inspects, so a single read is enough to price and validate a cart.
	listCartLinesSQL = `SELECT
			p.id, p.name, p.status, c.status, b.status,
			v.id, v.color, v.price, v.discount_price, v.stock, v.is_blocked,
			cl.quantity
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		JOIN categories c ON c.id = p.category_id
		JOIN brands b ON b.id = p.brand_id
		JOIN variants v ON v.id = cl.variant_id
		WHERE cl.customer_id = $1
		ORDER BY cl.added_at`

	clearCartSQL = `DELETE FROM cart_lines WHERE customer_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Lines returns the customer's cart in insertion order, each line joined
// with the current product, category, brand, and variant state.
func (r *CartRepository) Lines(ctx context.Context, customerID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartLinesSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines for %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// Clear removes every line from the customer's cart.
func (r *CartRepository) Clear(ctx context.Context, customerID string) error {
	_, err := r.pool.Exec(ctx, clearCartSQL, customerID)
	if err != nil {
		return fmt.Errorf("clearing cart for %q: %w", customerID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var (
		l        cart.Line
		quantity int32
	)
	err := row.Scan(
		&l.Product.ID, &l.Product.Name, &l.Product.Status, &l.Product.CategoryStatus, &l.Product.BrandStatus,
		&l.Variant.ID, &l.Variant.Color, &l.Variant.Price, &l.Variant.DiscountPrice, &l.Variant.Stock, &l.Variant.IsBlocked,
		&quantity,
	)
	l.Quantity = int(quantity)
	return l, err
}
