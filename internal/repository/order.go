package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
			(id, customer_id, address_id, payment_method, status, subtotal, shipping, discount, total, coupon_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, variant_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	getOrderByIDSQL = `SELECT id, customer_id, address_id, payment_method, status,
			subtotal, shipping, discount, total, COALESCE(coupon_id, ''), created_at
		FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT product_id, variant_id, quantity, unit_price
		FROM order_items WHERE order_id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.AddressID, o.Method, o.Status,
		o.Subtotal, o.Shipping, o.Discount, o.Total, o.CouponID,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, createOrderItemSQL,
			o.ID, it.ProductID, it.VariantID, it.Quantity, it.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("creating items for order %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order with its items. Returns
// order.ErrNotFound for unknown ids.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus moves the order to the given lifecycle status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.AddressID, &o.Method, &o.Status,
		&o.Subtotal, &o.Shipping, &o.Discount, &o.Total, &o.CouponID, &o.CreatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it  order.Item
		qty int32
	)
	err := row.Scan(&it.ProductID, &it.VariantID, &qty, &it.UnitPrice)
	it.Quantity = int(qty)
	return it, err
}
