package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, discount_type, discount_value,
			min_order_amount, max_order_amount, start_date, end_date, is_expired, description
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	listAvailableCouponsSQL = `SELECT id, code, discount_type, discount_value,
			min_order_amount, max_order_amount, start_date, end_date, is_expired, description
		FROM coupons
		WHERE NOT is_expired
			AND (start_date IS NULL OR start_date <= $1)
			AND (end_date IS NULL OR end_date >= $1)
		ORDER BY code`

	insertCouponUsageSQL = `INSERT INTO coupon_usages (coupon_id, customer_id, order_id)
		VALUES ($1, $2, $3)`

	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1 WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive). Returns
// coupon.ErrInvalidCoupon when no matching coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// ListAvailable returns the coupons whose validity window contains now
// and that are not flagged expired.
func (r *CouponRepository) ListAvailable(ctx context.Context, now time.Time) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listAvailableCouponsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing available coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// MarkUsed records the coupon's consumption by an order and bumps its
// usage counter, atomically. The (coupon, order) primary key makes the
// call idempotent per order.
func (r *CouponRepository) MarkUsed(ctx context.Context, couponID, customerID, orderID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("marking coupon %q used: %w", couponID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertCouponUsageSQL, couponID, customerID, orderID); err != nil {
		return fmt.Errorf("recording usage of coupon %q: %w", couponID, err)
	}
	if _, err := tx.Exec(ctx, incrementCouponUsesSQL, couponID); err != nil {
		return fmt.Errorf("incrementing uses for coupon %q: %w", couponID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("marking coupon %q used: %w", couponID, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue,
		&c.MinOrderAmount, &c.MaxOrderAmount, &c.StartDate, &c.EndDate,
		&c.IsExpired, &c.Description,
	)
	return c, err
}
