package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the order subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a flat amount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is not found.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is flagged expired or
	// outside its valid time window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrBelowMinOrder is returned when the order subtotal does not meet
	// the coupon's minimum order amount.
	ErrBelowMinOrder = errors.New("order amount below coupon minimum")
)

// Coupon defines a discount code and its eligibility constraints.
// MaxOrderAmount caps the computed discount for percentage coupons; a
// zero cap means uncapped.
type Coupon struct {
	ID             string
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxOrderAmount decimal.Decimal
	StartDate      *time.Time
	EndDate        *time.Time
	IsExpired      bool
	Description    string
}

// Discount is the result of a successful validation.
type Discount struct {
	Coupon Coupon
	Amount decimal.Decimal
}

// Repository provides lookup and lifecycle operations for coupons.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	ListAvailable(ctx context.Context, now time.Time) ([]Coupon, error)
	// MarkUsed records that a coupon was consumed by an order. It is
	// called exactly once, only after the order is durably created.
	MarkUsed(ctx context.Context, couponID, customerID, orderID string) error
}
