package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates a coupon code against an order subtotal and
// returns the computed discount.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupons from a
// Repository and applying them via Apply.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the coupon for the given code, checks the expiry
// flag, the validity window, and the minimum order amount, then computes
// the discount. Validation never mutates coupon state; marking a coupon
// used happens separately, after the order is durably created.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error) {
	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()

	if c.IsExpired {
		return nil, ErrCouponExpired
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return nil, ErrCouponExpired
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return nil, ErrCouponExpired
	}

	if subtotal.LessThan(c.MinOrderAmount) {
		return nil, ErrBelowMinOrder
	}

	amount, err := Apply(c, subtotal)
	if err != nil {
		return nil, err
	}

	return &Discount{Coupon: *c, Amount: amount}, nil
}
