package checkout

import (
	"github.com/go-faster/errors"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/coupon"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/order"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/payment"
)

// ErrOperationInFlight is returned when the same customer action is
// already executing; the duplicate is dropped, not queued.
var ErrOperationInFlight = errors.New("operation already in progress")

// Kind buckets every checkout error for the API boundary.
type Kind int

const (
	// KindNetwork covers collaborator failures with no more specific bucket.
	KindNetwork Kind = iota
	// KindValidation covers missing address, bad payment method, empty cart.
	KindValidation
	// KindCouponInvalid covers unknown, expired, and below-minimum coupons.
	KindCouponInvalid
	// KindOutOfStock covers inventory guard failures and late stock loss.
	KindOutOfStock
	// KindPaymentFailed covers gateway verification and widget failures.
	KindPaymentFailed
)

// Classify maps a checkout error to its taxonomy bucket.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrNoAddress),
		errors.Is(err, order.ErrInvalidMethod),
		errors.Is(err, order.ErrCODNotAllowed),
		errors.Is(err, ErrOperationInFlight):
		return KindValidation
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrBelowMinOrder):
		return KindCouponInvalid
	case errors.Is(err, order.ErrOutOfStock):
		return KindOutOfStock
	case errors.Is(err, payment.ErrVerificationFailed),
		errors.Is(err, payment.ErrWidgetDismissed),
		errors.Is(err, payment.ErrPaymentInFlight),
		errors.Is(err, payment.ErrOrderNotRetryable):
		return KindPaymentFailed
	default:
		return KindNetwork
	}
}

// PaymentStartError reports that the order was created but the gateway
// handshake could not begin. The order id is carried so the client can
// land on the retry screen instead of losing the order.
type PaymentStartError struct {
	OrderID string
	Err     error
}

func (e *PaymentStartError) Error() string {
	return "start payment for order " + e.OrderID + ": " + e.Err.Error()
}

func (e *PaymentStartError) Unwrap() error { return e.Err }
