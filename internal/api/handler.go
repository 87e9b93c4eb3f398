// Package api exposes the checkout flow over HTTP with JSON bodies.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Nandusuresh61/fabrico-checkout/internal/checkout"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/address"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/auth"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/coupon"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/order"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/payment"
)

// CheckoutService is the slice of the checkout controller the HTTP
// layer depends on.
type CheckoutService interface {
	Addresses(ctx context.Context, customerID string) ([]address.Address, error)
	AvailableCoupons(ctx context.Context) ([]coupon.Coupon, error)
	ApplyCoupon(ctx context.Context, customerID, code string) (*checkout.Quote, error)
	PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*checkout.PlaceOrderResult, error)
	CompletePayment(ctx context.Context, orderID, gatewayPaymentID, gatewayOrderID, signature string) error
	DismissPayment(ctx context.Context, orderID string) error
	RetryPayment(ctx context.Context, orderID, customerEmail string) (*payment.CheckoutIntent, error)
	Order(ctx context.Context, orderID string) (*order.Order, error)
}

var _ CheckoutService = (*checkout.Controller)(nil)

// Handler serves the checkout API, delegating business logic to the
// injected service. API keys are stored as HMAC-SHA256 hashes computed
// with pepper.
type Handler struct {
	svc     CheckoutService
	apikeys auth.Repository
	pepper  []byte
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(svc CheckoutService, apikeys auth.Repository, pepper []byte) *Handler {
	return &Handler{svc: svc, apikeys: apikeys, pepper: pepper}
}

// Routes mounts the checkout API onto a chi router. Every route sits
// behind API-key authentication.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.RequireAPIKey)

	r.Get("/addresses", h.ListAddresses)
	r.Get("/coupons", h.ListCoupons)
	r.Post("/checkout/coupon", h.ValidateCoupon)
	r.Post("/checkout/order", h.PlaceOrder)
	r.Post("/payment/verify", h.VerifyPayment)
	r.Post("/payment/dismiss", h.DismissPayment)
	r.Post("/payment/{orderID}/retry", h.RetryPayment)
	r.Get("/orders/{orderID}", h.GetOrder)

	return r
}

// customerID extracts the customer identity set by the authenticating
// frontend layer. Empty means the request cannot act on a cart.
func customerID(r *http.Request) string {
	return r.Header.Get("X-Customer-ID")
}
