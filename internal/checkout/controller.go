// Package checkout sequences pricing, coupon validation, the inventory
// guard, order assembly, and the payment handshake into the single
// place-order action.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/address"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/cart"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/catalog"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/coupon"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/inventory"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/order"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/payment"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/pricing"
)

// Controller owns the place-order action. It is constructed with
// injected collaborator interfaces; selection state (address, payment
// method, coupon) is passed explicitly per request rather than held as
// ambient state.
type Controller struct {
	carts        cart.Repository
	addresses    address.Repository
	coupons      coupon.Repository
	validator    coupon.Validator
	guard        *inventory.Guard
	assembler    *order.Assembler
	orders       order.Repository
	orchestrator *payment.Orchestrator
	lg           *zap.Logger
	inflight     *inflightSet
}

// NewController wires the checkout flow. The payment orchestrator is
// built here so its success/failure continuations close over the cart
// and order collaborators the controller already owns.
func NewController(
	carts cart.Repository,
	addresses address.Repository,
	coupons coupon.Repository,
	validator coupon.Validator,
	stock catalog.StockStore,
	orders order.Repository,
	gateway payment.Gateway,
	sessions payment.Repository,
	lg *zap.Logger,
) *Controller {
	c := &Controller{
		carts:     carts,
		addresses: addresses,
		coupons:   coupons,
		validator: validator,
		guard:     inventory.NewGuard(),
		assembler: order.NewAssembler(stock, orders),
		orders:    orders,
		lg:        lg,
		inflight:  newInflightSet(),
	}
	c.orchestrator = payment.NewOrchestrator(gateway, sessions, orders, payment.Continuations{
		OnSuccess: c.onPaymentSuccess,
		OnFailure: c.onPaymentFailure,
	}, lg)
	return c
}

// Quote is the priced view of a customer's cart with an optional coupon
// applied.
type Quote struct {
	Totals   pricing.Totals
	Discount decimal.Decimal
	Coupon   *coupon.Coupon
}

// PlaceOrderRequest carries the customer's checkout selections.
type PlaceOrderRequest struct {
	CustomerID    string
	CustomerEmail string
	AddressID     string
	Method        order.Method
	CouponCode    string
}

// PlaceOrderResult is the outcome of a successful place-order action.
// Payment is nil for COD orders and carries the widget payload for
// online ones.
type PlaceOrderResult struct {
	Order   *order.Order
	Payment *payment.CheckoutIntent
}

// Addresses returns the customer's address book.
func (c *Controller) Addresses(ctx context.Context, customerID string) ([]address.Address, error) {
	return c.addresses.ListByCustomer(ctx, customerID)
}

// AvailableCoupons returns coupons currently inside their validity
// window.
func (c *Controller) AvailableCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	return c.coupons.ListAvailable(ctx, time.Now())
}

// ApplyCoupon validates a code against the customer's current cart and
// returns the discounted quote. Removing a coupon is simply quoting
// without a code; a coupon already marked used server-side stays used.
func (c *Controller) ApplyCoupon(ctx context.Context, customerID, code string) (*Quote, error) {
	key := "coupon:" + customerID
	if !c.inflight.begin(key) {
		return nil, ErrOperationInFlight
	}
	defer c.inflight.end(key)

	return c.quote(ctx, customerID, code)
}

// IsInFlight reports whether the given operation id is currently
// executing. Ids follow the "<kind>:<customer>" convention used
// internally.
func (c *Controller) IsInFlight(id string) bool {
	return c.inflight.has(id)
}

// PlaceOrder runs the checkout sequence:
//
//  1. selection guard (address, payment method legal for the total)
//  2. inventory guard over the live cart lines
//  3. submit: joint-settlement stock decrement + order create
//  4. mark the coupon used (only now, never before the order exists)
//  5. COD: clear cart and finish; online: start the gateway handshake
//
// No step is skipped or reordered; inventory is re-checked here even
// though the cart was validated at add-time.
func (c *Controller) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	key := "place:" + req.CustomerID
	if !c.inflight.begin(key) {
		return nil, ErrOperationInFlight
	}
	defer c.inflight.end(key)

	lines, err := c.carts.Lines(ctx, req.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(lines) == 0 {
		return nil, order.ErrEmptyItems
	}

	if req.AddressID == "" {
		return nil, order.ErrNoAddress
	}
	addr, err := c.addresses.GetByID(ctx, req.CustomerID, req.AddressID)
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return nil, order.ErrNoAddress
		}
		return nil, errors.Wrap(err, "load address")
	}

	totals := pricing.ComputeTotals(lines, pricing.Options{})

	discount := decimal.Zero
	couponID := ""
	if req.CouponCode != "" {
		d, err := c.validator.Validate(ctx, req.CouponCode, totals.Subtotal)
		if err != nil {
			return nil, err
		}
		discount = d.Amount
		couponID = d.Coupon.ID
	}

	// Selection guard: BuildDraft re-validates the address and the COD
	// ceiling against the final total even when the client already
	// filtered the option.
	draft, err := c.assembler.BuildDraft(lines, req.CustomerID, req.AddressID, req.Method, totals, discount, couponID)
	if err != nil {
		return nil, err
	}

	// Mandatory pre-submit availability pass over the live lines.
	if res := c.guard.Check(lines); !res.OK {
		return nil, errors.Wrap(order.ErrOutOfStock, res.Reason)
	}

	ord, err := c.assembler.Submit(ctx, draft)
	if err != nil {
		return nil, err
	}

	// The order is durably created; only now may the coupon be consumed.
	if couponID != "" {
		if err := c.coupons.MarkUsed(ctx, couponID, req.CustomerID, ord.ID); err != nil {
			c.lg.Error("mark coupon used failed",
				zap.String("coupon_id", couponID),
				zap.String("order_id", ord.ID),
				zap.Error(err),
			)
		}
	}

	if ord.Method == order.MethodCOD {
		if err := c.carts.Clear(ctx, req.CustomerID); err != nil {
			c.lg.Error("clear cart failed", zap.String("order_id", ord.ID), zap.Error(err))
		}
		c.lg.Info("order placed",
			zap.String("order_id", ord.ID),
			zap.String("method", string(ord.Method)),
		)
		return &PlaceOrderResult{Order: ord}, nil
	}

	intent, err := c.orchestrator.Start(ctx, ord, payment.Contact{
		Name:  addr.Name,
		Email: req.CustomerEmail,
		Phone: addr.Phone,
	})
	if err != nil {
		// The order survives as pending-payment; surface its id so the
		// client can reach the retry screen.
		return nil, &PaymentStartError{OrderID: ord.ID, Err: err}
	}

	return &PlaceOrderResult{Order: ord, Payment: intent}, nil
}

// CompletePayment handles the widget's completion callback.
func (c *Controller) CompletePayment(ctx context.Context, orderID, gatewayPaymentID, gatewayOrderID, signature string) error {
	return c.orchestrator.HandleCompletion(ctx, orderID, gatewayPaymentID, gatewayOrderID, signature)
}

// DismissPayment handles the user closing the widget.
func (c *Controller) DismissPayment(ctx context.Context, orderID string) error {
	return c.orchestrator.HandleDismiss(ctx, orderID)
}

// RetryPayment starts a fresh gateway handshake for a pending order.
// The email prefills the widget again, as the original attempt did.
func (c *Controller) RetryPayment(ctx context.Context, orderID, customerEmail string) (*payment.CheckoutIntent, error) {
	ord, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	addr, err := c.addresses.GetByID(ctx, ord.CustomerID, ord.AddressID)
	if err != nil {
		return nil, errors.Wrap(err, "load address")
	}
	return c.orchestrator.Retry(ctx, orderID, payment.Contact{
		Name:  addr.Name,
		Email: customerEmail,
		Phone: addr.Phone,
	})
}

// Order returns a placed order for the confirmation and retry screens.
func (c *Controller) Order(ctx context.Context, orderID string) (*order.Order, error) {
	return c.orders.GetByID(ctx, orderID)
}

func (c *Controller) quote(ctx context.Context, customerID, code string) (*Quote, error) {
	lines, err := c.carts.Lines(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	totals := pricing.ComputeTotals(lines, pricing.Options{})
	q := &Quote{Totals: totals, Discount: decimal.Zero}

	if code != "" {
		d, err := c.validator.Validate(ctx, code, totals.Subtotal)
		if err != nil {
			return nil, err
		}
		q.Discount = d.Amount
		q.Coupon = &d.Coupon
		q.Totals = pricing.ApplyDiscount(totals, d.Amount)
	}
	return q, nil
}

// onPaymentSuccess is the success continuation: the cart is cleared and
// the confirmation flow takes over with the order id.
func (c *Controller) onPaymentSuccess(ctx context.Context, orderID string) error {
	ord, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "load order")
	}
	if err := c.carts.Clear(ctx, ord.CustomerID); err != nil {
		c.lg.Error("clear cart failed", zap.String("order_id", orderID), zap.Error(err))
	}
	c.lg.Info("order paid", zap.String("order_id", orderID))
	return nil
}

// onPaymentFailure is the failure continuation: the order stays pending
// and the client lands on the retry screen.
func (c *Controller) onPaymentFailure(_ context.Context, orderID string, cause error) {
	c.lg.Info("payment handshake failed, order retryable",
		zap.String("order_id", orderID),
		zap.String("cause", cause.Error()),
	)
}
