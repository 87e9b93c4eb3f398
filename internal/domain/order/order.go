package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Method is the customer's chosen payment method.
type Method string

const (
	// MethodCOD is Cash on Delivery, capped at CODLimit per order.
	MethodCOD Method = "cod"
	// MethodOnline pays through the external gateway.
	MethodOnline Method = "online"
)

// Status is the lifecycle state of a placed order.
type Status string

const (
	// StatusPlaced means the order is confirmed (COD, or paid online).
	StatusPlaced Status = "placed"
	// StatusPendingPayment means the order exists but its online payment
	// has not yet succeeded. Pending orders are retryable indefinitely.
	StatusPendingPayment Status = "pending_payment"
	// StatusPaid means the gateway payment was verified.
	StatusPaid Status = "paid"
)

// CODLimit is the business ceiling for Cash on Delivery orders.
var CODLimit = decimal.NewFromInt(1000)

// Sentinel errors for order assembly and submission.
var (
	ErrNotFound      = errors.New("order not found")
	ErrEmptyItems    = errors.New("cart is empty")
	ErrNoAddress     = errors.New("no delivery address selected")
	ErrInvalidMethod = errors.New("invalid payment method")
	ErrCODNotAllowed = errors.New("cash on delivery not available for this order amount")
	ErrOutOfStock    = errors.New("item went out of stock")
)

// Item is one line of an order, priced at checkout time.
type Item struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Draft is the transient, fully-priced order candidate built per
// checkout attempt. Invariant: Total = Subtotal + Shipping - Discount,
// never negative.
type Draft struct {
	CustomerID string
	AddressID  string
	Method     Method
	Items      []Item
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponID   string
}

// Order is the immutable persisted order record.
type Order struct {
	ID         string
	CustomerID string
	AddressID  string
	Method     Method
	Status     Status
	Items      []Item
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponID   string
	CreatedAt  time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
