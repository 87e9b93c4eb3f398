package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// State is the orchestrator's position in the gateway handshake for one
// order.
type State int

const (
	StateIdle State = iota
	StateGatewayOrderCreated
	StateWidgetOpen
	StateVerifying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGatewayOrderCreated:
		return "gateway_order_created"
	case StateWidgetOpen:
		return "widget_open"
	case StateVerifying:
		return "verifying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionStatus is the persisted status of a payment session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionVerifying SessionStatus = "verifying"
	SessionSucceeded SessionStatus = "succeeded"
	SessionFailed    SessionStatus = "failed"
)

// Sentinel errors for the payment handshake.
var (
	ErrPaymentInFlight    = errors.New("payment already in flight for this order")
	ErrSessionNotFound    = errors.New("no payment session for this order")
	ErrInvalidTransition  = errors.New("invalid payment state transition")
	ErrVerificationFailed = errors.New("payment signature verification failed")
	ErrWidgetDismissed    = errors.New("payment cancelled by customer")
	ErrOrderNotRetryable  = errors.New("order is not awaiting payment")
)

// Session tracks one gateway handshake attempt for an order. Sessions
// are transient: they are destroyed once the terminal continuation has
// fired, and a retry begins a new one against the same internal order.
type Session struct {
	OrderID        string
	GatewayOrderID string
	Amount         decimal.Decimal
	Currency       string
	State          State

	// notified guards the failure/success continuation so every exit
	// from the handshake reaches it exactly once.
	notified bool
}

// Contact is the customer information prefilled into the payment widget.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// GatewayOrder is the provider-side object representing the amount to
// be charged, linked to the internal order id via the receipt.
type GatewayOrder struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
}

// Gateway abstracts the external payment provider.
type Gateway interface {
	// CreateOrder registers a provider-side order for the given amount,
	// using the internal order id as the receipt reference.
	CreateOrder(ctx context.Context, receipt string, amount decimal.Decimal, currency string) (*GatewayOrder, error)
	// VerifySignature checks the provider's callback signature over the
	// gateway order id and payment id.
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	// CheckoutKey is the public key id the widget is initialized with.
	CheckoutKey() string
}

// Repository persists payment sessions.
type Repository interface {
	CreateSession(ctx context.Context, s *Session) error
	UpdateStatus(ctx context.Context, orderID, gatewayOrderID string, status SessionStatus, gatewayPaymentID string) error
}

// CheckoutIntent is everything the client needs to open the payment
// widget for an order.
type CheckoutIntent struct {
	OrderID        string
	GatewayOrderID string
	Amount         decimal.Decimal
	Currency       string
	Key            string
	Customer       Contact
}
