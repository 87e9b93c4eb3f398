package payment

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/order"
)

// Continuations are the follow-ups fired when a handshake terminates.
// OnSuccess runs once when verification passes (clear cart, hand the
// order id to the confirmation flow). OnFailure runs once for every
// non-success exit; the order stays pending and retryable.
type Continuations struct {
	OnSuccess func(ctx context.Context, orderID string) error
	OnFailure func(ctx context.Context, orderID string, cause error)
}

// Orchestrator drives the gateway handshake per order:
//
//	Idle -> GatewayOrderCreated -> WidgetOpen -> Verifying -> Succeeded
//	                                    \__________ ________/
//	                                               v
//	                                            Failed
//
// A session is destroyed once its terminal continuation has fired, so
// duplicate callbacks after that point report ErrSessionNotFound. Retry
// is an explicit action that starts a fresh handshake for the same
// order.
type Orchestrator struct {
	gateway  Gateway
	sessions Repository
	orders   order.Repository
	cont     Continuations
	lg       *zap.Logger

	mu     sync.Mutex
	active map[string]*Session
}

// NewOrchestrator creates an Orchestrator with the given collaborators.
func NewOrchestrator(
	gateway Gateway,
	sessions Repository,
	orders order.Repository,
	cont Continuations,
	lg *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		gateway:  gateway,
		sessions: sessions,
		orders:   orders,
		cont:     cont,
		lg:       lg,
		active:   make(map[string]*Session),
	}
}

// Start creates a gateway-side order for the given internal order and
// returns the checkout intent that opens the payment widget. Duplicate
// starts while a handshake is live are rejected with ErrPaymentInFlight.
func (o *Orchestrator) Start(ctx context.Context, ord *order.Order, customer Contact) (*CheckoutIntent, error) {
	o.mu.Lock()
	if _, ok := o.active[ord.ID]; ok {
		o.mu.Unlock()
		return nil, ErrPaymentInFlight
	}
	// Reserve the slot before the gateway call so a racing Start for the
	// same order is rejected while the call is in flight.
	placeholder := &Session{OrderID: ord.ID, State: StateIdle}
	o.active[ord.ID] = placeholder
	o.mu.Unlock()

	gw, err := o.gateway.CreateOrder(ctx, ord.ID, ord.Total, "INR")
	if err != nil {
		o.release(ord.ID, placeholder)
		return nil, errors.Wrap(err, "create gateway order")
	}

	s := &Session{
		OrderID:        ord.ID,
		GatewayOrderID: gw.ID,
		Amount:         gw.Amount,
		Currency:       gw.Currency,
		State:          StateGatewayOrderCreated,
	}
	if err := o.sessions.CreateSession(ctx, s); err != nil {
		o.release(ord.ID, placeholder)
		return nil, errors.Wrap(err, "persist payment session")
	}

	// Handing the intent to the client opens the widget; control returns
	// asynchronously through HandleCompletion, HandleDismiss, or
	// HandleWidgetError.
	s.State = StateWidgetOpen

	o.mu.Lock()
	o.active[ord.ID] = s
	o.mu.Unlock()

	o.lg.Info("payment handshake started",
		zap.String("order_id", ord.ID),
		zap.String("gateway_order_id", gw.ID),
	)

	return &CheckoutIntent{
		OrderID:        ord.ID,
		GatewayOrderID: gw.ID,
		Amount:         gw.Amount,
		Currency:       gw.Currency,
		Key:            o.gateway.CheckoutKey(),
		Customer:       customer,
	}, nil
}

// HandleCompletion processes the widget's completion callback: it moves
// the session to Verifying, checks the signature, and fires the success
// or failure continuation.
func (o *Orchestrator) HandleCompletion(ctx context.Context, orderID, gatewayPaymentID, gatewayOrderID, signature string) error {
	s, err := o.take(orderID, StateWidgetOpen, StateVerifying)
	if err != nil {
		return err
	}

	if err := o.sessions.UpdateStatus(ctx, orderID, s.GatewayOrderID, SessionVerifying, gatewayPaymentID); err != nil {
		o.lg.Warn("update payment session failed", zap.String("order_id", orderID), zap.Error(err))
	}

	if s.GatewayOrderID != gatewayOrderID || !o.gateway.VerifySignature(gatewayOrderID, gatewayPaymentID, signature) {
		o.fail(ctx, s, gatewayPaymentID, ErrVerificationFailed)
		return ErrVerificationFailed
	}

	s.State = StateSucceeded
	if err := o.sessions.UpdateStatus(ctx, orderID, s.GatewayOrderID, SessionSucceeded, gatewayPaymentID); err != nil {
		o.lg.Warn("update payment session failed", zap.String("order_id", orderID), zap.Error(err))
	}
	if err := o.orders.UpdateStatus(ctx, orderID, order.StatusPaid); err != nil {
		return errors.Wrap(err, "mark order paid")
	}

	s.notified = true
	o.drop(orderID)

	o.lg.Info("payment verified", zap.String("order_id", orderID))
	if o.cont.OnSuccess != nil {
		if err := o.cont.OnSuccess(ctx, orderID); err != nil {
			return errors.Wrap(err, "success continuation")
		}
	}
	return nil
}

// HandleDismiss processes the user closing the widget. Dismissal is an
// explicit cancellation, routed to the failure path rather than left
// pending.
func (o *Orchestrator) HandleDismiss(ctx context.Context, orderID string) error {
	s, err := o.take(orderID, StateWidgetOpen, StateFailed)
	if err != nil {
		return err
	}
	o.fail(ctx, s, "", ErrWidgetDismissed)
	return nil
}

// HandleWidgetError processes an error raised by the widget itself.
func (o *Orchestrator) HandleWidgetError(ctx context.Context, orderID string, cause error) error {
	s, err := o.take(orderID, StateWidgetOpen, StateFailed)
	if err != nil {
		return err
	}
	o.fail(ctx, s, "", errors.Wrap(cause, "payment widget"))
	return nil
}

// Retry starts a fresh handshake for an order whose previous payment
// failed. The order keeps its id; only the gateway order is new.
func (o *Orchestrator) Retry(ctx context.Context, orderID string, customer Contact) (*CheckoutIntent, error) {
	ord, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load order")
	}
	if ord.Status != order.StatusPendingPayment {
		return nil, ErrOrderNotRetryable
	}
	return o.Start(ctx, ord, customer)
}

// take atomically checks the session is in the expected state and moves
// it to next. It rejects unknown orders and duplicate callbacks.
func (o *Orchestrator) take(orderID string, expect, next State) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.active[orderID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.State != expect {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", s.State, next)
	}
	s.State = next
	return s, nil
}

// fail marks the session failed, keeps the order pending, destroys the
// session, and fires the failure continuation exactly once.
func (o *Orchestrator) fail(ctx context.Context, s *Session, gatewayPaymentID string, cause error) {
	s.State = StateFailed
	if err := o.sessions.UpdateStatus(ctx, s.OrderID, s.GatewayOrderID, SessionFailed, gatewayPaymentID); err != nil {
		o.lg.Warn("update payment session failed", zap.String("order_id", s.OrderID), zap.Error(err))
	}

	if s.notified {
		return
	}
	s.notified = true
	o.drop(s.OrderID)

	o.lg.Info("payment failed",
		zap.String("order_id", s.OrderID),
		zap.String("cause", cause.Error()),
	)
	if o.cont.OnFailure != nil {
		o.cont.OnFailure(ctx, s.OrderID, cause)
	}
}

// release drops a reservation if it still points at the placeholder.
func (o *Orchestrator) release(orderID string, placeholder *Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[orderID] == placeholder {
		delete(o.active, orderID)
	}
}

// drop destroys a session that reached a terminal state, freeing the
// order for an explicit Retry.
func (o *Orchestrator) drop(orderID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, orderID)
}
