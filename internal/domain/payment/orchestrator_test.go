package payment

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/order"
)

// --- Mock implementations ---

type mockGateway struct {
	created   int
	createErr error
	validSig  string
}

func (m *mockGateway) CreateOrder(_ context.Context, receipt string, amount decimal.Decimal, currency string) (*GatewayOrder, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created++
	return &GatewayOrder{
		ID:       fmt.Sprintf("gw_%s_%d", receipt, m.created),
		Amount:   amount,
		Currency: currency,
	}, nil
}

func (m *mockGateway) VerifySignature(_, _, signature string) bool {
	return signature == m.validSig
}

func (m *mockGateway) CheckoutKey() string { return "rzp_test_key" }

type mockSessionRepo struct {
	created  []Session
	statuses []SessionStatus
}

func (m *mockSessionRepo) CreateSession(_ context.Context, s *Session) error {
	m.created = append(m.created, *s)
	return nil
}

func (m *mockSessionRepo) UpdateStatus(_ context.Context, _, _ string, status SessionStatus, _ string) error {
	m.statuses = append(m.statuses, status)
	return nil
}

type mockOrderStore struct {
	orders map[string]*order.Order
}

func newMockOrderStore(orders ...*order.Order) *mockOrderStore {
	m := &mockOrderStore{orders: make(map[string]*order.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderStore) Create(_ context.Context, o *order.Order) error {
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderStore) UpdateStatus(_ context.Context, id string, status order.Status) error {
	if o, ok := m.orders[id]; ok {
		o.Status = status
	}
	return nil
}

// --- Helpers ---

type continuationSpy struct {
	successes []string
	failures  []string
	causes    []error
}

func (c *continuationSpy) continuations() Continuations {
	return Continuations{
		OnSuccess: func(_ context.Context, orderID string) error {
			c.successes = append(c.successes, orderID)
			return nil
		},
		OnFailure: func(_ context.Context, orderID string, cause error) {
			c.failures = append(c.failures, orderID)
			c.causes = append(c.causes, cause)
		},
	}
}

func pendingOrder(id string) *order.Order {
	return &order.Order{
		ID:     id,
		Method: order.MethodOnline,
		Status: order.StatusPendingPayment,
		Total:  decimal.NewFromInt(830),
	}
}

func newTestOrchestrator(gw *mockGateway, store *mockOrderStore, spy *continuationSpy) (*Orchestrator, *mockSessionRepo) {
	sessions := &mockSessionRepo{}
	return NewOrchestrator(gw, sessions, store, spy.continuations(), zap.NewNop()), sessions
}

// --- Tests ---

func TestStart(t *testing.T) {
	ord := pendingOrder("ord1")
	gw := &mockGateway{validSig: "sig"}
	o, sessions := newTestOrchestrator(gw, newMockOrderStore(ord), &continuationSpy{})

	intent, err := o.Start(context.Background(), ord, Contact{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "ord1", intent.OrderID)
	assert.Equal(t, "gw_ord1_1", intent.GatewayOrderID)
	assert.Equal(t, "rzp_test_key", intent.Key)
	assert.True(t, decimal.NewFromInt(830).Equal(intent.Amount))
	assert.Equal(t, "INR", intent.Currency)
	require.Len(t, sessions.created, 1)
	assert.Equal(t, "ord1", sessions.created[0].OrderID)
}

func TestStart_DuplicateRejected(t *testing.T) {
	ord := pendingOrder("ord1")
	o, _ := newTestOrchestrator(&mockGateway{}, newMockOrderStore(ord), &continuationSpy{})

	_, err := o.Start(context.Background(), ord, Contact{})
	require.NoError(t, err)

	_, err = o.Start(context.Background(), ord, Contact{})
	require.ErrorIs(t, err, ErrPaymentInFlight)
}

func TestStart_GatewayErrorReleasesSlot(t *testing.T) {
	ord := pendingOrder("ord1")
	gw := &mockGateway{createErr: errors.New("gateway down")}
	o, _ := newTestOrchestrator(gw, newMockOrderStore(ord), &continuationSpy{})

	_, err := o.Start(context.Background(), ord, Contact{})
	require.Error(t, err)

	// The failed attempt must not leave a stuck in-flight reservation.
	gw.createErr = nil
	_, err = o.Start(context.Background(), ord, Contact{})
	require.NoError(t, err)
}

func TestHandleCompletion_Success(t *testing.T) {
	ord := pendingOrder("ord1")
	store := newMockOrderStore(ord)
	spy := &continuationSpy{}
	o, _ := newTestOrchestrator(&mockGateway{validSig: "good"}, store, spy)

	intent, err := o.Start(context.Background(), ord, Contact{})
	require.NoError(t, err)

	err = o.HandleCompletion(context.Background(), "ord1", "pay_1", intent.GatewayOrderID, "good")
	require.NoError(t, err)

	assert.Equal(t, order.StatusPaid, store.orders["ord1"].Status)
	assert.Equal(t, []string{"ord1"}, spy.successes)
	assert.Empty(t, spy.failures)
}

func TestHandleCompletion_BadSignature(t *testing.T) {
	ord := pendingOrder("ord1")
	store := newMockOrderStore(ord)
	spy := &continuationSpy{}
	o, _ := newTestOrchestrator(&mockGateway{validSig: "good"}, store, spy)

	intent, err := o.Start(context.Background(), ord, Contact{})
	require.NoError(t, err)

	err = o.HandleCompletion(context.Background(), "ord1", "pay_1", intent.GatewayOrderID, "forged")
	require.ErrorIs(t, err, ErrVerificationFailed)

	// Payment failure is never fatal to the order record.
	assert.Equal(t, order.StatusPendingPayment, store.orders["ord1"].Status)
	assert.Equal(t, []string{"ord1"}, spy.failures)
	assert.Empty(t, spy.successes)
}

func TestHandleCompletion_MismatchedGatewayOrder(t *testing.T) {
	ord := pendingOrder("ord1")
	spy := &continuationSpy{}
	o, _ := newTestOrchestrator(&mockGateway{validSig: "good"}, newMockOrderStore(ord), spy)

	_, err := o.Start(context.Background(), ord, Contact{})
	require.NoError(t, err)

	err = o.HandleCompletion(context.Background(), "ord1", "pay_1", "gw_other", "good")
	require.ErrorIs(t, err, ErrVerificationFailed)
	assert.Len(t, spy.failures, 1)
}

func TestHandleDismiss(t *testing.T) {
	ord := pendingOrder("ord1")
	spy := &continuationSpy{}
	o, _ := newTestOrchestrator(&mockGateway{}, newMockOrderStore(ord), spy)

	_, err := o.Start(context.Background(), ord, Contact{})
	require.NoError(t, err)

	require.NoError(t, o.HandleDismiss(context.Background(), "ord1"))
	require.Len(t, spy.failures, 1)
	assert.ErrorIs(t, spy.causes[0], ErrWidgetDismissed)

	// The session is destroyed on the terminal exit: a duplicate callback
	// finds nothing and the continuation does not fire again.
	err = o.HandleDismiss(context.Background(), "ord1")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Len(t, spy.failures, 1)
}

func TestHandleDismiss_UnknownOrder(t *testing.T) {
	o, _ := newTestOrchestrator(&mockGateway{}, newMockOrderStore(), &continuationSpy{})

	err := o.HandleDismiss(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHandleWidgetError(t *testing.T) {
	ord := pendingOrder("ord1")
	spy := &continuationSpy{}
	o, _ := newTestOrchestrator(&mockGateway{}, newMockOrderStore(ord), spy)

	_, err := o.Start(context.Background(), ord, Contact{})
	require.NoError(t, err)

	require.NoError(t, o.HandleWidgetError(context.Background(), "ord1", errors.New("network dropped")))
	require.Len(t, spy.failures, 1)
	assert.Contains(t, spy.causes[0].Error(), "network dropped")
}

func TestTerminalSessionsAreDestroyed(t *testing.T) {
	gw := &mockGateway{validSig: "good"}
	store := newMockOrderStore()
	o, _ := newTestOrchestrator(gw, store, &continuationSpy{})

	// Completed and dismissed handshakes alike must not accumulate.
	for i := range 50 {
		ord := pendingOrder(fmt.Sprintf("ord%d", i))
		store.orders[ord.ID] = ord

		intent, err := o.Start(context.Background(), ord, Contact{})
		require.NoError(t, err)

		if i%2 == 0 {
			require.NoError(t, o.HandleCompletion(context.Background(), ord.ID, "pay_1", intent.GatewayOrderID, "good"))
		} else {
			require.NoError(t, o.HandleDismiss(context.Background(), ord.ID))
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.Empty(t, o.active, "terminal sessions must be destroyed")
}

func TestHandleCompletion_DuplicateCallbackRejected(t *testing.T) {
	ord := pendingOrder("ord1")
	store := newMockOrderStore(ord)
	spy := &continuationSpy{}
	o, _ := newTestOrchestrator(&mockGateway{validSig: "good"}, store, spy)

	intent, err := o.Start(context.Background(), ord, Contact{})
	require.NoError(t, err)
	require.NoError(t, o.HandleCompletion(context.Background(), "ord1", "pay_1", intent.GatewayOrderID, "good"))

	err = o.HandleCompletion(context.Background(), "ord1", "pay_1", intent.GatewayOrderID, "good")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, []string{"ord1"}, spy.successes, "success continuation fires exactly once")
}

func TestRetry_AfterDismissCreatesFreshGatewayOrder(t *testing.T) {
	ord := pendingOrder("ord1")
	gw := &mockGateway{validSig: "good"}
	spy := &continuationSpy{}
	o, _ := newTestOrchestrator(gw, newMockOrderStore(ord), spy)

	first, err := o.Start(context.Background(), ord, Contact{})
	require.NoError(t, err)
	require.NoError(t, o.HandleDismiss(context.Background(), "ord1"))

	second, err := o.Retry(context.Background(), "ord1", Contact{})
	require.NoError(t, err)

	assert.Equal(t, "ord1", second.OrderID, "retry keeps the internal order id")
	assert.NotEqual(t, first.GatewayOrderID, second.GatewayOrderID, "retry creates a fresh gateway order")
}

func TestRetry_PaidOrderRejected(t *testing.T) {
	paid := pendingOrder("ord1")
	paid.Status = order.StatusPaid
	o, _ := newTestOrchestrator(&mockGateway{}, newMockOrderStore(paid), &continuationSpy{})

	_, err := o.Retry(context.Background(), "ord1", Contact{})
	require.ErrorIs(t, err, ErrOrderNotRetryable)
}

func TestRetry_UnknownOrder(t *testing.T) {
	o, _ := newTestOrchestrator(&mockGateway{}, newMockOrderStore(), &continuationSpy{})

	_, err := o.Retry(context.Background(), "ghost", Contact{})
	require.ErrorIs(t, err, order.ErrNotFound)
}
