package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/address"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/cart"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/catalog"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/coupon"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/order"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/payment"
)

// --- Mock collaborators ---

type mockCartRepo struct {
	mu      sync.Mutex
	lines   []cart.Line
	cleared int
	block   chan struct{} // when set, Lines waits until closed
}

func (m *mockCartRepo) Lines(_ context.Context, _ string) ([]cart.Line, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines, nil
}

func (m *mockCartRepo) Clear(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
	m.lines = nil
	return nil
}

type mockAddressRepo struct {
	byID map[string]*address.Address
}

func (m *mockAddressRepo) ListByCustomer(_ context.Context, _ string) ([]address.Address, error) {
	out := make([]address.Address, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAddressRepo) GetByID(_ context.Context, _, addressID string) (*address.Address, error) {
	a, ok := m.byID[addressID]
	if !ok {
		return nil, address.ErrNotFound
	}
	return a, nil
}

type mockCouponRepo struct {
	mu        sync.Mutex
	byCode    map[string]*coupon.Coupon
	markUsedN int
	usedOrder string
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := m.byCode[code]
	if !ok {
		return nil, coupon.ErrInvalidCoupon
	}
	return c, nil
}

func (m *mockCouponRepo) ListAvailable(_ context.Context, _ time.Time) ([]coupon.Coupon, error) {
	out := make([]coupon.Coupon, 0, len(m.byCode))
	for _, c := range m.byCode {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCouponRepo) MarkUsed(_ context.Context, _, _, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markUsedN++
	m.usedOrder = orderID
	return nil
}

type mockStockStore struct {
	mu         sync.Mutex
	decrements map[string]int
	restores   map[string]int
}

func newMockStockStore() *mockStockStore {
	return &mockStockStore{decrements: make(map[string]int), restores: make(map[string]int)}
}

func (m *mockStockStore) Decrement(_ context.Context, _, variantID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decrements[variantID] += qty
	return nil
}

func (m *mockStockStore) Restore(_ context.Context, _, variantID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restores[variantID] += qty
	return nil
}

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*order.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		o.Status = status
	}
	return nil
}

type mockGateway struct {
	mu      sync.Mutex
	created int
}

func (m *mockGateway) CreateOrder(_ context.Context, receipt string, amount decimal.Decimal, currency string) (*payment.GatewayOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	return &payment.GatewayOrder{
		ID:       fmt.Sprintf("gw_%s_%d", receipt, m.created),
		Amount:   amount,
		Currency: currency,
	}, nil
}

func (m *mockGateway) VerifySignature(_, _, signature string) bool { return signature == "valid" }
func (m *mockGateway) CheckoutKey() string                         { return "rzp_test_key" }

type mockSessionRepo struct{}

func (mockSessionRepo) CreateSession(_ context.Context, _ *payment.Session) error { return nil }
func (mockSessionRepo) UpdateStatus(_ context.Context, _, _ string, _ payment.SessionStatus, _ string) error {
	return nil
}

// --- Fixtures ---

type fixture struct {
	carts   *mockCartRepo
	coupons *mockCouponRepo
	stock   *mockStockStore
	orders  *mockOrderRepo
	gateway *mockGateway
	ctrl    *Controller
}

func newFixture(lines []cart.Line) *fixture {
	f := &fixture{
		carts: &mockCartRepo{lines: lines},
		coupons: &mockCouponRepo{byCode: map[string]*coupon.Coupon{
			"SAVE10": {
				ID:             "c-save10",
				Code:           "SAVE10",
				DiscountType:   coupon.DiscountPercentage,
				DiscountValue:  decimal.NewFromInt(10),
				MinOrderAmount: decimal.NewFromInt(200),
			},
		}},
		stock:   newMockStockStore(),
		orders:  newMockOrderRepo(),
		gateway: &mockGateway{},
	}
	addrs := &mockAddressRepo{byID: map[string]*address.Address{
		"addr1": {
			ID:         "addr1",
			CustomerID: "cust1",
			Type:       address.TypeHome,
			Name:       "Asha Nair",
			Street:     "12 MG Road",
			City:       "Kochi",
			State:      "Kerala",
			Pincode:    "682001",
			Phone:      "9876543210",
			IsDefault:  true,
		},
	}}
	f.ctrl = NewController(
		f.carts,
		addrs,
		f.coupons,
		coupon.NewRepoValidator(f.coupons),
		f.stock,
		f.orders,
		f.gateway,
		mockSessionRepo{},
		zap.NewNop(),
	)
	return f
}

func fixtureLine(variantID, price string, qty, stock int) cart.Line {
	return cart.Line{
		Product: catalog.Product{
			ID:             "p-" + variantID,
			Name:           "Product " + variantID,
			Status:         catalog.StatusActive,
			CategoryStatus: catalog.StatusActive,
			BrandStatus:    catalog.StatusActive,
		},
		Variant: catalog.Variant{
			ID:    variantID,
			Color: "black",
			Price: decimal.RequireFromString(price),
			Stock: stock,
		},
		Quantity: qty,
	}
}

// cart800 is a cart with subtotal 800: above the free-shipping
// threshold, under the COD ceiling.
func cart800() []cart.Line {
	return []cart.Line{fixtureLine("v1", "400.00", 2, 10)}
}

func codRequest(couponCode string) PlaceOrderRequest {
	return PlaceOrderRequest{
		CustomerID:    "cust1",
		CustomerEmail: "asha@example.com",
		AddressID:     "addr1",
		Method:        order.MethodCOD,
		CouponCode:    couponCode,
	}
}

// --- Tests ---

func TestPlaceOrder_CODEndToEnd(t *testing.T) {
	f := newFixture(cart800())

	res, err := f.ctrl.PlaceOrder(context.Background(), codRequest("SAVE10"))
	require.NoError(t, err)

	require.NotNil(t, res.Order)
	assert.NotEmpty(t, res.Order.ID)
	assert.Equal(t, order.StatusPlaced, res.Order.Status)
	assert.True(t, decimal.NewFromInt(800).Equal(res.Order.Subtotal))
	assert.True(t, res.Order.Shipping.IsZero(), "subtotal 800 ships free")
	assert.True(t, decimal.NewFromInt(80).Equal(res.Order.Discount))
	assert.True(t, decimal.NewFromInt(720).Equal(res.Order.Total))

	assert.Nil(t, res.Payment, "COD never enters the payment orchestrator")
	assert.Zero(t, f.gateway.created)
	assert.Equal(t, 1, f.carts.cleared)
	assert.Equal(t, 1, f.coupons.markUsedN)
	assert.Equal(t, res.Order.ID, f.coupons.usedOrder)
}

func TestPlaceOrder_OnlineDismissAndRetry(t *testing.T) {
	f := newFixture(cart800())

	req := codRequest("SAVE10")
	req.Method = order.MethodOnline
	res, err := f.ctrl.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, res.Payment)
	orderID := res.Order.ID
	firstGateway := res.Payment.GatewayOrderID
	assert.Equal(t, order.StatusPendingPayment, res.Order.Status)
	assert.Equal(t, "Asha Nair", res.Payment.Customer.Name)
	assert.Equal(t, "asha@example.com", res.Payment.Customer.Email)
	assert.Equal(t, 0, f.carts.cleared, "cart survives until payment succeeds")

	// User closes the widget: failure path, order stays pending.
	require.NoError(t, f.ctrl.DismissPayment(context.Background(), orderID))
	got, err := f.orders.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPendingPayment, got.Status)

	// Retry re-enters the handshake for the same order id with a fresh
	// gateway order, and the email prefills the widget again.
	intent, err := f.ctrl.RetryPayment(context.Background(), orderID, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, orderID, intent.OrderID)
	assert.NotEqual(t, firstGateway, intent.GatewayOrderID)
	assert.Equal(t, "asha@example.com", intent.Customer.Email)
}

func TestPlaceOrder_OnlineSuccessClearsCart(t *testing.T) {
	f := newFixture(cart800())

	req := codRequest("")
	req.Method = order.MethodOnline
	res, err := f.ctrl.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	err = f.ctrl.CompletePayment(context.Background(),
		res.Order.ID, "pay_1", res.Payment.GatewayOrderID, "valid")
	require.NoError(t, err)

	got, err := f.orders.GetByID(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, got.Status)
	assert.Equal(t, 1, f.carts.cleared)
}

func TestPlaceOrder_InventoryGuardAborts(t *testing.T) {
	// Stock 2, quantity 3: the guard must catch this before any stock
	// mutation or order creation.
	f := newFixture([]cart.Line{fixtureLine("v1", "400.00", 3, 2)})

	_, err := f.ctrl.PlaceOrder(context.Background(), codRequest("SAVE10"))
	require.ErrorIs(t, err, order.ErrOutOfStock)
	assert.Contains(t, err.Error(), "only 2 left in stock")
	assert.Equal(t, KindOutOfStock, Classify(err))

	assert.Empty(t, f.orders.orders, "order must never be submitted")
	assert.Empty(t, f.stock.decrements)
	assert.Zero(t, f.coupons.markUsedN, "aborted checkout must not consume the coupon")
	assert.Zero(t, f.carts.cleared)
}

func TestPlaceOrder_SelectionGuards(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PlaceOrderRequest)
		wantErr error
	}{
		{
			name:    "missing address",
			mutate:  func(r *PlaceOrderRequest) { r.AddressID = "" },
			wantErr: order.ErrNoAddress,
		},
		{
			name:    "unknown address",
			mutate:  func(r *PlaceOrderRequest) { r.AddressID = "ghost" },
			wantErr: order.ErrNoAddress,
		},
		{
			name:    "unknown coupon",
			mutate:  func(r *PlaceOrderRequest) { r.CouponCode = "BOGUS" },
			wantErr: coupon.ErrInvalidCoupon,
		},
		{
			name:    "bad method",
			mutate:  func(r *PlaceOrderRequest) { r.Method = order.Method("upi") },
			wantErr: order.ErrInvalidMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(cart800())
			req := codRequest("")
			tt.mutate(&req)

			_, err := f.ctrl.PlaceOrder(context.Background(), req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.orders.orders)
			assert.Zero(t, f.coupons.markUsedN)
		})
	}
}

func TestPlaceOrder_CODCeiling(t *testing.T) {
	// Subtotal 1000.01, free shipping: a cent over the COD ceiling.
	f := newFixture([]cart.Line{fixtureLine("v1", "1000.01", 1, 10)})

	_, err := f.ctrl.PlaceOrder(context.Background(), codRequest(""))
	require.ErrorIs(t, err, order.ErrCODNotAllowed)
	assert.Equal(t, KindValidation, Classify(err))

	// The same cart goes through online.
	req := codRequest("")
	req.Method = order.MethodOnline
	res, err := f.ctrl.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res.Payment)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(nil)

	_, err := f.ctrl.PlaceOrder(context.Background(), codRequest(""))
	require.ErrorIs(t, err, order.ErrEmptyItems)
}

func TestPlaceOrder_DuplicateClickDropped(t *testing.T) {
	f := newFixture(cart800())
	f.carts.block = make(chan struct{})

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := f.ctrl.PlaceOrder(context.Background(), codRequest(""))
		done <- err
	}()

	<-started
	// Wait until the first call holds the in-flight slot.
	require.Eventually(t, func() bool {
		return f.ctrl.IsInFlight("place:cust1")
	}, time.Second, time.Millisecond)

	_, err := f.ctrl.PlaceOrder(context.Background(), codRequest(""))
	require.ErrorIs(t, err, ErrOperationInFlight)

	close(f.carts.block)
	require.NoError(t, <-done)
	assert.Len(t, f.orders.orders, 1, "exactly one order placed")
}

func TestApplyCoupon_Quote(t *testing.T) {
	f := newFixture(cart800())

	q, err := f.ctrl.ApplyCoupon(context.Background(), "cust1", "SAVE10")
	require.NoError(t, err)

	require.NotNil(t, q.Coupon)
	assert.True(t, decimal.NewFromInt(80).Equal(q.Discount))
	assert.True(t, decimal.NewFromInt(720).Equal(q.Totals.Total))

	// Removing the coupon is quoting without a code.
	q, err = f.ctrl.ApplyCoupon(context.Background(), "cust1", "")
	require.NoError(t, err)
	assert.Nil(t, q.Coupon)
	assert.True(t, q.Discount.IsZero())
	assert.True(t, decimal.NewFromInt(800).Equal(q.Totals.Total))
}

func TestApplyCoupon_BelowMinimum(t *testing.T) {
	f := newFixture([]cart.Line{fixtureLine("v1", "150.00", 1, 10)})

	_, err := f.ctrl.ApplyCoupon(context.Background(), "cust1", "SAVE10")
	require.ErrorIs(t, err, coupon.ErrBelowMinOrder)
	assert.Equal(t, KindCouponInvalid, Classify(err))
}
