package order

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/cart"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/catalog"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/pricing"
)

// Assembler builds order drafts from cart lines and submits them,
// decrementing stock as part of submission.
type Assembler struct {
	stock  catalog.StockStore
	orders Repository
}

// NewAssembler creates an Assembler with the required dependencies.
func NewAssembler(stock catalog.StockStore, orders Repository) *Assembler {
	return &Assembler{stock: stock, orders: orders}
}

// BuildDraft validates the selection and produces a fully-priced draft.
// COD is re-validated here against the final total even when the caller
// already filtered the option: selection state can be stale.
func (a *Assembler) BuildDraft(
	lines []cart.Line,
	customerID, addressID string,
	method Method,
	totals pricing.Totals,
	discount decimal.Decimal,
	couponID string,
) (*Draft, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyItems
	}
	if addressID == "" {
		return nil, ErrNoAddress
	}

	total := totals.Subtotal.Add(totals.Shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(2)

	switch method {
	case MethodCOD:
		if total.GreaterThan(CODLimit) {
			return nil, ErrCODNotAllowed
		}
	case MethodOnline:
	default:
		return nil, ErrInvalidMethod
	}

	items := make([]Item, len(lines))
	for i, line := range lines {
		items[i] = Item{
			ProductID: line.Product.ID,
			VariantID: line.Variant.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.Variant.EffectivePrice(),
		}
	}

	return &Draft{
		CustomerID: customerID,
		AddressID:  addressID,
		Method:     method,
		Items:      items,
		Subtotal:   totals.Subtotal,
		Shipping:   totals.Shipping,
		Discount:   discount.Round(2),
		Total:      total,
		CouponID:   couponID,
	}, nil
}

// Submit decrements stock for every draft item and persists the order.
//
// The per-item decrements are issued concurrently and their settlement
// is awaited jointly: the order is created only if all succeed. When any
// decrement fails, the lines already decremented are restored and the
// whole submission reports ErrOutOfStock — no partial order is created.
//
// Known race: stock can still vanish between the inventory guard's check
// and these decrements. The decrement itself is atomic per line, so the
// failure surfaces here and aborts the batch; closing the window fully
// would need a server-side reservation spanning the guard and submit.
func (a *Assembler) Submit(ctx context.Context, draft *Draft) (*Order, error) {
	var (
		mu          sync.Mutex
		decremented []Item
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range draft.Items {
		g.Go(func() error {
			if err := a.stock.Decrement(gctx, item.ProductID, item.VariantID, item.Quantity); err != nil {
				return errors.Wrapf(err, "variant %s", item.VariantID)
			}
			mu.Lock()
			decremented = append(decremented, item)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		restoreErr := a.restore(ctx, decremented)
		if errors.Is(err, catalog.ErrInsufficientStock) {
			err = errors.Wrap(ErrOutOfStock, err.Error())
		}
		if restoreErr != nil {
			return nil, errors.Wrapf(err, "restore after abort: %v", restoreErr)
		}
		return nil, err
	}

	status := StatusPlaced
	if draft.Method == MethodOnline {
		status = StatusPendingPayment
	}

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: draft.CustomerID,
		AddressID:  draft.AddressID,
		Method:     draft.Method,
		Status:     status,
		Items:      draft.Items,
		Subtotal:   draft.Subtotal,
		Shipping:   draft.Shipping,
		Discount:   draft.Discount,
		Total:      draft.Total,
		CouponID:   draft.CouponID,
	}
	if err := a.orders.Create(ctx, o); err != nil {
		// The stock is already taken; give it back so the failed create
		// leaves nothing half-committed.
		if restoreErr := a.restore(ctx, draft.Items); restoreErr != nil {
			return nil, errors.Wrapf(err, "create order (restore also failed: %v)", restoreErr)
		}
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// restore compensates already-applied decrements. All items are
// attempted even after a failure; the first error is reported.
func (a *Assembler) restore(ctx context.Context, items []Item) error {
	var firstErr error
	for _, item := range items {
		if err := a.stock.Restore(ctx, item.ProductID, item.VariantID, item.Quantity); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "restore variant %s", item.VariantID)
		}
	}
	return firstErr
}
