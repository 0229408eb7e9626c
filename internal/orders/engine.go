package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/google/uuid"
)

// Store is the order ledger as seen by the Engine. InTx runs fn in a single
// storage transaction: if fn returns an error nothing it wrote is kept.
type Store interface {
	GetOrder(ctx context.Context, id string) (Order, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	// LockVarieties reads the current rows for ids and holds them until the
	// transaction ends. Unknown ids are absent from the result.
	LockVarieties(ctx context.Context, ids []string) (map[string]catalog.Variety, error)
	GetOrderForUpdate(ctx context.Context, id string) (Order, error)
	NextOrderNumber(ctx context.Context) (int64, error)
	InsertOrder(ctx context.Context, o Order) error
	ReplaceItems(ctx context.Context, orderID string, items []OrderItem, totalCents int64, at time.Time) error
	MarkPaid(ctx context.Context, orderID string, pm PaymentMethod, at time.Time) error
	// DecrementStock subtracts qty only if at least qty is on hand.
	DecrementStock(ctx context.Context, varietyID string, qty int) (bool, error)
}

type VarietyReader interface {
	Get(ctx context.Context, id string) (catalog.Variety, error)
}

type CheckoutRequest struct {
	Status        Status
	PaymentMethod PaymentMethod
}

// Engine is the only writer that turns carts into orders and takes stock
// off the catalog.
type Engine struct {
	Store     Store
	Varieties VarietyReader
	Now       func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// Checkout commits cart as a new order, or over the order it is editing.
// A PAID checkout re-checks stock against the store and decrements it for
// every line. All writes share one transaction. The cart is cleared only
// on success.
func (e *Engine) Checkout(ctx context.Context, cart *Cart, req CheckoutRequest) (Order, error) {
	if cart == nil || cart.Len() == 0 {
		return Order{}, ErrEmptyCart
	}
	if err := checkPayment(req.Status, req.PaymentMethod); err != nil {
		return Order{}, err
	}

	var out Order
	err := e.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var prev *Order
		if cart.EditingOrderID != "" {
			o, err := tx.GetOrderForUpdate(ctx, cart.EditingOrderID)
			if err != nil {
				return err
			}
			if !CanTransition(o.Status, req.Status) {
				return ErrOrderLocked
			}
			prev = &o
		}

		var current map[string]catalog.Variety
		if req.Status == StatusPaid {
			var err error
			if current, err = checkStock(ctx, tx, cart.Lines); err != nil {
				return err
			}
		}

		now := e.now()
		items := cart.snapshot()
		total := sumItems(items)

		if prev != nil {
			if err := tx.ReplaceItems(ctx, prev.ID, items, total, now); err != nil {
				return err
			}
			out = *prev
			out.Items, out.TotalCents, out.UpdatedAt = items, total, now
			if req.Status == StatusPaid {
				if err := tx.MarkPaid(ctx, out.ID, req.PaymentMethod, now); err != nil {
					return err
				}
				out.Status, out.PaymentMethod, out.PaidAt = StatusPaid, req.PaymentMethod, &now
			}
		} else {
			num, err := tx.NextOrderNumber(ctx)
			if err != nil {
				return err
			}
			out = Order{
				ID:            uuid.NewString(),
				Number:        num,
				Items:         items,
				TotalCents:    total,
				Status:        req.Status,
				PaymentMethod: req.PaymentMethod,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if req.Status == StatusPaid {
				out.PaidAt = &now
			}
			if err := tx.InsertOrder(ctx, out); err != nil {
				return err
			}
		}

		if req.Status != StatusPaid {
			return nil
		}
		return takeStock(ctx, tx, cart.Lines, current)
	})
	if err != nil {
		return Order{}, storeErr(err)
	}

	cart.Clear()
	return out, nil
}

// checkStock locks the rows behind lines and reports the first line the
// current stock cannot cover.
func checkStock(ctx context.Context, tx Tx, lines []Line) (map[string]catalog.Variety, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.VarietyID)
	}
	current, err := tx.LockVarieties(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		v, ok := current[l.VarietyID]
		if !ok || v.Stock < l.Quantity {
			return nil, &InsufficientStockError{VarietyID: l.VarietyID, Name: l.Name, Requested: l.Quantity, Available: v.Stock}
		}
	}
	return current, nil
}

func takeStock(ctx context.Context, tx Tx, lines []Line, current map[string]catalog.Variety) error {
	for _, l := range lines {
		ok, err := tx.DecrementStock(ctx, l.VarietyID, l.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return &InsufficientStockError{VarietyID: l.VarietyID, Name: l.Name, Requested: l.Quantity, Available: current[l.VarietyID].Stock}
		}
	}
	return nil
}

// Pay settles an UNPAID order with its items as they stand when the order
// row is locked, so an edit committed just before is what gets paid.
func (e *Engine) Pay(ctx context.Context, orderID string, pm PaymentMethod) (Order, error) {
	if err := checkPayment(StatusPaid, pm); err != nil {
		return Order{}, err
	}

	var out Order
	err := e.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, StatusPaid) {
			return ErrOrderLocked
		}
		if len(o.Items) == 0 {
			return ErrEmptyCart
		}

		lines := make([]Line, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, Line(it))
		}
		current, err := checkStock(ctx, tx, lines)
		if err != nil {
			return err
		}

		now := e.now()
		if err := tx.MarkPaid(ctx, o.ID, pm, now); err != nil {
			return err
		}
		if err := takeStock(ctx, tx, lines, current); err != nil {
			return err
		}
		o.Status, o.PaymentMethod, o.PaidAt, o.UpdatedAt = StatusPaid, pm, &now, now
		out = o
		return nil
	})
	if err != nil {
		return Order{}, storeErr(err)
	}
	return out, nil
}

// QuickSale records a single-variety sale as a PAID order.
func (e *Engine) QuickSale(ctx context.Context, varietyID string, qty int, pm PaymentMethod) (Order, error) {
	if qty <= 0 {
		return Order{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	v, err := e.Varieties.Get(ctx, varietyID)
	if err != nil {
		return Order{}, storeErr(err)
	}
	var cart Cart
	if err := cart.AddItem(v, qty); err != nil {
		return Order{}, err
	}
	return e.Checkout(ctx, &cart, CheckoutRequest{Status: StatusPaid, PaymentMethod: pm})
}
