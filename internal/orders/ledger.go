package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger persists orders and their items in Postgres. It implements Store.
type Ledger struct{ DB *pgxpool.Pool }

// querier is the subset shared by the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const orderColumns = `id, order_number, status, COALESCE(payment_method, ''), total_cents, created_at, updated_at, paid_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var st, pm string
	if err := row.Scan(&o.ID, &o.Number, &st, &pm, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt); err != nil {
		return Order{}, err
	}
	o.Status, o.PaymentMethod = Status(st), PaymentMethod(pm)
	return o, nil
}

func (l *Ledger) GetOrder(ctx context.Context, id string) (Order, error) {
	return getOrder(ctx, l.DB, id, "")
}

func getOrder(ctx context.Context, q querier, id, suffix string) (Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return Order{}, err
	}
	items, err := loadItems(ctx, q, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// ListOrders returns orders newest first with their items attached.
func (l *Ledger) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	ts := "created_at"
	if f.Status == StatusPaid {
		ts = "paid_at"
	}
	var from, to *time.Time
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}

	rows, err := l.DB.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2::timestamptz IS NULL OR `+ts+` >= $2)
		  AND ($3::timestamptz IS NULL OR `+ts+` < $3)
		ORDER BY order_number DESC`, string(f.Status), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := loadItems(ctx, l.DB, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT order_id, variety_id, variety_name, category, qty, unit_price_cents, line_total_cents
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var oid, cat string
		var it OrderItem
		if err := rows.Scan(&oid, &it.VarietyID, &it.Name, &cat, &it.Quantity, &it.UnitPriceCents, &it.LineTotalCents); err != nil {
			return nil, err
		}
		it.Category = catalog.Category(cat)
		out[oid] = append(out[oid], it)
	}
	return out, rows.Err()
}

func (l *Ledger) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type ledgerTx struct{ tx pgx.Tx }

func (t *ledgerTx) LockVarieties(ctx context.Context, ids []string) (map[string]catalog.Variety, error) {
	// Fixed lock order keeps concurrent checkouts from deadlocking.
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, category, stock, cost_cents, price_cents, version
		FROM varieties WHERE id = ANY($1)
		ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]catalog.Variety, len(ids))
	for rows.Next() {
		var v catalog.Variety
		var cat string
		if err := rows.Scan(&v.ID, &v.Name, &cat, &v.Stock, &v.CostCents, &v.PriceCents, &v.Version); err != nil {
			return nil, err
		}
		v.Category = catalog.Category(cat)
		out[v.ID] = v
	}
	return out, rows.Err()
}

func (t *ledgerTx) GetOrderForUpdate(ctx context.Context, id string) (Order, error) {
	return getOrder(ctx, t.tx, id, " FOR UPDATE")
}

func (t *ledgerTx) NextOrderNumber(ctx context.Context) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n)
	return n, err
}

func (t *ledgerTx) InsertOrder(ctx context.Context, o Order) error {
	var pm *string
	if o.PaymentMethod != PaymentNone {
		s := string(o.PaymentMethod)
		pm = &s
	}
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, status, payment_method, total_cents, created_at, updated_at, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.Number, string(o.Status), pm, o.TotalCents, o.CreatedAt, o.UpdatedAt, o.PaidAt,
	); err != nil {
		return err
	}
	return t.insertItems(ctx, o.ID, o.Items)
}

func (t *ledgerTx) insertItems(ctx context.Context, orderID string, items []OrderItem) error {
	for i, it := range items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, variety_id, variety_name, category, qty, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			orderID, i, it.VarietyID, it.Name, string(it.Category), it.Quantity, it.UnitPriceCents, it.LineTotalCents,
		); err != nil {
			return err
		}
	}
	return nil
}

func (t *ledgerTx) ReplaceItems(ctx context.Context, orderID string, items []OrderItem, totalCents int64, at time.Time) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return err
	}
	if err := t.insertItems(ctx, orderID, items); err != nil {
		return err
	}
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET total_cents=$2, updated_at=$3
		WHERE id=$1 AND status='UNPAID'`, orderID, totalCents, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderLocked
	}
	return nil
}

func (t *ledgerTx) MarkPaid(ctx context.Context, orderID string, pm PaymentMethod, at time.Time) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET status='PAID', payment_method=$2, paid_at=$3, updated_at=$3
		WHERE id=$1 AND status='UNPAID'`, orderID, string(pm), at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderLocked
	}
	return nil
}

func (t *ledgerTx) DecrementStock(ctx context.Context, varietyID string, qty int) (bool, error) {
	ct, err := t.tx.Exec(ctx, `
		UPDATE varieties SET stock = stock - $2, version = version + 1, updated_at = now()
		WHERE id=$1 AND stock >= $2`, varietyID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
