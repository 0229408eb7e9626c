package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// casAttempts bounds the compare-and-swap loop in AdjustStock.
const casAttempts = 5

var ErrStockConflict = errors.New("stock changed concurrently")

type Repo struct{ DB *pgxpool.Pool }

const varietyColumns = `id, name, category, stock, cost_cents, price_cents, version, created_at, updated_at`

func scanVariety(row pgx.Row) (Variety, error) {
	var v Variety
	var cat string
	err := row.Scan(&v.ID, &v.Name, &cat, &v.Stock, &v.CostCents, &v.PriceCents, &v.Version, &v.CreatedAt, &v.UpdatedAt)
	v.Category = Category(cat)
	return v, err
}

func (r *Repo) List(ctx context.Context) ([]Variety, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+varietyColumns+` FROM varieties`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Variety
	for rows.Next() {
		v, err := scanVariety(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortForDisplay(out)
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Variety, error) {
	v, err := scanVariety(r.DB.QueryRow(ctx, `SELECT `+varietyColumns+` FROM varieties WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Variety{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v, err
}

func (r *Repo) Create(ctx context.Context, v Variety) (Variety, error) {
	if err := v.Validate(); err != nil {
		return Variety{}, err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return scanVariety(r.DB.QueryRow(ctx, `
		INSERT INTO varieties(id, name, category, stock, cost_cents, price_cents)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+varietyColumns,
		v.ID, v.Name, string(v.Category), v.Stock, v.CostCents, v.PriceCents))
}

func (r *Repo) Update(ctx context.Context, v Variety) (Variety, error) {
	if err := v.Validate(); err != nil {
		return Variety{}, err
	}
	out, err := scanVariety(r.DB.QueryRow(ctx, `
		UPDATE varieties
		SET name=$2, category=$3, stock=$4, cost_cents=$5, price_cents=$6,
		    version=version+1, updated_at=now()
		WHERE id=$1
		RETURNING `+varietyColumns,
		v.ID, v.Name, string(v.Category), v.Stock, v.CostCents, v.PriceCents))
	if errors.Is(err, pgx.ErrNoRows) {
		return Variety{}, fmt.Errorf("%w: %s", ErrNotFound, v.ID)
	}
	return out, err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM varieties WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// AdjustStock applies a delta expression (see ApplyDelta). The write only
// lands if stock still holds the value the expression was evaluated
// against; otherwise the read is repeated. An unparseable expression
// returns the variety untouched with changed=false.
func (r *Repo) AdjustStock(ctx context.Context, id, expr string) (v Variety, changed bool, err error) {
	for range casAttempts {
		v, err = r.Get(ctx, id)
		if err != nil {
			return Variety{}, false, err
		}
		next, ok := ApplyDelta(expr, v.Stock)
		if !ok || next == v.Stock {
			return v, false, nil
		}

		out, err := scanVariety(r.DB.QueryRow(ctx, `
			UPDATE varieties
			SET stock=$3, version=version+1, updated_at=now()
			WHERE id=$1 AND stock=$2
			RETURNING `+varietyColumns, id, v.Stock, next))
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return Variety{}, false, err
		}
		return out, true, nil
	}
	return Variety{}, false, fmt.Errorf("%w: %s", ErrStockConflict, id)
}
