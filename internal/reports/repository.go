package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/shelfboard/internal/platform/db"
)

// Repository reads and writes shelf movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListMovements returns the shelf's movements that occurred before until,
// oldest first.
func (r *Repository) ListMovements(ctx context.Context, shelfCode string, until time.Time) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, shelf_code, product_code, kind, qty, unit_price::text, unit_cost::text, occurred_at
FROM shelf_movements
WHERE shelf_code=$1 AND occurred_at < $2
ORDER BY occurred_at, id`, shelfCode, until)
	if err != nil {
		return nil, fmt.Errorf("reports: list movements: %w", err)
	}
	return pgx.CollectRows(rows, scanMovement)
}

// InsertMovement stores a movement and returns it with its id.
func (r *Repository) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO shelf_movements (shelf_code, product_code, kind, qty, unit_price, unit_cost, occurred_at)
VALUES ($1,$2,$3,$4,$5::numeric,$6::numeric,$7) RETURNING id`,
		m.ShelfCode, m.ProductCode, string(m.Kind), m.Qty, m.UnitPrice.String(), m.UnitCost.String(), m.OccurredAt).Scan(&m.ID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Movement{}, ErrShelfNotFound
		}
		return Movement{}, fmt.Errorf("reports: insert movement: %w", err)
	}
	return m, nil
}

func scanMovement(row pgx.CollectableRow) (Movement, error) {
	var (
		m           Movement
		kind        string
		price, cost string
	)
	if err := row.Scan(&m.ID, &m.ShelfCode, &m.ProductCode, &kind, &m.Qty, &price, &cost, &m.OccurredAt); err != nil {
		return Movement{}, err
	}
	m.Kind = MovementKind(kind)
	var err error
	if m.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return Movement{}, fmt.Errorf("reports: unit price: %w", err)
	}
	if m.UnitCost, err = decimal.NewFromString(cost); err != nil {
		return Movement{}, fmt.Errorf("reports: unit cost: %w", err)
	}
	return m, nil
}
