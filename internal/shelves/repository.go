package shelves

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/shelfboard/internal/layout"
	"github.com/odyssey-erp/shelfboard/internal/platform/db"
)

// TxRepository exposes transactional operations used by Service.
type TxRepository interface {
	LockShelf(ctx context.Context, code string) (Shelf, error)
	LoadLayout(ctx context.Context, shelfCode string) (layout.Layout, error)
	InsertSlot(ctx context.Context, shelfCode string, slot layout.Slot) error
	DeleteSlot(ctx context.Context, shelfCode, productCode string) error
	ReplaceLayout(ctx context.Context, shelfCode string, l layout.Layout) error
	UpdateShelf(ctx context.Context, shelf Shelf) error
	MaxRow(ctx context.Context, shelfCode string) (int, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists shelves and slots in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("shelves repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ListShelves uses a dynamic query for the optional search filter.
func (r *Repository) ListShelves(ctx context.Context, filter ListFilter) ([]Shelf, int, error) {
	where := ""
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = ` WHERE name ILIKE $1 OR code ILIKE $1 OR location ILIKE $1`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shelves`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("shelves: count: %w", err)
	}

	query := `SELECT code, name, location, row_count, created_at, updated_at FROM shelves` + where + ` ORDER BY code ASC`
	if filter.PerPage > 0 {
		offset := (filter.Page - 1) * filter.PerPage
		if offset < 0 {
			offset = 0
		}
		query += ` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
		args = append(args, filter.PerPage, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("shelves: list: %w", err)
	}
	defer rows.Close()
	shelves := []Shelf{}
	for rows.Next() {
		var s Shelf
		if err := rows.Scan(&s.Code, &s.Name, &s.Location, &s.Rows, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		shelves = append(shelves, s)
	}
	return shelves, total, rows.Err()
}

// ListShelfCodes returns every shelf code, used by background jobs.
func (r *Repository) ListShelfCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT code FROM shelves ORDER BY code`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetShelf loads one shelf.
func (r *Repository) GetShelf(ctx context.Context, code string) (Shelf, error) {
	return getShelf(ctx, r.pool, code, false)
}

// CreateShelf inserts a shelf.
func (r *Repository) CreateShelf(ctx context.Context, shelf Shelf) (Shelf, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO shelves (code, name, location, row_count, created_at, updated_at)
VALUES ($1,$2,$3,$4,NOW(),NOW()) RETURNING created_at, updated_at`, shelf.Code, shelf.Name, shelf.Location, shelf.Rows).
		Scan(&shelf.CreatedAt, &shelf.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Shelf{}, ErrShelfExists
		}
		return Shelf{}, fmt.Errorf("shelves: insert shelf: %w", err)
	}
	return shelf, nil
}

// DeleteShelf removes a shelf and its slots.
func (r *Repository) DeleteShelf(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM shelves WHERE code=$1`, code)
	if err != nil {
		return fmt.Errorf("shelves: delete shelf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrShelfNotFound
	}
	return nil
}

// LoadLayout reads the stored slots of a shelf.
func (r *Repository) LoadLayout(ctx context.Context, shelfCode string) (layout.Layout, error) {
	return loadLayout(ctx, r.pool, shelfCode)
}

func (r *txRepository) LockShelf(ctx context.Context, code string) (Shelf, error) {
	return getShelf(ctx, r.tx, code, true)
}

func (r *txRepository) LoadLayout(ctx context.Context, shelfCode string) (layout.Layout, error) {
	return loadLayout(ctx, r.tx, shelfCode)
}

func (r *txRepository) InsertSlot(ctx context.Context, shelfCode string, slot layout.Slot) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO shelf_slots (shelf_code, product_code, row_number, position, updated_at)
VALUES ($1,$2,$3,$4,NOW())`, shelfCode, slot.ProductCode, slot.RowNumber, slot.Position)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrProductPlaced
		}
		return fmt.Errorf("shelves: insert slot: %w", err)
	}
	return nil
}

func (r *txRepository) DeleteSlot(ctx context.Context, shelfCode, productCode string) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM shelf_slots WHERE shelf_code=$1 AND product_code=$2`, shelfCode, productCode)
	if err != nil {
		return fmt.Errorf("shelves: delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// ReplaceLayout rewrites every slot of the shelf. Rows are deleted first so the
// (shelf, row, position) uniqueness holds while positions shuffle.
func (r *txRepository) ReplaceLayout(ctx context.Context, shelfCode string, l layout.Layout) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM shelf_slots WHERE shelf_code=$1`, shelfCode); err != nil {
		return fmt.Errorf("shelves: clear layout: %w", err)
	}
	batch := &pgx.Batch{}
	for _, s := range l {
		batch.Queue(`INSERT INTO shelf_slots (shelf_code, product_code, row_number, position, updated_at) VALUES ($1,$2,$3,$4,NOW())`,
			shelfCode, s.ProductCode, s.RowNumber, s.Position)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := r.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("shelves: write layout: %w", err)
	}
	return nil
}

func (r *txRepository) UpdateShelf(ctx context.Context, shelf Shelf) error {
	tag, err := r.tx.Exec(ctx, `UPDATE shelves SET name=$2, location=$3, row_count=$4, updated_at=NOW() WHERE code=$1`,
		shelf.Code, shelf.Name, shelf.Location, shelf.Rows)
	if err != nil {
		return fmt.Errorf("shelves: update shelf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrShelfNotFound
	}
	return nil
}

func (r *txRepository) MaxRow(ctx context.Context, shelfCode string) (int, error) {
	var maxRow int
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(row_number), 0) FROM shelf_slots WHERE shelf_code=$1`, shelfCode).Scan(&maxRow)
	return maxRow, err
}

func getShelf(ctx context.Context, q querier, code string, forUpdate bool) (Shelf, error) {
	query := `SELECT code, name, location, row_count, created_at, updated_at FROM shelves WHERE code=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var s Shelf
	err := q.QueryRow(ctx, query, code).Scan(&s.Code, &s.Name, &s.Location, &s.Rows, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shelf{}, ErrShelfNotFound
		}
		return Shelf{}, fmt.Errorf("shelves: get shelf: %w", err)
	}
	return s, nil
}

func loadLayout(ctx context.Context, q querier, shelfCode string) (layout.Layout, error) {
	rows, err := q.Query(ctx, `SELECT product_code, row_number, position FROM shelf_slots
WHERE shelf_code=$1 ORDER BY row_number, position, product_code`, shelfCode)
	if err != nil {
		return nil, fmt.Errorf("shelves: load layout: %w", err)
	}
	defer rows.Close()
	l := layout.Layout{}
	for rows.Next() {
		var s layout.Slot
		if err := rows.Scan(&s.ProductCode, &s.RowNumber, &s.Position); err != nil {
			return nil, err
		}
		l = append(l, s)
	}
	return l, rows.Err()
}
