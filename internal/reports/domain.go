// Package reports aggregates shelf movements into sales, withdrawal and stock
// cost summaries ordered by the shelf layout.
package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/shelfboard/internal/platform/httpx"
)

// MovementKind classifies a stock movement.
type MovementKind string

const (
	// KindSale is a unit sold to a customer.
	KindSale MovementKind = "SALE"
	// KindWithdraw is a unit taken off the shelf without a sale (damage, expiry).
	KindWithdraw MovementKind = "WITHDRAW"
	// KindRestock is a unit put on the shelf.
	KindRestock MovementKind = "RESTOCK"
)

// Valid reports whether k is a known kind.
func (k MovementKind) Valid() bool {
	switch k {
	case KindSale, KindWithdraw, KindRestock:
		return true
	}
	return false
}

// Movement is one stock event for a product on a shelf.
type Movement struct {
	ID          int64           `json:"id"`
	ShelfCode   string          `json:"shelf_code"`
	ProductCode string          `json:"product_code"`
	Kind        MovementKind    `json:"kind"`
	Qty         int64           `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Period is a half-open [From, To) window.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.To)
}

// MonthToDate returns the period from the first day of now's month until the
// start of the next day.
func MonthToDate(now time.Time) Period {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: to}
}

// Totals holds aggregated quantities and amounts.
type Totals struct {
	SalesQty     int64           `json:"sales_qty"`
	SalesAmount  decimal.Decimal `json:"sales_amount"`
	WithdrawQty  int64           `json:"withdraw_qty"`
	WithdrawCost decimal.Decimal `json:"withdraw_cost"`
	StockQty     int64           `json:"stock_qty"`
	StockCost    decimal.Decimal `json:"stock_cost"`
}

func (t *Totals) add(o Totals) {
	t.SalesQty += o.SalesQty
	t.SalesAmount = t.SalesAmount.Add(o.SalesAmount)
	t.WithdrawQty += o.WithdrawQty
	t.WithdrawCost = t.WithdrawCost.Add(o.WithdrawCost)
	t.StockQty += o.StockQty
	t.StockCost = t.StockCost.Add(o.StockCost)
}

// Line is the summary of one product.
type Line struct {
	ProductCode string `json:"product_code"`
	RowNumber   int    `json:"row_number"`
	Position    int    `json:"position"`
	Totals
}

// RowSummary groups lines of one shelf row. Row 0 holds products with
// movements but no slot on the shelf.
type RowSummary struct {
	RowNumber int    `json:"row_number"`
	Lines     []Line `json:"lines"`
	Totals    Totals `json:"totals"`
}

// Summary is the per-shelf report.
type Summary struct {
	ShelfCode   string       `json:"shelf_code"`
	Period      Period       `json:"period"`
	Rows        []RowSummary `json:"rows"`
	Totals      Totals       `json:"totals"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// MovementInput is a movement to record.
type MovementInput struct {
	ShelfCode   string
	ProductCode string
	Kind        MovementKind
	Qty         int64
	UnitPrice   decimal.Decimal
	UnitCost    decimal.Decimal
	OccurredAt  time.Time
	Actor       string
}

var (
	// ErrInvalidMovement indicates a malformed movement.
	ErrInvalidMovement = fmt.Errorf("reports: invalid movement: %w", httpx.ErrValidation)
	// ErrInvalidPeriod indicates a period whose end is not after its start.
	ErrInvalidPeriod = fmt.Errorf("reports: invalid period: %w", httpx.ErrValidation)
	// ErrShelfNotFound indicates movements for an unknown shelf.
	ErrShelfNotFound = fmt.Errorf("reports: shelf %w", httpx.ErrNotFound)
)
