package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/shelfboard/internal/layout"
)

// UnplacedRow is the row number used for products that have movements but no slot.
const UnplacedRow = 0

type productState struct {
	totals   Totals
	lastCost decimal.Decimal
}

// Summarize aggregates movements per product and orders the lines by the shelf
// layout. Movements at or after period.To are ignored; movements before
// period.From only count towards stock.
func Summarize(shelfCode string, period Period, l layout.Layout, movements []Movement, now time.Time) Summary {
	ordered := make([]Movement, 0, len(movements))
	for _, m := range movements {
		if m.OccurredAt.Before(period.To) {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
	})

	states := make(map[string]*productState)
	state := func(code string) *productState {
		st, ok := states[code]
		if !ok {
			st = &productState{}
			states[code] = st
		}
		return st
	}
	for _, s := range l {
		state(s.ProductCode)
	}

	for _, m := range ordered {
		st := state(m.ProductCode)
		qty := decimal.NewFromInt(m.Qty)
		inPeriod := period.Contains(m.OccurredAt)
		switch m.Kind {
		case KindRestock:
			st.totals.StockQty += m.Qty
			if !m.UnitCost.IsZero() {
				st.lastCost = m.UnitCost
			}
		case KindSale:
			st.totals.StockQty -= m.Qty
			if inPeriod {
				st.totals.SalesQty += m.Qty
				st.totals.SalesAmount = st.totals.SalesAmount.Add(m.UnitPrice.Mul(qty))
			}
		case KindWithdraw:
			st.totals.StockQty -= m.Qty
			if inPeriod {
				cost := m.UnitCost
				if cost.IsZero() {
					cost = st.lastCost
				}
				st.totals.WithdrawQty += m.Qty
				st.totals.WithdrawCost = st.totals.WithdrawCost.Add(cost.Mul(qty))
			}
		}
	}

	placement := make(map[string]layout.Slot, len(l))
	for _, s := range l {
		placement[s.ProductCode] = s
	}
	byRow := make(map[int][]Line)
	for code, st := range states {
		if st.totals.StockQty > 0 {
			st.totals.StockCost = st.lastCost.Mul(decimal.NewFromInt(st.totals.StockQty))
		}
		line := Line{ProductCode: code, RowNumber: UnplacedRow, Totals: st.totals}
		if s, ok := placement[code]; ok {
			line.RowNumber = s.RowNumber
			line.Position = s.Position
		}
		byRow[line.RowNumber] = append(byRow[line.RowNumber], line)
	}

	rowNumbers := make([]int, 0, len(byRow))
	for row := range byRow {
		rowNumbers = append(rowNumbers, row)
	}
	sort.Slice(rowNumbers, func(i, j int) bool {
		a, b := rowNumbers[i], rowNumbers[j]
		if a == UnplacedRow || b == UnplacedRow {
			return b == UnplacedRow && a != UnplacedRow
		}
		return a < b
	})

	summary := Summary{ShelfCode: shelfCode, Period: period, GeneratedAt: now.UTC(), Rows: []RowSummary{}}
	for _, row := range rowNumbers {
		lines := byRow[row]
		sort.Slice(lines, func(i, j int) bool {
			if lines[i].Position != lines[j].Position {
				return lines[i].Position < lines[j].Position
			}
			return lines[i].ProductCode < lines[j].ProductCode
		})
		rs := RowSummary{RowNumber: row, Lines: lines}
		for _, line := range lines {
			rs.Totals.add(line.Totals)
		}
		summary.Totals.add(rs.Totals)
		summary.Rows = append(summary.Rows, rs)
	}
	return summary
}
