// Package layout holds the in-memory shelf layout model and the pure operations
// applied to it while a shelf is being edited.
package layout

import (
	"errors"
	"fmt"
	"sort"
)

// Slot is one product's placement within a shelf.
type Slot struct {
	ProductCode string `json:"product_code"`
	RowNumber   int    `json:"row_number"`
	Position    int    `json:"position"`
}

// Layout is the full set of slots belonging to one shelf.
type Layout []Slot

// DisplaySlot pairs a slot with its gap-free display ordinal.
type DisplaySlot struct {
	Slot
	Display int `json:"display"`
}

// ErrNotContiguous reports a row whose positions are not exactly 1..N.
var ErrNotContiguous = errors.New("layout: row positions not contiguous")

// ErrDuplicateProduct reports a product placed more than once.
var ErrDuplicateProduct = errors.New("layout: duplicate product")

// ErrInvalidRow reports a slot with a non-positive row number.
var ErrInvalidRow = errors.New("layout: row number must be positive")

// ErrPositionTaken reports two slots sharing a position within a row.
var ErrPositionTaken = errors.New("layout: position taken")

// Clone returns a copy that shares no backing array with l.
func Clone(l Layout) Layout {
	if l == nil {
		return nil
	}
	out := make(Layout, len(l))
	copy(out, l)
	return out
}

// Rows groups slots by row number. Each row is sorted by position.
func Rows(l Layout) map[int][]Slot {
	rows := make(map[int][]Slot)
	for _, s := range l {
		rows[s.RowNumber] = append(rows[s.RowNumber], s)
	}
	for _, row := range rows {
		sortByPosition(row)
	}
	return rows
}

// RowNumbers returns the distinct row numbers in ascending order.
func RowNumbers(l Layout) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, s := range l {
		if _, ok := seen[s.RowNumber]; ok {
			continue
		}
		seen[s.RowNumber] = struct{}{}
		out = append(out, s.RowNumber)
	}
	sort.Ints(out)
	return out
}

// Validate checks that every product appears once and that each row is numbered 1..N.
func Validate(l Layout) error {
	products := make(map[string]struct{}, len(l))
	for _, s := range l {
		if s.RowNumber <= 0 {
			return fmt.Errorf("%w: product %s", ErrInvalidRow, s.ProductCode)
		}
		if _, ok := products[s.ProductCode]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, s.ProductCode)
		}
		products[s.ProductCode] = struct{}{}
	}
	for _, row := range RowNumbers(l) {
		if !rowContiguous(l, row) {
			return fmt.Errorf("%w: row %d", ErrNotContiguous, row)
		}
	}
	return nil
}

// CheckSlots checks that every product appears once, rows and positions are
// positive and no two slots share a position in a row. Gaps are allowed: they
// are left behind by removals and filled by NextAvailablePosition.
func CheckSlots(l Layout) error {
	products := make(map[string]struct{}, len(l))
	taken := make(map[[2]int]string, len(l))
	for _, s := range l {
		if s.RowNumber <= 0 {
			return fmt.Errorf("%w: product %s", ErrInvalidRow, s.ProductCode)
		}
		if s.Position <= 0 {
			return fmt.Errorf("%w: product %s at %d", ErrPositionTaken, s.ProductCode, s.Position)
		}
		if _, ok := products[s.ProductCode]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, s.ProductCode)
		}
		products[s.ProductCode] = struct{}{}
		at := [2]int{s.RowNumber, s.Position}
		if other, ok := taken[at]; ok {
			return fmt.Errorf("%w: row %d position %d held by %s and %s", ErrPositionTaken, s.RowNumber, s.Position, other, s.ProductCode)
		}
		taken[at] = s.ProductCode
	}
	return nil
}

// BrokenRows lists the rows whose positions are not exactly 1..N.
func BrokenRows(l Layout) []int {
	var broken []int
	for _, row := range RowNumbers(l) {
		if !rowContiguous(l, row) {
			broken = append(broken, row)
		}
	}
	return broken
}

// Compact renumbers every row to 1..N keeping the current relative order.
func Compact(l Layout) Layout {
	out := make(Layout, 0, len(l))
	rows := Rows(l)
	for _, row := range RowNumbers(l) {
		slots := rows[row]
		renumber(slots)
		out = append(out, slots...)
	}
	return out
}

// Sorted returns a copy of l ordered by row, position and product code.
func Sorted(l Layout) Layout {
	out := Clone(l)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RowNumber != out[j].RowNumber {
			return out[i].RowNumber < out[j].RowNumber
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ProductCode < out[j].ProductCode
	})
	return out
}

// ProductCodes returns the set of product codes in l.
func ProductCodes(l Layout) map[string]struct{} {
	out := make(map[string]struct{}, len(l))
	for _, s := range l {
		out[s.ProductCode] = struct{}{}
	}
	return out
}

func rowContiguous(l Layout, row int) bool {
	seen := make(map[int]struct{})
	count := 0
	for _, s := range l {
		if s.RowNumber != row {
			continue
		}
		count++
		seen[s.Position] = struct{}{}
	}
	if len(seen) != count {
		return false
	}
	for pos := 1; pos <= count; pos++ {
		if _, ok := seen[pos]; !ok {
			return false
		}
	}
	return true
}

func sortByPosition(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Position != slots[j].Position {
			return slots[i].Position < slots[j].Position
		}
		return slots[i].ProductCode < slots[j].ProductCode
	})
}

func renumber(slots []Slot) {
	for i := range slots {
		slots[i].Position = i + 1
	}
}
