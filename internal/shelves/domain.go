package shelves

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/shelfboard/internal/layout"
	"github.com/odyssey-erp/shelfboard/internal/platform/httpx"
)

// Shelf is a physical shelf with a fixed number of rows.
type Shelf struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows shelf listings.
type ListFilter struct {
	Search  string
	Page    int
	PerPage int
}

// AssignInput places a product on a shelf row.
type AssignInput struct {
	ShelfCode   string
	ProductCode string
	RowNumber   int
	Actor       string
}

// RowView is one row of a shelf as shown to operators.
type RowView struct {
	RowNumber    int                  `json:"row_number"`
	Slots        []layout.DisplaySlot `json:"slots"`
	NextPosition int                  `json:"next_position"`
}

// LayoutView is the canonical layout plus derived display ordinals.
type LayoutView struct {
	ShelfCode string        `json:"shelf_code"`
	Rows      []RowView     `json:"rows"`
	Slots     layout.Layout `json:"slots"`
}

// NewLayoutView derives the per-row view for a shelf with rowCount rows.
func NewLayoutView(shelfCode string, rowCount int, l layout.Layout) LayoutView {
	grouped := layout.Rows(l)
	maxRow := rowCount
	for row := range grouped {
		if row > maxRow {
			maxRow = row
		}
	}
	view := LayoutView{ShelfCode: shelfCode, Slots: layout.Sorted(l)}
	for row := 1; row <= maxRow; row++ {
		slots := grouped[row]
		view.Rows = append(view.Rows, RowView{
			RowNumber:    row,
			Slots:        layout.RenumberDisplay(slots),
			NextPosition: layout.NextAvailablePosition(slots),
		})
	}
	return view
}

var (
	// ErrShelfNotFound indicates an unknown shelf code.
	ErrShelfNotFound = fmt.Errorf("shelves: shelf %w", httpx.ErrNotFound)
	// ErrSlotNotFound indicates the product is not placed on the shelf.
	ErrSlotNotFound = fmt.Errorf("shelves: slot %w", httpx.ErrNotFound)
	// ErrInvalidShelf indicates missing or out of range shelf attributes.
	ErrInvalidShelf = fmt.Errorf("shelves: invalid shelf: %w", httpx.ErrValidation)
	// ErrShelfExists indicates a duplicate shelf code.
	ErrShelfExists = fmt.Errorf("shelves: shelf code %w", httpx.ErrDuplicate)
	// ErrProductPlaced indicates the product already occupies a slot on the shelf.
	ErrProductPlaced = fmt.Errorf("shelves: product already placed: %w", httpx.ErrDuplicate)
	// ErrRowOutOfRange indicates a row outside 1..Shelf.Rows.
	ErrRowOutOfRange = fmt.Errorf("shelves: row out of range: %w", httpx.ErrValidation)
	// ErrRowsInUse indicates shrinking a shelf below an occupied row.
	ErrRowsInUse = fmt.Errorf("shelves: rows still hold products: %w", httpx.ErrConflict)
	// ErrInvalidLayout indicates a layout with duplicate products or shared positions.
	ErrInvalidLayout = fmt.Errorf("shelves: invalid layout: %w", httpx.ErrValidation)
	// ErrLayoutMismatch indicates the stored products changed since the layout was loaded.
	ErrLayoutMismatch = fmt.Errorf("shelves: stored layout changed: %w", httpx.ErrConflict)
	// ErrSessionNotFound indicates an unknown or expired edit session.
	ErrSessionNotFound = fmt.Errorf("shelves: edit session %w", httpx.ErrGone)
	// ErrShelfLocked indicates another edit session is open for the shelf.
	ErrShelfLocked = fmt.Errorf("shelves: shelf is being edited: %w", httpx.ErrConflict)
	// ErrSessionBusy indicates concurrent moves kept overwriting the same session.
	ErrSessionBusy = fmt.Errorf("shelves: edit session busy, retry the move: %w", httpx.ErrConflict)
)
