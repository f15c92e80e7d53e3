package layout

import "strings"

// Move is a resolved drag: drop source onto target.
type Move struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// DragResolver turns an input gesture into a Move. ok is false when the gesture
// did not end over a different item.
type DragResolver interface {
	ResolveMove(current Layout) (move Move, ok bool)
}

// ApplyDrag resolves the gesture against l and reorders. The returned flag
// reports whether the layout changed.
func ApplyDrag(l Layout, r DragResolver) (Layout, bool) {
	if r == nil {
		return l, false
	}
	move, ok := r.ResolveMove(l)
	if !ok {
		return l, false
	}
	next := Reorder(l, move.Source, move.Target)
	return next, !equal(l, next)
}

// PointerDrop is a drop event carrying the dragged item and the item under the pointer.
type PointerDrop struct {
	ActiveID string
	OverID   string
}

// ResolveMove implements DragResolver.
func (p PointerDrop) ResolveMove(Layout) (Move, bool) {
	active := strings.TrimSpace(p.ActiveID)
	over := strings.TrimSpace(p.OverID)
	if active == "" || over == "" || active == over {
		return Move{}, false
	}
	return Move{Source: active, Target: over}, true
}

// Direction of a keyboard step.
type Direction string

const (
	// DirectionUp moves towards position 1.
	DirectionUp Direction = "up"
	// DirectionDown moves towards the end of the row.
	DirectionDown Direction = "down"
)

// KeyboardStep moves a product one place within its row.
type KeyboardStep struct {
	ProductCode string
	Direction   Direction
}

// ResolveMove implements DragResolver by targeting the neighbouring slot.
func (k KeyboardStep) ResolveMove(current Layout) (Move, bool) {
	var rowNumber int
	found := false
	for _, s := range current {
		if s.ProductCode == k.ProductCode {
			rowNumber = s.RowNumber
			found = true
			break
		}
	}
	if !found {
		return Move{}, false
	}
	row := Rows(current)[rowNumber]
	idx := targetIndex(row, k.ProductCode)
	switch k.Direction {
	case DirectionUp:
		idx--
	case DirectionDown:
		idx++
	default:
		return Move{}, false
	}
	if idx < 0 || idx >= len(row) {
		return Move{}, false
	}
	return Move{Source: k.ProductCode, Target: row[idx].ProductCode}, true
}

func equal(a, b Layout) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
