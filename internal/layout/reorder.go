package layout

// Reorder moves the slot holding source onto the slot holding target and returns
// the renumbered layout. The source takes the target's ordinal within the target
// row; rows touched by the move are renumbered 1..N.
//
// Self drops, unknown or ambiguous codes and empty layouts leave l unchanged.
func Reorder(l Layout, source, target string) Layout {
	if len(l) == 0 || source == target {
		return l
	}
	srcIdx, ok := indexOf(l, source)
	if !ok {
		return l
	}
	dstIdx, ok := indexOf(l, target)
	if !ok {
		return l
	}

	moving := l[srcIdx]
	fromRow := moving.RowNumber
	toRow := l[dstIdx].RowNumber
	moving.RowNumber = toRow

	var rest Layout
	var row []Slot
	var left []Slot
	for i, s := range l {
		switch {
		case i == srcIdx:
		case s.RowNumber == toRow:
			row = append(row, s)
		case s.RowNumber == fromRow:
			left = append(left, s)
		default:
			rest = append(rest, s)
		}
	}
	sortByPosition(row)

	at := targetIndex(row, target)
	if fromRow == toRow {
		// Plain list move: the source lands on the target's old index, so a
		// downward move ends after the target and an upward move before it.
		if originalIndex(l, fromRow, source) < at+1 {
			at++
		}
	}
	row = insertAt(row, at, moving)
	renumber(row)

	sortByPosition(left)
	renumber(left)

	out := make(Layout, 0, len(l))
	out = append(out, rest...)
	out = append(out, left...)
	out = append(out, row...)
	return Sorted(out)
}

// NextAvailablePosition returns the smallest positive position not used by rowSlots.
func NextAvailablePosition(rowSlots []Slot) int {
	used := make(map[int]struct{}, len(rowSlots))
	for _, s := range rowSlots {
		used[s.Position] = struct{}{}
	}
	for pos := 1; ; pos++ {
		if _, ok := used[pos]; !ok {
			return pos
		}
	}
}

// RenumberDisplay orders rowSlots by canonical position and assigns display
// ordinals 1..N. The canonical positions are returned untouched.
func RenumberDisplay(rowSlots []Slot) []DisplaySlot {
	sorted := make([]Slot, len(rowSlots))
	copy(sorted, rowSlots)
	sortByPosition(sorted)
	out := make([]DisplaySlot, len(sorted))
	for i, s := range sorted {
		out[i] = DisplaySlot{Slot: s, Display: i + 1}
	}
	return out
}

func indexOf(l Layout, code string) (int, bool) {
	idx := -1
	for i, s := range l {
		if s.ProductCode != code {
			continue
		}
		if idx >= 0 {
			return -1, false
		}
		idx = i
	}
	return idx, idx >= 0
}

func targetIndex(row []Slot, code string) int {
	for i, s := range row {
		if s.ProductCode == code {
			return i
		}
	}
	return len(row)
}

// originalIndex is the ordinal of code within row before the move.
func originalIndex(l Layout, row int, code string) int {
	var slots []Slot
	for _, s := range l {
		if s.RowNumber == row {
			slots = append(slots, s)
		}
	}
	sortByPosition(slots)
	return targetIndex(slots, code)
}

func insertAt(row []Slot, at int, s Slot) []Slot {
	row = append(row, Slot{})
	copy(row[at+1:], row[at:])
	row[at] = s
	return row
}
