package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(nil))
	require.NoError(t, Validate(Layout{slot("A", 2, 1), slot("B", 1, 1), slot("C", 2, 2)}))

	err := Validate(Layout{slot("A", 1, 1), slot("B", 1, 3)})
	require.ErrorIs(t, err, ErrNotContiguous)

	err = Validate(Layout{slot("A", 1, 1), slot("B", 1, 1)})
	require.ErrorIs(t, err, ErrNotContiguous)

	err = Validate(Layout{slot("A", 1, 1), slot("A", 2, 1)})
	require.ErrorIs(t, err, ErrDuplicateProduct)

	err = Validate(Layout{slot("A", 0, 1)})
	require.ErrorIs(t, err, ErrInvalidRow)
}

func TestCheckSlotsAllowsGaps(t *testing.T) {
	require.NoError(t, CheckSlots(Layout{slot("A", 1, 1), slot("C", 1, 3), slot("X", 2, 2)}))

	err := CheckSlots(Layout{slot("A", 1, 2), slot("B", 1, 2)})
	require.ErrorIs(t, err, ErrPositionTaken)

	err = CheckSlots(Layout{slot("A", 1, 0)})
	require.ErrorIs(t, err, ErrPositionTaken)

	err = CheckSlots(Layout{slot("A", 1, 1), slot("A", 2, 1)})
	require.ErrorIs(t, err, ErrDuplicateProduct)

	err = CheckSlots(Layout{slot("A", -1, 1)})
	require.ErrorIs(t, err, ErrInvalidRow)
}

func TestCompactKeepsOrder(t *testing.T) {
	l := Layout{slot("C", 1, 7), slot("A", 1, 2), slot("X", 3, 4), slot("B", 1, 2)}

	got := Compact(l)

	require.Equal(t, Layout{slot("A", 1, 1), slot("B", 1, 2), slot("C", 1, 3), slot("X", 3, 1)}, got)
	require.Equal(t, []int{1, 3}, BrokenRows(l))
	require.Empty(t, BrokenRows(got))
}

func TestApplyDragPointer(t *testing.T) {
	l := Layout{slot("A", 1, 1), slot("B", 1, 2), slot("C", 2, 1)}

	next, changed := ApplyDrag(l, PointerDrop{ActiveID: "A", OverID: "C"})
	require.True(t, changed)
	require.Equal(t, Layout{slot("B", 1, 1), slot("A", 2, 1), slot("C", 2, 2)}, next)

	same, changed := ApplyDrag(l, PointerDrop{ActiveID: "A", OverID: " A "})
	require.False(t, changed)
	require.Equal(t, l, same)

	stale, changed := ApplyDrag(l, PointerDrop{ActiveID: "A", OverID: "gone"})
	require.False(t, changed)
	require.Equal(t, l, stale)

	_, changed = ApplyDrag(l, nil)
	require.False(t, changed)
}

func TestApplyDragKeyboard(t *testing.T) {
	l := Layout{slot("A", 1, 1), slot("B", 1, 2), slot("C", 1, 3)}

	next, changed := ApplyDrag(l, KeyboardStep{ProductCode: "B", Direction: DirectionUp})
	require.True(t, changed)
	require.Equal(t, Layout{slot("B", 1, 1), slot("A", 1, 2), slot("C", 1, 3)}, next)

	next, changed = ApplyDrag(l, KeyboardStep{ProductCode: "B", Direction: DirectionDown})
	require.True(t, changed)
	require.Equal(t, Layout{slot("A", 1, 1), slot("C", 1, 2), slot("B", 1, 3)}, next)

	_, changed = ApplyDrag(l, KeyboardStep{ProductCode: "A", Direction: DirectionUp})
	require.False(t, changed)
	_, changed = ApplyDrag(l, KeyboardStep{ProductCode: "C", Direction: DirectionDown})
	require.False(t, changed)
	_, changed = ApplyDrag(l, KeyboardStep{ProductCode: "A", Direction: "sideways"})
	require.False(t, changed)
}
