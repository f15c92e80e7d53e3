package shelves

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/shelfboard/internal/layout"
	"github.com/odyssey-erp/shelfboard/internal/shared"
)

type memRepo struct {
	mu      sync.Mutex
	shelves map[string]Shelf
	slots   map[string]layout.Layout
}

func newMemRepo() *memRepo {
	return &memRepo{shelves: map[string]Shelf{}, slots: map[string]layout.Layout{}}
}

func (m *memRepo) seed(shelf Shelf, l layout.Layout) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shelves[shelf.Code] = shelf
	m.slots[shelf.Code] = layout.Clone(l)
}

func (m *memRepo) layoutOf(code string) layout.Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return layout.Sorted(m.slots[code])
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{shelves: map[string]Shelf{}, slots: map[string]layout.Layout{}}
	for k, v := range m.shelves {
		tx.shelves[k] = v
	}
	for k, v := range m.slots {
		tx.slots[k] = layout.Clone(v)
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.shelves = tx.shelves
	m.slots = tx.slots
	return nil
}

func (m *memRepo) ListShelves(_ context.Context, filter ListFilter) ([]Shelf, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Shelf
	for _, s := range m.shelves {
		if filter.Search != "" && !strings.Contains(strings.ToLower(s.Name+s.Code), strings.ToLower(filter.Search)) {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	total := len(all)
	start := (filter.Page - 1) * filter.PerPage
	if start > total {
		start = total
	}
	end := start + filter.PerPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memRepo) ListShelfCodes(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var codes []string
	for code := range m.shelves {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *memRepo) GetShelf(_ context.Context, code string) (Shelf, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shelves[code]
	if !ok {
		return Shelf{}, ErrShelfNotFound
	}
	return s, nil
}

func (m *memRepo) CreateShelf(_ context.Context, shelf Shelf) (Shelf, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shelves[shelf.Code]; ok {
		return Shelf{}, ErrShelfExists
	}
	shelf.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	shelf.UpdatedAt = shelf.CreatedAt
	m.shelves[shelf.Code] = shelf
	return shelf, nil
}

func (m *memRepo) DeleteShelf(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shelves[code]; !ok {
		return ErrShelfNotFound
	}
	delete(m.shelves, code)
	delete(m.slots, code)
	return nil
}

func (m *memRepo) LoadLayout(_ context.Context, shelfCode string) (layout.Layout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return layout.Clone(m.slots[shelfCode]), nil
}

type memTx struct {
	shelves map[string]Shelf
	slots   map[string]layout.Layout
}

func (t *memTx) LockShelf(_ context.Context, code string) (Shelf, error) {
	s, ok := t.shelves[code]
	if !ok {
		return Shelf{}, ErrShelfNotFound
	}
	return s, nil
}

func (t *memTx) LoadLayout(_ context.Context, shelfCode string) (layout.Layout, error) {
	return layout.Clone(t.slots[shelfCode]), nil
}

func (t *memTx) InsertSlot(_ context.Context, shelfCode string, slot layout.Slot) error {
	for _, s := range t.slots[shelfCode] {
		if s.ProductCode == slot.ProductCode {
			return ErrProductPlaced
		}
	}
	t.slots[shelfCode] = append(t.slots[shelfCode], slot)
	return nil
}

func (t *memTx) DeleteSlot(_ context.Context, shelfCode, productCode string) error {
	current := t.slots[shelfCode]
	for i, s := range current {
		if s.ProductCode == productCode {
			t.slots[shelfCode] = append(current[:i:i], current[i+1:]...)
			return nil
		}
	}
	return ErrSlotNotFound
}

func (t *memTx) ReplaceLayout(_ context.Context, shelfCode string, l layout.Layout) error {
	t.slots[shelfCode] = layout.Clone(l)
	return nil
}

func (t *memTx) UpdateShelf(_ context.Context, shelf Shelf) error {
	if _, ok := t.shelves[shelf.Code]; !ok {
		return ErrShelfNotFound
	}
	t.shelves[shelf.Code] = shelf
	return nil
}

func (t *memTx) MaxRow(_ context.Context, shelfCode string) (int, error) {
	maxRow := 0
	for _, s := range t.slots[shelfCode] {
		if s.RowNumber > maxRow {
			maxRow = s.RowNumber
		}
	}
	return maxRow, nil
}

type auditStub struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *auditStub) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

func (a *auditStub) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type hookStub struct {
	mu     sync.Mutex
	shelfs []string
	err    error
}

func (h *hookStub) LayoutChanged(_ context.Context, shelfCode string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shelfs = append(h.shelfs, shelfCode)
	return h.err
}

func slot(code string, row, pos int) layout.Slot {
	return layout.Slot{ProductCode: code, RowNumber: row, Position: pos}
}
