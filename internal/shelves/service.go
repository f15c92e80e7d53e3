package shelves

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/shelfboard/internal/layout"
	"github.com/odyssey-erp/shelfboard/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListShelves(ctx context.Context, filter ListFilter) ([]Shelf, int, error)
	ListShelfCodes(ctx context.Context) ([]string, error)
	GetShelf(ctx context.Context, code string) (Shelf, error)
	CreateShelf(ctx context.Context, shelf Shelf) (Shelf, error)
	DeleteShelf(ctx context.Context, code string) error
	LoadLayout(ctx context.Context, shelfCode string) (layout.Layout, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LayoutSavedHook is notified after a shelf's stored layout changes.
type LayoutSavedHook interface {
	LayoutChanged(ctx context.Context, shelfCode string) error
}

// Service coordinates shelf and slot operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	hook   LayoutSavedHook
	logger *slog.Logger
}

// NewService builds Service. audit and hook may be nil.
func NewService(repo RepositoryPort, audit AuditPort, hook LayoutSavedHook, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, hook: hook, logger: logger}
}

// ListShelves returns a page of shelves and the total count.
func (s *Service) ListShelves(ctx context.Context, filter ListFilter) ([]Shelf, shared.Pagination, error) {
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.repo.ListShelves(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// ShelfCodes lists every shelf code.
func (s *Service) ShelfCodes(ctx context.Context) ([]string, error) {
	return s.repo.ListShelfCodes(ctx)
}

// GetShelf loads a shelf by code.
func (s *Service) GetShelf(ctx context.Context, code string) (Shelf, error) {
	return s.repo.GetShelf(ctx, normalizeCode(code))
}

// CreateShelf registers a new shelf.
func (s *Service) CreateShelf(ctx context.Context, shelf Shelf, actor string) (Shelf, error) {
	shelf.Code = normalizeCode(shelf.Code)
	shelf.Name = strings.TrimSpace(shelf.Name)
	if shelf.Code == "" || shelf.Name == "" || shelf.Rows < 1 {
		return Shelf{}, fmt.Errorf("%w: code, name and rows >= 1 required", ErrInvalidShelf)
	}
	created, err := s.repo.CreateShelf(ctx, shelf)
	if err != nil {
		return Shelf{}, err
	}
	s.record(ctx, actor, "shelf:create", created.Code, map[string]any{"rows": created.Rows})
	return created, nil
}

// UpdateShelf changes name, location or row count. Rows may not shrink below an
// occupied row.
func (s *Service) UpdateShelf(ctx context.Context, shelf Shelf, actor string) (Shelf, error) {
	shelf.Code = normalizeCode(shelf.Code)
	shelf.Name = strings.TrimSpace(shelf.Name)
	if shelf.Rows < 1 {
		return Shelf{}, ErrRowOutOfRange
	}
	var updated Shelf
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockShelf(ctx, shelf.Code)
		if err != nil {
			return err
		}
		maxRow, err := tx.MaxRow(ctx, shelf.Code)
		if err != nil {
			return err
		}
		if shelf.Rows < maxRow {
			return fmt.Errorf("%w: row %d occupied", ErrRowsInUse, maxRow)
		}
		if shelf.Name == "" {
			shelf.Name = current.Name
		}
		shelf.CreatedAt = current.CreatedAt
		if err := tx.UpdateShelf(ctx, shelf); err != nil {
			return err
		}
		updated = shelf
		return nil
	})
	if err != nil {
		return Shelf{}, err
	}
	s.record(ctx, actor, "shelf:update", updated.Code, map[string]any{"rows": updated.Rows})
	return updated, nil
}

// DeleteShelf removes a shelf with all its slots.
func (s *Service) DeleteShelf(ctx context.Context, code, actor string) error {
	code = normalizeCode(code)
	if err := s.repo.DeleteShelf(ctx, code); err != nil {
		return err
	}
	s.record(ctx, actor, "shelf:delete", code, nil)
	s.notify(ctx, code)
	return nil
}

// LoadLayout returns the stored layout sorted by row and position.
func (s *Service) LoadLayout(ctx context.Context, shelfCode string) (layout.Layout, error) {
	l, err := s.repo.LoadLayout(ctx, normalizeCode(shelfCode))
	if err != nil {
		return nil, err
	}
	return layout.Sorted(l), nil
}

// GetLayout returns the layout view with display ordinals per row.
func (s *Service) GetLayout(ctx context.Context, shelfCode string) (LayoutView, error) {
	shelf, err := s.GetShelf(ctx, shelfCode)
	if err != nil {
		return LayoutView{}, err
	}
	l, err := s.LoadLayout(ctx, shelf.Code)
	if err != nil {
		return LayoutView{}, err
	}
	return NewLayoutView(shelf.Code, shelf.Rows, l), nil
}

// AssignProduct places a product in the first free position of a row.
func (s *Service) AssignProduct(ctx context.Context, input AssignInput) (layout.Slot, error) {
	input.ShelfCode = normalizeCode(input.ShelfCode)
	input.ProductCode = strings.TrimSpace(input.ProductCode)
	if input.ProductCode == "" {
		return layout.Slot{}, fmt.Errorf("%w: product code required", ErrInvalidShelf)
	}
	var placed layout.Slot
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		shelf, err := tx.LockShelf(ctx, input.ShelfCode)
		if err != nil {
			return err
		}
		if input.RowNumber < 1 || input.RowNumber > shelf.Rows {
			return fmt.Errorf("%w: row %d not in 1..%d", ErrRowOutOfRange, input.RowNumber, shelf.Rows)
		}
		current, err := tx.LoadLayout(ctx, shelf.Code)
		if err != nil {
			return err
		}
		if _, ok := layout.ProductCodes(current)[input.ProductCode]; ok {
			return ErrProductPlaced
		}
		placed = layout.Slot{
			ProductCode: input.ProductCode,
			RowNumber:   input.RowNumber,
			Position:    layout.NextAvailablePosition(layout.Rows(current)[input.RowNumber]),
		}
		return tx.InsertSlot(ctx, shelf.Code, placed)
	})
	if err != nil {
		return layout.Slot{}, err
	}
	s.record(ctx, input.Actor, "slot:assign", input.ShelfCode, map[string]any{
		"product_code": placed.ProductCode,
		"row_number":   placed.RowNumber,
		"position":     placed.Position,
	})
	s.notify(ctx, input.ShelfCode)
	return placed, nil
}

// RemoveProduct deletes a product's slot. The freed position stays empty until
// the next assignment to that row.
func (s *Service) RemoveProduct(ctx context.Context, shelfCode, productCode, actor string) error {
	shelfCode = normalizeCode(shelfCode)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockShelf(ctx, shelfCode); err != nil {
			return err
		}
		return tx.DeleteSlot(ctx, shelfCode, strings.TrimSpace(productCode))
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, "slot:remove", shelfCode, map[string]any{"product_code": productCode})
	s.notify(ctx, shelfCode)
	return nil
}

// SaveLayout replaces the stored layout of a shelf. next must hold exactly the
// products currently stored, every row within the shelf and no shared
// positions. Gaps left by removals are kept as they are.
func (s *Service) SaveLayout(ctx context.Context, shelfCode string, next layout.Layout, actor string) (LayoutView, error) {
	shelfCode = normalizeCode(shelfCode)
	if err := layout.CheckSlots(next); err != nil {
		return LayoutView{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	next = layout.Sorted(next)
	var shelf Shelf
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		shelf, err = tx.LockShelf(ctx, shelfCode)
		if err != nil {
			return err
		}
		for _, slot := range next {
			if slot.RowNumber > shelf.Rows {
				return fmt.Errorf("%w: row %d not in 1..%d", ErrRowOutOfRange, slot.RowNumber, shelf.Rows)
			}
		}
		stored, err := tx.LoadLayout(ctx, shelfCode)
		if err != nil {
			return err
		}
		if !sameProducts(stored, next) {
			return ErrLayoutMismatch
		}
		return tx.ReplaceLayout(ctx, shelfCode, next)
	})
	if err != nil {
		return LayoutView{}, err
	}
	s.record(ctx, actor, "layout:save", shelfCode, map[string]any{"slots": len(next)})
	s.notify(ctx, shelfCode)
	return NewLayoutView(shelfCode, shelf.Rows, next), nil
}

// CompactLayout renumbers rows whose positions are not 1..N and returns the
// number of rows rewritten.
func (s *Service) CompactLayout(ctx context.Context, shelfCode string) (int, error) {
	shelfCode = normalizeCode(shelfCode)
	var broken []int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockShelf(ctx, shelfCode); err != nil {
			return err
		}
		current, err := tx.LoadLayout(ctx, shelfCode)
		if err != nil {
			return err
		}
		broken = layout.BrokenRows(current)
		if len(broken) == 0 {
			return nil
		}
		return tx.ReplaceLayout(ctx, shelfCode, layout.Compact(current))
	})
	if err != nil {
		return 0, err
	}
	if len(broken) > 0 {
		s.record(ctx, "system", "layout:compact", shelfCode, map[string]any{"rows": broken})
		s.notify(ctx, shelfCode)
	}
	return len(broken), nil
}

// BrokenRows reports rows of the stored layout that are not numbered 1..N.
func (s *Service) BrokenRows(ctx context.Context, shelfCode string) ([]int, error) {
	l, err := s.repo.LoadLayout(ctx, normalizeCode(shelfCode))
	if err != nil {
		return nil, err
	}
	return layout.BrokenRows(l), nil
}

func (s *Service) record(ctx context.Context, actor, action, shelfCode string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if actor == "" {
		actor = shared.AnonymousActor
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "shelf",
		EntityID: shelfCode,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, shelfCode string) {
	if s.hook == nil {
		return
	}
	if err := s.hook.LayoutChanged(ctx, shelfCode); err != nil {
		s.logger.Warn("layout changed hook", slog.String("shelf", shelfCode), slog.Any("error", err))
	}
}

func sameProducts(a, b layout.Layout) bool {
	if len(a) != len(b) {
		return false
	}
	codes := layout.ProductCodes(a)
	for _, s := range b {
		if _, ok := codes[s.ProductCode]; !ok {
			return false
		}
	}
	return true
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
