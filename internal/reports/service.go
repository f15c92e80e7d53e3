package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/shelfboard/internal/layout"
	"github.com/odyssey-erp/shelfboard/internal/shared"
	"github.com/odyssey-erp/shelfboard/internal/shelves"
)

const summaryBuildTimeout = 30 * time.Second

// RepositoryPort abstracts movement persistence.
type RepositoryPort interface {
	ListMovements(ctx context.Context, shelfCode string, until time.Time) ([]Movement, error)
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
}

// ShelfSource provides shelf metadata and layouts, implemented by *shelves.Service.
type ShelfSource interface {
	GetShelf(ctx context.Context, code string) (shelves.Shelf, error)
	LoadLayout(ctx context.Context, shelfCode string) (layout.Layout, error)
	ShelfCodes(ctx context.Context) ([]string, error)
}

// AuditPort records movement entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service builds shelf summaries.
type Service struct {
	repo   RepositoryPort
	shelfs ShelfSource
	cache  *Cache
	audit  AuditPort
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService constructs the reports service. cache and audit may be nil.
func NewService(repo RepositoryPort, shelfs ShelfSource, cache *Cache, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, shelfs: shelfs, cache: cache, audit: audit, logger: logger, now: time.Now}
}

// ShelfSummary returns the cached summary of a shelf for period, building it on miss.
// Concurrent misses for the same key share one build.
func (s *Service) ShelfSummary(ctx context.Context, shelfCode string, period Period) (Summary, error) {
	shelf, err := s.shelfs.GetShelf(ctx, shelfCode)
	if err != nil {
		return Summary{}, err
	}
	if !period.To.After(period.From) {
		return Summary{}, ErrInvalidPeriod
	}
	key, err := s.cache.BuildKey(ctx, shelf.Code, "summary", period.From.UTC().Format(time.RFC3339), period.To.UTC().Format(time.RFC3339))
	if err != nil {
		return Summary{}, err
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		// The build is shared by every waiting caller, so it must outlive the first one.
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryBuildTimeout)
		defer cancel()
		var summary Summary
		err := s.cache.FetchJSON(buildCtx, key, &summary, func(ctx context.Context) (any, error) {
			return s.build(ctx, shelf.Code, period)
		})
		return summary, err
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

// Warm rebuilds the month-to-date summary of a shelf into the cache.
func (s *Service) Warm(ctx context.Context, shelfCode string) error {
	_, err := s.ShelfSummary(ctx, shelfCode, MonthToDate(s.now()))
	return err
}

// ShelfCodes lists every shelf for fan-out jobs.
func (s *Service) ShelfCodes(ctx context.Context) ([]string, error) {
	return s.shelfs.ShelfCodes(ctx)
}

// RecordMovement validates and stores a movement, then invalidates the shelf's reports.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (Movement, error) {
	m := Movement{
		ShelfCode:   strings.ToUpper(strings.TrimSpace(input.ShelfCode)),
		ProductCode: strings.TrimSpace(input.ProductCode),
		Kind:        MovementKind(strings.ToUpper(string(input.Kind))),
		Qty:         input.Qty,
		UnitPrice:   input.UnitPrice,
		UnitCost:    input.UnitCost,
		OccurredAt:  input.OccurredAt,
	}
	if err := validateMovement(m); err != nil {
		return Movement{}, err
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = s.now()
	}
	m.OccurredAt = m.OccurredAt.UTC()

	stored, err := s.repo.InsertMovement(ctx, m)
	if err != nil {
		return Movement{}, err
	}
	if err := s.cache.Bump(ctx, stored.ShelfCode); err != nil {
		s.logger.Warn("report cache bump", slog.String("shelf", stored.ShelfCode), slog.Any("error", err))
	}
	if s.audit != nil {
		actor := input.Actor
		if actor == "" {
			actor = shared.AnonymousActor
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "movement:record",
			Entity:   "shelf",
			EntityID: stored.ShelfCode,
			Meta: map[string]any{
				"movement_id":  stored.ID,
				"product_code": stored.ProductCode,
				"kind":         string(stored.Kind),
				"qty":          stored.Qty,
			},
		}); err != nil {
			s.logger.Warn("audit record", slog.String("action", "movement:record"), slog.Any("error", err))
		}
	}
	return stored, nil
}

func (s *Service) build(ctx context.Context, shelfCode string, period Period) (Summary, error) {
	l, err := s.shelfs.LoadLayout(ctx, shelfCode)
	if err != nil {
		return Summary{}, err
	}
	movements, err := s.repo.ListMovements(ctx, shelfCode, period.To)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(shelfCode, period, l, movements, s.now()), nil
}

func validateMovement(m Movement) error {
	switch {
	case m.ShelfCode == "" || m.ProductCode == "":
		return fmt.Errorf("%w: shelf and product code required", ErrInvalidMovement)
	case !m.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMovement, m.Kind)
	case m.Qty <= 0:
		return fmt.Errorf("%w: qty must be positive", ErrInvalidMovement)
	case m.UnitPrice.IsNegative() || m.UnitCost.IsNegative():
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidMovement)
	}
	return nil
}
