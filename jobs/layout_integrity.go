package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/shelfboard/internal/jobs"
)

// LayoutChecker inspects and repairs stored layouts, implemented by *shelves.Service.
type LayoutChecker interface {
	ShelfCodes(ctx context.Context) ([]string, error)
	BrokenRows(ctx context.Context, shelfCode string) ([]int, error)
	CompactLayout(ctx context.Context, shelfCode string) (int, error)
}

// LayoutIntegrityJob finds rows whose positions are not 1..N and optionally
// renumbers them in their current order.
type LayoutIntegrityJob struct {
	Layouts LayoutChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLayoutIntegrityJob wires dependencies for the integrity handler.
func NewLayoutIntegrityJob(layouts LayoutChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *LayoutIntegrityJob {
	return &LayoutIntegrityJob{Layouts: layouts, Logger: logger, Metrics: metrics}
}

// Handle processes layout integrity tasks.
func (j *LayoutIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Layouts == nil {
		return errors.New("layout integrity: handler not configured")
	}
	var payload LayoutIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run sweeps the selected shelves and returns the number of rows compacted.
func (j *LayoutIntegrityJob) Run(ctx context.Context, payload LayoutIntegrityPayload) (int, error) {
	tracker := j.Metrics.Track(TaskLayoutIntegrity)
	logger := j.logger().With(slog.Bool("repair", payload.Repair))

	codes, err := resolveShelves(ctx, j.Layouts, payload.ShelfCode)
	if err != nil {
		logger.Error("load shelves", slog.Any("error", err))
		return 0, tracker.End(err)
	}

	var errs []error
	compacted := 0
	for _, code := range codes {
		broken, err := j.Layouts.BrokenRows(ctx, code)
		if err != nil {
			errs = append(errs, fmt.Errorf("shelf %s: %w", code, err))
			continue
		}
		if len(broken) == 0 {
			continue
		}
		logger.Warn("layout rows not contiguous", slog.String("shelf_code", code), slog.Any("rows", broken))
		if !payload.Repair {
			continue
		}
		n, err := j.Layouts.CompactLayout(ctx, code)
		if err != nil {
			errs = append(errs, fmt.Errorf("shelf %s: %w", code, err))
			continue
		}
		compacted += n
		j.Metrics.AddCompactedRows(code, n)
	}

	logger.Info("completed layout integrity sweep", slog.Int("shelves", len(codes)), slog.Int("rows_compacted", compacted))
	return compacted, tracker.End(errors.Join(errs...))
}

func (j *LayoutIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
