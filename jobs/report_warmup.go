package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/shelfboard/internal/jobs"
)

const (
	defaultWarmupParallel = 4
	warmupShelfTimeout    = 20 * time.Second
)

// ReportWarmer rebuilds cached summaries, implemented by *reports.Service.
type ReportWarmer interface {
	ShelfCodes(ctx context.Context) ([]string, error)
	Warm(ctx context.Context, shelfCode string) error
}

// ReportWarmupJob pre-populates shelf report caches.
type ReportWarmupJob struct {
	Reports  ReportWarmer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Parallel int
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{Reports: reports, Logger: logger, Metrics: metrics, Parallel: defaultWarmupParallel}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("shelf", payload.ShelfCode))
	start := time.Now()

	codes, err := resolveShelves(ctx, j.Reports, payload.ShelfCode)
	if err != nil {
		resultErr = err
		logger.Error("load warmup shelves", slog.Any("error", err))
		return resultErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.parallel())
	for _, code := range codes {
		g.Go(func() error {
			shelfCtx, cancel := context.WithTimeout(gctx, warmupShelfTimeout)
			defer cancel()
			if err := j.Reports.Warm(shelfCtx, code); err != nil {
				logger.Error("warm shelf", slog.String("shelf_code", code), slog.Any("error", err))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		return resultErr
	}

	logger.Info("completed report warmup", slog.Int("shelves", len(codes)), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ReportWarmupJob) parallel() int {
	if j.Parallel <= 0 {
		return defaultWarmupParallel
	}
	return j.Parallel
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
