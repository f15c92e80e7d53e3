package jobs

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup rebuilds cached shelf summaries.
	TaskReportWarmup = "reports:warmup"
	// TaskLayoutIntegrity checks stored layouts for broken row numbering.
	TaskLayoutIntegrity = "layout:integrity"
)

// ReportWarmupPayload selects the shelf to warm. An empty ShelfCode warms every shelf.
type ReportWarmupPayload struct {
	ShelfCode string `json:"shelf_code,omitempty"`
}

// LayoutIntegrityPayload controls the integrity sweep.
type LayoutIntegrityPayload struct {
	ShelfCode string `json:"shelf_code,omitempty"`
	Repair    bool   `json:"repair"`
}

// NewReportWarmupTask constructs an Asynq task for report warmup.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

// NewLayoutIntegrityTask constructs an Asynq task for the layout integrity sweep.
func NewLayoutIntegrityTask(payload LayoutIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLayoutIntegrity, data), nil
}

type shelfLister interface {
	ShelfCodes(ctx context.Context) ([]string, error)
}

// resolveShelves returns the single requested shelf or every shelf.
func resolveShelves(ctx context.Context, lister shelfLister, code string) ([]string, error) {
	if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
		return []string{code}, nil
	}
	return lister.ShelfCodes(ctx)
}
