package reports

import (
	"context"
	"errors"
)

// WarmupEnqueuer schedules an asynchronous summary rebuild.
type WarmupEnqueuer interface {
	EnqueueReportWarmup(ctx context.Context, shelfCode string) error
}

// LayoutHook invalidates a shelf's reports when its layout is saved and queues
// a rebuild. It satisfies shelves.LayoutSavedHook.
type LayoutHook struct {
	cache    *Cache
	enqueuer WarmupEnqueuer
}

// NewLayoutHook constructs LayoutHook. enqueuer may be nil.
func NewLayoutHook(cache *Cache, enqueuer WarmupEnqueuer) *LayoutHook {
	return &LayoutHook{cache: cache, enqueuer: enqueuer}
}

// LayoutChanged bumps the shelf's cache version and enqueues a warmup.
func (h *LayoutHook) LayoutChanged(ctx context.Context, shelfCode string) error {
	bumpErr := h.cache.Bump(ctx, shelfCode)
	var enqueueErr error
	if h.enqueuer != nil {
		enqueueErr = h.enqueuer.EnqueueReportWarmup(ctx, shelfCode)
	}
	return errors.Join(bumpErr, enqueueErr)
}
