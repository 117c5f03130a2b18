package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/newsgenie/storycache/cache"
	"github.com/newsgenie/storycache/remote"
)

// DefaultSyncInterval is how often the worker drains the pending queue.
const DefaultSyncInterval = 30 * time.Second

const drainMaxTries = 3

// SyncWorker drains the persisted pending-sync queue against the remote
// source, giving bookmark writes at-least-once delivery. Remote bookmark
// operations are idempotent, so replaying a mutation that already landed
// is harmless.
type SyncWorker struct {
	cache         *cache.Cache
	remote        remote.Source
	interval      time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

// NewSyncWorker creates a worker draining c's queue into src every
// interval (DefaultSyncInterval when zero).
func NewSyncWorker(c *cache.Cache, src remote.Source, interval time.Duration, logger *slog.Logger) *SyncWorker {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		cache:         c,
		remote:        src,
		interval:      interval,
		retryInterval: 500 * time.Millisecond,
		logger:        logger,
	}
}

// Start runs the worker until ctx is cancelled. An initial drain pass
// runs before the first tick.
func (w *SyncWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.DrainOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce replays queued mutations in submission order, stopping at
// the first one that still fails after retries so per-story ordering is
// preserved. Returns how many operations were replayed.
func (w *SyncWorker) DrainOnce(ctx context.Context) int {
	drained := 0
	for _, p := range w.cache.PendingSyncs() {
		if p.Op != cache.SyncOpBookmark && p.Op != cache.SyncOpUnbookmark {
			w.logger.Warn("dropping unknown sync op", "id", p.StoryID, "op", p.Op)
			w.cache.DeleteSync(p.ID)
			continue
		}

		if err := w.replay(ctx, p); err != nil {
			w.logger.Warn("bookmark sync failed, keeping for retry", "id", p.StoryID, "op", p.Op, "err", err)
			break
		}
		w.cache.DeleteSync(p.ID)
		drained++
	}
	return drained
}

func (w *SyncWorker) replay(ctx context.Context, p cache.PendingSync) error {
	operation := func() (struct{}, error) {
		var err error
		if p.Op == cache.SyncOpBookmark {
			err = w.remote.BookmarkStory(ctx, p.StoryID)
		} else {
			err = w.remote.UnbookmarkStory(ctx, p.StoryID)
		}
		return struct{}{}, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.retryInterval

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(drainMaxTries),
	)
	return err
}
