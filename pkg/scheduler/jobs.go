package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gapo-hq/keygate/pkg/telemetry/journal"
)

// Job names.
const (
	JobKeyRefresh   = "key_refresh"
	JobJournalPrune = "journal_prune"
)

// Refresher is the part of the key cache the refresh job needs.
type Refresher interface {
	Refresh(ctx context.Context) error
	Len() int
}

// KeyRefreshJob refreshes the key cache on schedule.
func KeyRefreshJob(schedule string, cache Refresher, logger *slog.Logger) Job {
	if logger == nil {
		logger = slog.Default()
	}
	return Job{
		Name:     JobKeyRefresh,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			if err := cache.Refresh(ctx); err != nil {
				return fmt.Errorf("key refresh: %w", err)
			}
			logger.Debug("scheduled key refresh completed", "keys", cache.Len())
			return nil
		},
	}
}

// JournalPruneJob deletes journal records older than retentionDays. A
// negative retention keeps everything: the job is unscheduled and a manual
// run deletes nothing.
func JournalPruneJob(schedule string, store journal.Store, retentionDays int, logger *slog.Logger) Job {
	if retentionDays < 0 {
		schedule = ""
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Job{
		Name:     JobJournalPrune,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			if retentionDays < 0 {
				return nil
			}
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			deleted, err := store.Prune(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("journal prune: %w", err)
			}
			if deleted > 0 {
				logger.Info("journal pruned", "deleted_count", deleted, "cutoff", cutoff)
			}
			return nil
		},
	}
}
