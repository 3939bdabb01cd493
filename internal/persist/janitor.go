package persist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Purger removes tombstones older than a cutoff.
type Purger interface {
	PurgeTombstones(ctx context.Context, before time.Time) (int64, error)
}

// Janitor periodically purges expired tombstones from the local cache.
type Janitor struct {
	purger    Purger
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
}

// NewJanitor validates schedule and prepares a janitor. Call Start to run it.
func NewJanitor(purger Purger, schedule string, retention time.Duration, logger *slog.Logger, metrics *Metrics) (*Janitor, error) {
	if purger == nil {
		return nil, fmt.Errorf("purger is required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("tombstone retention must be positive")
	}
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = "@every 1h"
	}
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{
		purger:    purger,
		retention: retention,
		cron:      cron.New(cron.WithParser(cronParser)),
		logger:    logger.With("component", "janitor"),
		metrics:   metrics,
		now:       time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			j.logger.Warn("tombstone purge failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid compaction schedule: %w", err)
	}
	return j, nil
}

// RunOnce purges tombstones older than the retention window.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.purger.PurgeTombstones(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	j.metrics.RecordPurged(n)
	if n > 0 {
		j.logger.Info("purged tombstones", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running purge, or for ctx to end.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
