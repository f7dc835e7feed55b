package recovery

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type RunPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type PruneRecorder interface {
	IncPruned(n int64)
}

// Cleanup deletes run history older than the retention window.
type Cleanup struct {
	runs          RunPruner
	recorder      PruneRecorder
	retentionDays int
	now           func() time.Time
}

func NewCleanup(runs RunPruner, recorder PruneRecorder, retentionDays int) *Cleanup {
	return &Cleanup{
		runs:          runs,
		recorder:      recorder,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

func (c *Cleanup) CleanupOnce(ctx context.Context) (int64, error) {
	if c.retentionDays <= 0 {
		return 0, nil
	}

	cutoff := c.now().AddDate(0, 0, -c.retentionDays)
	deleted, err := c.runs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to cleanup old report runs")
		return 0, err
	}

	if deleted > 0 {
		log.Info().
			Int64("deleted", deleted).
			Int("retention_days", c.retentionDays).
			Msg("Cleaned up old report runs")
		if c.recorder != nil {
			c.recorder.IncPruned(deleted)
		}
	}
	return deleted, nil
}

func (c *Cleanup) Run(ctx context.Context) {
	_, _ = c.CleanupOnce(ctx)
}
