package recovery

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/scheduler/store"
)

type RecoveryRecorder interface {
	IncRecovered(n int64)
}

// LeaseRecovery frees leases left behind by executions that crashed or were
// killed before they could record or release.
type LeaseRecovery struct {
	store    store.ScheduleStore
	recorder RecoveryRecorder
	now      func() time.Time
}

func NewLeaseRecovery(scheduleStore store.ScheduleStore, recorder RecoveryRecorder) *LeaseRecovery {
	return &LeaseRecovery{
		store:    scheduleStore,
		recorder: recorder,
		now:      time.Now,
	}
}

func (r *LeaseRecovery) RecoverOnce(ctx context.Context) (int64, error) {
	released, err := r.store.ReleaseExpired(ctx, r.now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to release expired leases")
		return 0, err
	}

	if released > 0 {
		log.Warn().Int64("released", released).Msg("Released expired schedule leases")
		if r.recorder != nil {
			r.recorder.IncRecovered(released)
		}
	}
	return released, nil
}

func (r *LeaseRecovery) Run(ctx context.Context) {
	_, _ = r.RecoverOnce(ctx)
}
