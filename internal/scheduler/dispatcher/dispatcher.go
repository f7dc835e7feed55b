package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/scheduler/store"
)

// Executor runs one leased schedule.
type Executor interface {
	Execute(ctx context.Context, s *models.ReportSchedule, lease string) error
}

type LeaseStore interface {
	Claim(ctx context.Context, id uuid.UUID, worker string, now, until time.Time) (bool, error)
	Release(ctx context.Context, id uuid.UUID, worker string) error
}

type Config struct {
	WorkerID         string
	Workers          int
	ExecutionTimeout time.Duration
	LeaseDuration    time.Duration
	StartsPerSecond  float64
}

// Dispatcher runs due schedules on a bounded pool of goroutines. A schedule
// is executed only while this process holds its lease and is never run
// twice concurrently by the same process.
type Dispatcher struct {
	store    LeaseStore
	executor Executor
	cfg      Config
	limiter  *rate.Limiter
	now      func() time.Time

	inFlight sync.Map // schedule id -> struct{}

	// Metrics
	dispatched atomic.Int64
	succeeded  atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
}

func NewDispatcher(leases LeaseStore, executor Executor, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = 30 * time.Second
	}
	if cfg.LeaseDuration < cfg.ExecutionTimeout {
		cfg.LeaseDuration = 2 * cfg.ExecutionTimeout
	}

	d := &Dispatcher{
		store:    leases,
		executor: executor,
		cfg:      cfg,
		now:      time.Now,
	}
	if cfg.StartsPerSecond > 0 {
		burst := int(cfg.StartsPerSecond)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.StartsPerSecond), burst)
	}
	return d
}

type DispatchResult struct {
	ScheduleID string
	Success    bool
	Skipped    bool
	Error      error
}

func (d *Dispatcher) Dispatch(ctx context.Context, s *models.ReportSchedule) *DispatchResult {
	result := &DispatchResult{ScheduleID: s.ID.String()}

	if _, running := d.inFlight.LoadOrStore(s.ID, struct{}{}); running {
		result.Skipped = true
		d.skipped.Add(1)
		return result
	}
	defer d.inFlight.Delete(s.ID)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			result.Skipped = true
			d.skipped.Add(1)
			return result
		}
	}

	now := d.now()
	claimed, err := d.store.Claim(ctx, s.ID, d.cfg.WorkerID, now, now.Add(d.cfg.LeaseDuration))
	if err != nil {
		result.Error = err
		d.failed.Add(1)
		log.Error().Err(err).Str("schedule_id", result.ScheduleID).Msg("Failed to claim schedule")
		return result
	}
	if !claimed {
		// Another instance got it or it is no longer due.
		result.Skipped = true
		d.skipped.Add(1)
		return result
	}
	d.dispatched.Add(1)

	execCtx, cancel := context.WithTimeout(ctx, d.cfg.ExecutionTimeout)
	err = d.executor.Execute(execCtx, s, d.cfg.WorkerID)
	cancel()

	if err != nil {
		result.Error = err
		d.failed.Add(1)
		if !errors.Is(err, store.ErrLeaseLost) {
			if relErr := d.store.Release(context.WithoutCancel(ctx), s.ID, d.cfg.WorkerID); relErr != nil {
				log.Error().Err(relErr).Str("schedule_id", result.ScheduleID).Msg("Failed to release schedule lease")
			}
		}
		return result
	}

	result.Success = true
	d.succeeded.Add(1)
	return result
}

// DispatchBatch executes the schedules concurrently and waits for all of them.
func (d *Dispatcher) DispatchBatch(ctx context.Context, schedules []*models.ReportSchedule) []*DispatchResult {
	results := make([]*DispatchResult, len(schedules))
	if len(schedules) == 0 {
		return results
	}

	workers := d.cfg.Workers
	if workers > len(schedules) {
		workers = len(schedules)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = d.Dispatch(ctx, schedules[idx])
			}
		}()
	}

	for i := range schedules {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

type Stats struct {
	Dispatched int64
	Succeeded  int64
	Skipped    int64
	Failed     int64
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Succeeded:  d.succeeded.Load(),
		Skipped:    d.skipped.Load(),
		Failed:     d.failed.Load(),
	}
}
