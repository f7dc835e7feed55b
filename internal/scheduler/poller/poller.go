package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/scheduler/dispatcher"
	"github.com/ledgerly/reportflow/internal/scheduler/store"
)

type Batcher interface {
	DispatchBatch(ctx context.Context, schedules []*models.ReportSchedule) []*dispatcher.DispatchResult
}

// SweepRecorder receives sweep timings. Optional.
type SweepRecorder interface {
	RecordSweep(d time.Duration, due int)
}

// Poller periodically sweeps the store for due schedules and hands them to
// the dispatcher. It never mutates schedules itself.
type Poller struct {
	store      store.ScheduleStore
	dispatcher Batcher
	recorder   SweepRecorder
	now        func() time.Time

	batchSize    int
	pollInterval time.Duration

	// Metrics
	pollCount   atomic.Int64
	lastPollAt  atomic.Value // time.Time
	lastPollDur atomic.Int64 // milliseconds
}

func NewPoller(
	scheduleStore store.ScheduleStore,
	disp Batcher,
	batchSize int,
	pollInterval time.Duration,
) *Poller {
	if batchSize <= 0 {
		batchSize = 100
	}
	p := &Poller{
		store:        scheduleStore,
		dispatcher:   disp,
		now:          time.Now,
		batchSize:    batchSize,
		pollInterval: pollInterval,
	}
	p.lastPollAt.Store(time.Time{})
	return p
}

func (p *Poller) SetRecorder(r SweepRecorder) {
	p.recorder = r
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll walks every due schedule in pages of batchSize. The keyset cursor
// moves past failed rows so a single sweep never selects them twice.
func (p *Poller) poll(ctx context.Context) {
	start := time.Now()
	p.pollCount.Add(1)
	now := p.now()

	var (
		cursor                     *store.DueCursor
		total, pages               int
		succeeded, skipped, failed int
	)
	for ctx.Err() == nil {
		schedules, err := p.store.GetDue(ctx, now, cursor, p.batchSize)
		if err != nil {
			log.Error().Err(err).Int("page", pages).Msg("Failed to fetch due schedules")
			break
		}
		if len(schedules) == 0 {
			break
		}
		pages++
		total += len(schedules)
		cursor = store.CursorAfter(schedules[len(schedules)-1])

		for _, result := range p.dispatcher.DispatchBatch(ctx, schedules) {
			switch {
			case result == nil:
			case result.Success:
				succeeded++
			case result.Skipped:
				skipped++
			default:
				failed++
			}
		}

		if len(schedules) < p.batchSize {
			break
		}
	}

	p.recordPoll(start, total)
	if total == 0 {
		return
	}

	log.Info().
		Int("succeeded", succeeded).
		Int("skipped", skipped).
		Int("failed", failed).
		Int("total", total).
		Int("pages", pages).
		Dur("duration", time.Since(start)).
		Msg("Sweep completed")
}

func (p *Poller) recordPoll(start time.Time, due int) {
	p.lastPollAt.Store(time.Now())
	p.lastPollDur.Store(time.Since(start).Milliseconds())
	if p.recorder != nil {
		p.recorder.RecordSweep(time.Since(start), due)
	}
}

func (p *Poller) PollOnce(ctx context.Context) {
	p.poll(ctx)
}

type Stats struct {
	PollCount     int64
	LastPollAt    time.Time
	LastPollDurMs int64
}

func (p *Poller) Stats() Stats {
	lastPoll := p.lastPollAt.Load().(time.Time)
	return Stats{
		PollCount:     p.pollCount.Load(),
		LastPollAt:    lastPoll,
		LastPollDurMs: p.lastPollDur.Load(),
	}
}
