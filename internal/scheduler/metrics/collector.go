package metrics

import (
	"sync/atomic"
	"time"

	prom "github.com/ledgerly/reportflow/internal/pkg/metrics"
)

// Collector keeps in-process scheduler counters for the health endpoint and
// mirrors them to Prometheus.
type Collector struct {
	// Counters
	sweepsTotal    atomic.Int64
	dueTotal       atomic.Int64
	succeededTotal atomic.Int64
	failedTotal    atomic.Int64
	skippedTotal   atomic.Int64
	recoveredTotal atomic.Int64
	prunedTotal    atomic.Int64

	// Gauges
	inFlight        atomic.Int64
	activeSchedules atomic.Int64

	// Timing
	lastSweepDuration atomic.Int64 // milliseconds
	lastSweepAt       atomic.Int64 // unix seconds

	startedAt time.Time
}

func NewCollector() *Collector {
	return &Collector{
		startedAt: time.Now(),
	}
}

func (c *Collector) RecordSweep(d time.Duration, due int) {
	c.sweepsTotal.Add(1)
	c.dueTotal.Add(int64(due))
	c.lastSweepDuration.Store(d.Milliseconds())
	c.lastSweepAt.Store(time.Now().Unix())
	prom.RecordSweep(d, due)
}

func (c *Collector) RecordExecution(trigger, status string, d time.Duration) {
	switch status {
	case "succeeded":
		c.succeededTotal.Add(1)
	case "failed":
		c.failedTotal.Add(1)
	default:
		c.skippedTotal.Add(1)
	}
	prom.RecordExecution(trigger, status, d)
}

func (c *Collector) ExecutionStarted() {
	c.inFlight.Add(1)
	prom.ExecutionsInFlight.Inc()
}

func (c *Collector) ExecutionFinished() {
	c.inFlight.Add(-1)
	prom.ExecutionsInFlight.Dec()
}

func (c *Collector) IncRecovered(n int64) {
	c.recoveredTotal.Add(n)
	prom.LeasesRecoveredTotal.Add(float64(n))
}

func (c *Collector) IncPruned(n int64) {
	c.prunedTotal.Add(n)
	prom.RunsPrunedTotal.Add(float64(n))
}

func (c *Collector) SetActiveSchedules(count int64) {
	c.activeSchedules.Store(count)
	prom.ActiveSchedules.Set(float64(count))
}

type Snapshot struct {
	SweepsTotal       int64      `json:"sweeps_total"`
	DueTotal          int64      `json:"due_total"`
	SucceededTotal    int64      `json:"succeeded_total"`
	FailedTotal       int64      `json:"failed_total"`
	SkippedTotal      int64      `json:"skipped_total"`
	RecoveredTotal    int64      `json:"recovered_total"`
	PrunedTotal       int64      `json:"pruned_total"`
	InFlight          int64      `json:"in_flight"`
	ActiveSchedules   int64      `json:"active_schedules"`
	LastSweepDuration int64      `json:"last_sweep_duration_ms"`
	LastSweepAt       *time.Time `json:"last_sweep_at,omitempty"`
	UptimeSeconds     int64      `json:"uptime_s"`
}

func (c *Collector) Snapshot() *Snapshot {
	s := &Snapshot{
		SweepsTotal:       c.sweepsTotal.Load(),
		DueTotal:          c.dueTotal.Load(),
		SucceededTotal:    c.succeededTotal.Load(),
		FailedTotal:       c.failedTotal.Load(),
		SkippedTotal:      c.skippedTotal.Load(),
		RecoveredTotal:    c.recoveredTotal.Load(),
		PrunedTotal:       c.prunedTotal.Load(),
		InFlight:          c.inFlight.Load(),
		ActiveSchedules:   c.activeSchedules.Load(),
		LastSweepDuration: c.lastSweepDuration.Load(),
		UptimeSeconds:     int64(time.Since(c.startedAt).Seconds()),
	}
	if at := c.lastSweepAt.Load(); at > 0 {
		t := time.Unix(at, 0).UTC()
		s.LastSweepAt = &t
	}
	return s
}
