package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/domain/repositories"
	pkgredis "github.com/ledgerly/reportflow/internal/pkg/redis"
	"github.com/ledgerly/reportflow/internal/report"
	"github.com/ledgerly/reportflow/internal/report/export"
	"github.com/ledgerly/reportflow/internal/scheduler/cron"
	"github.com/ledgerly/reportflow/internal/scheduler/dispatcher"
	"github.com/ledgerly/reportflow/internal/scheduler/metrics"
	"github.com/ledgerly/reportflow/internal/scheduler/pipeline"
	"github.com/ledgerly/reportflow/internal/scheduler/poller"
	"github.com/ledgerly/reportflow/internal/scheduler/recovery"
	"github.com/ledgerly/reportflow/internal/scheduler/store"
)

type Scheduler struct {
	config *Config

	// Components
	poller     *poller.Poller
	dispatcher *dispatcher.Dispatcher
	leases     *recovery.LeaseRecovery
	cleanup    *recovery.Cleanup
	jobs       *cron.Runner
	schedules  *repositories.ReportScheduleRepository
	metrics    *metrics.Collector

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Dependencies struct {
	DB       *gorm.DB
	Redis    *pkgredis.Client // optional, enables the delivery ledger
	Notifier pipeline.Notifier
	Archive  pipeline.Archive // optional
}

func New(cfg *Config, deps *Dependencies) (*Scheduler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	collector := metrics.NewCollector()
	scheduleStore := store.NewGormStore(deps.DB)
	runs := repositories.NewReportRunRepository(deps.DB)
	pipe := NewPipeline(cfg, deps, collector)

	disp := dispatcher.NewDispatcher(scheduleStore, pipe, dispatcher.Config{
		WorkerID:         cfg.InstanceID,
		Workers:          cfg.Workers,
		ExecutionTimeout: cfg.ExecutionTimeout,
		LeaseDuration:    cfg.LeaseDuration,
		StartsPerSecond:  cfg.StartsPerSecond,
	})

	poll := poller.NewPoller(scheduleStore, disp, cfg.BatchSize, cfg.SweepInterval)
	poll.SetRecorder(collector)

	return &Scheduler{
		config:     cfg,
		poller:     poll,
		dispatcher: disp,
		leases:     recovery.NewLeaseRecovery(scheduleStore, collector),
		cleanup:    recovery.NewCleanup(runs, collector, cfg.RetentionDays),
		jobs:       cron.NewRunner(5 * time.Minute),
		schedules:  repositories.NewReportScheduleRepository(deps.DB),
		metrics:    collector,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// NewPipeline builds the execution pipeline alone, for processes that send
// reports on demand without running sweeps. recorder may be nil.
func NewPipeline(cfg *Config, deps *Dependencies, recorder pipeline.Recorder) *pipeline.Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	pipeDeps := pipeline.Dependencies{
		Owners:   pipeline.NewUserDirectory(repositories.NewUserRepository(deps.DB)),
		Renderer: report.NewLedgerRenderer(deps.DB),
		Encoder:  export.NewDefaultEncoder(),
		Notifier: deps.Notifier,
		Store:    store.NewGormStore(deps.DB),
		Runs:     repositories.NewReportRunRepository(deps.DB),
		Archive:  deps.Archive,
		Metrics:  recorder,
	}
	if deps.Redis != nil {
		pipeDeps.Ledger = pipeline.NewRedisLedger(deps.Redis, cfg.DeliveryDedupTTL)
	}
	return pipeline.New(pipeDeps)
}

func (s *Scheduler) Start() error {
	log.Info().
		Str("instance_id", s.config.InstanceID).
		Dur("sweep_interval", s.config.SweepInterval).
		Int("batch_size", s.config.BatchSize).
		Int("workers", s.config.Workers).
		Msg("Starting scheduler")

	if err := s.jobs.Add("lease-recovery", s.config.LeaseRecoverySpec, s.leases.Run); err != nil {
		return err
	}
	if err := s.jobs.Add("run-cleanup", s.config.CleanupSpec, s.cleanup.Run); err != nil {
		return err
	}
	if err := s.jobs.Add("active-gauge", "@every 1m", s.refreshActive); err != nil {
		return err
	}

	// Leases from a previous crash of this or another instance.
	_, _ = s.leases.RecoverOnce(s.ctx)
	s.refreshActive(s.ctx)

	s.jobs.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.poller.Run(s.ctx)
	}()

	return nil
}

func (s *Scheduler) Stop() error {
	log.Info().Msg("Stopping scheduler...")

	s.cancel()

	// Wait with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.jobs.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Scheduler stopped gracefully")
	case <-time.After(s.config.ShutdownTimeout):
		log.Warn().Msg("Scheduler shutdown timed out")
	}

	return nil
}

func (s *Scheduler) refreshActive(ctx context.Context) {
	count, err := s.schedules.CountActive(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count active schedules")
		return
	}
	s.metrics.SetActiveSchedules(count)
}

// SweepOnce runs one synchronous sweep.
func (s *Scheduler) SweepOnce(ctx context.Context) {
	s.poller.PollOnce(ctx)
}

func (s *Scheduler) Metrics() *metrics.Collector {
	return s.metrics
}

func (s *Scheduler) Health() map[string]interface{} {
	snapshot := s.metrics.Snapshot()
	pollerStats := s.poller.Stats()
	dispatcherStats := s.dispatcher.Stats()

	return map[string]interface{}{
		"instance_id":      s.config.InstanceID,
		"uptime_seconds":   snapshot.UptimeSeconds,
		"sweeps_total":     pollerStats.PollCount,
		"last_sweep_at":    pollerStats.LastPollAt,
		"dispatched_total": dispatcherStats.Dispatched,
		"succeeded_total":  dispatcherStats.Succeeded,
		"skipped_total":    dispatcherStats.Skipped,
		"failed_total":     dispatcherStats.Failed,
		"in_flight":        snapshot.InFlight,
		"active_schedules": snapshot.ActiveSchedules,
	}
}
