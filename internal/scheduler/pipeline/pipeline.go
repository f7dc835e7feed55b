package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/pkg/logger"
	"github.com/ledgerly/reportflow/internal/report"
	"github.com/ledgerly/reportflow/internal/scheduler/recurrence"
)

var ErrOwnerNotFound = errors.New("owner not found")

type OwnerDirectory interface {
	FindOwner(ctx context.Context, ownerID uuid.UUID) (*models.User, error)
}

type Encoder interface {
	Encode(ctx context.Context, data *report.ReportData, format models.Format) (*report.Artifact, error)
}

type Notifier interface {
	Notify(ctx context.Context, d report.Delivery) error
}

// Archive keeps a copy of every produced artifact. Optional.
type Archive interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Ledger remembers which due slots were already delivered so that a retry
// after a failed bookkeeping write does not email the owner twice. Optional.
type Ledger interface {
	Delivered(ctx context.Context, s *models.ReportSchedule) (bool, error)
	MarkDelivered(ctx context.Context, s *models.ReportSchedule) error
}

// RunStore persists the post-success state of a leased schedule.
type RunStore interface {
	RecordRun(ctx context.Context, id uuid.UUID, worker string, ranAt, nextRun time.Time) error
}

type RunHistory interface {
	Create(ctx context.Context, run *models.ReportRun) error
}

// Recorder receives execution outcomes for metrics.
type Recorder interface {
	RecordExecution(trigger, status string, d time.Duration)
	ExecutionStarted()
	ExecutionFinished()
}

type Dependencies struct {
	Owners   OwnerDirectory
	Renderer report.Renderer
	Encoder  Encoder
	Notifier Notifier
	Store    RunStore
	Runs     RunHistory
	Archive  Archive
	Ledger   Ledger
	Metrics  Recorder
}

type Option func(*Pipeline)

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline turns a schedule into a rendered, encoded and delivered report.
type Pipeline struct {
	deps Dependencies
	now  func() time.Time
}

func New(deps Dependencies, opts ...Option) *Pipeline {
	p := &Pipeline{deps: deps, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type outcome struct {
	period     report.Period
	artifact   *report.Artifact
	archiveKey *string
	delivered  bool
}

// Execute runs a due schedule while the caller holds its lease. On success
// the schedule is advanced and the lease dropped in a single update. On
// failure the schedule is left as it was and the caller releases the lease.
func (p *Pipeline) Execute(ctx context.Context, s *models.ReportSchedule, lease string) error {
	started := p.now()
	p.started()
	defer p.finished()

	schedLog := logger.WithSchedule(s.ID.String(), s.OwnerID.String())

	out, err := p.produce(ctx, s, true)
	if err != nil {
		p.fail(s, models.TriggerScheduled, started, out, err)
		return err
	}

	// Bookkeeping must survive a deadline that fired after delivery.
	persistCtx := context.WithoutCancel(ctx)

	ranAt := p.now()
	nextRun := recurrence.NextRun(s.Frequency, ranAt.In(s.Location()), recurrence.HintsFor(s))
	if err := p.deps.Store.RecordRun(persistCtx, s.ID, lease, ranAt, nextRun); err != nil {
		err = fmt.Errorf("record run: %w", err)
		schedLog.Error().Err(err).Msg("Report delivered but schedule state was not saved")
		p.record(persistCtx, s, models.TriggerScheduled, models.RunStatusFailed, started, out, err)
		return err
	}

	p.record(persistCtx, s, models.TriggerScheduled, models.RunStatusSucceeded, started, out, nil)

	schedLog.Info().
		Str("trigger", models.TriggerScheduled).
		Str("period", out.period.Label()).
		Time("next_run_at", nextRun).
		Dur("duration", p.now().Sub(started)).
		Msg("Scheduled report completed")
	return nil
}

// Deliver produces and sends a report on demand. It never advances the
// schedule.
func (p *Pipeline) Deliver(ctx context.Context, s *models.ReportSchedule) error {
	started := p.now()
	p.started()
	defer p.finished()

	out, err := p.produce(ctx, s, false)
	if err != nil {
		p.fail(s, models.TriggerManual, started, out, err)
		return err
	}

	p.record(context.WithoutCancel(ctx), s, models.TriggerManual, models.RunStatusSucceeded, started, out, nil)

	schedLog := logger.WithSchedule(s.ID.String(), s.OwnerID.String())
	schedLog.Info().
		Str("trigger", models.TriggerManual).
		Dur("duration", p.now().Sub(started)).
		Msg("Manual report sent")
	return nil
}

func (p *Pipeline) produce(ctx context.Context, s *models.ReportSchedule, dedupe bool) (*outcome, error) {
	out := &outcome{}

	owner, err := p.deps.Owners.FindOwner(ctx, s.OwnerID)
	if err != nil {
		return out, fmt.Errorf("find owner: %w", err)
	}

	out.period = report.PeriodFor(s.ReportType, p.now().In(s.Location()))

	data, err := bounded(ctx, func() (*report.ReportData, error) {
		return p.deps.Renderer.Render(ctx, s.OwnerID, s.ReportType, out.period, s.Location())
	})
	if err != nil {
		return out, fmt.Errorf("render %s: %w", s.ReportType, err)
	}
	data.OwnerName = owner.FullName()

	artifact, err := bounded(ctx, func() (*report.Artifact, error) {
		return p.deps.Encoder.Encode(ctx, data, s.Format)
	})
	if err != nil {
		return out, fmt.Errorf("encode %s: %w", s.Format, err)
	}
	out.artifact = artifact

	if s.DeliverByEmail {
		if err := p.notify(ctx, s, owner, data, artifact, dedupe, out); err != nil {
			return out, err
		}
	}

	if p.deps.Archive != nil {
		key := path.Join(s.OwnerID.String(), s.ID.String(),
			fmt.Sprintf("%s-%s", p.now().UTC().Format("20060102T150405Z"), artifact.FileName))
		stored, err := p.deps.Archive.Put(ctx, key, artifact.ContentType, artifact.Data)
		if err != nil {
			log.Warn().Err(err).Str("schedule_id", s.ID.String()).Msg("Failed to archive report")
		} else {
			out.archiveKey = &stored
		}
	}

	return out, nil
}

func (p *Pipeline) notify(ctx context.Context, s *models.ReportSchedule, owner *models.User, data *report.ReportData, artifact *report.Artifact, dedupe bool, out *outcome) error {
	useLedger := dedupe && p.deps.Ledger != nil

	if useLedger {
		sent, err := p.deps.Ledger.Delivered(ctx, s)
		if err != nil {
			log.Warn().Err(err).Str("schedule_id", s.ID.String()).Msg("Delivery ledger unavailable")
		} else if sent {
			log.Info().Str("schedule_id", s.ID.String()).Msg("Report already delivered for this slot")
			out.delivered = true
			return nil
		}
	}

	delivery := report.Delivery{
		To:            owner.Email,
		RecipientName: owner.FullName(),
		Subject:       data.Title,
		Report:        data,
		Attachment:    artifact,
	}
	// The ledger is marked from the sending goroutine so a send that lands
	// after the deadline still suppresses the retry.
	_, err := bounded(ctx, func() (struct{}, error) {
		if err := p.deps.Notifier.Notify(ctx, delivery); err != nil {
			return struct{}{}, err
		}
		if useLedger {
			if err := p.deps.Ledger.MarkDelivered(context.WithoutCancel(ctx), s); err != nil {
				log.Warn().Err(err).Str("schedule_id", s.ID.String()).Msg("Failed to mark delivery")
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	out.delivered = true
	return nil
}

// bounded runs fn on its own goroutine and gives up once ctx is done, so a
// collaborator that ignores ctx cannot hold a worker past its deadline.
func bounded[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (p *Pipeline) fail(s *models.ReportSchedule, trigger string, started time.Time, out *outcome, err error) {
	schedLog := logger.WithSchedule(s.ID.String(), s.OwnerID.String())
	status := models.RunStatusFailed
	event := schedLog.Error()
	if errors.Is(err, ErrOwnerNotFound) {
		status = models.RunStatusSkipped
		event = schedLog.Warn()
	}

	event.Err(err).
		Str("trigger", trigger).
		Msg("Report execution failed")

	p.record(context.Background(), s, trigger, status, started, out, err)
}

func (p *Pipeline) record(ctx context.Context, s *models.ReportSchedule, trigger, status string, started time.Time, out *outcome, runErr error) {
	finished := p.now().UTC()
	duration := finished.Sub(started)

	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordExecution(trigger, status, duration)
	}
	if p.deps.Runs == nil {
		return
	}

	run := &models.ReportRun{
		ScheduleID: s.ID,
		OwnerID:    s.OwnerID,
		Trigger:    trigger,
		Status:     status,
		Format:     s.Format,
		StartedAt:  started.UTC(),
		FinishedAt: &finished,
		DurationMs: duration.Milliseconds(),
	}
	if out != nil {
		if out.period.Year != 0 {
			run.Period = out.period.Label()
		}
		if out.artifact != nil {
			run.FileName = out.artifact.FileName
			run.SizeBytes = out.artifact.Size()
		}
		run.ArchiveKey = out.archiveKey
		run.Delivered = out.delivered
	}
	if runErr != nil {
		msg := runErr.Error()
		run.ErrorMessage = &msg
	}

	if err := p.deps.Runs.Create(ctx, run); err != nil {
		log.Warn().Err(err).Str("schedule_id", s.ID.String()).Msg("Failed to save run history")
	}
}

func (p *Pipeline) started() {
	if p.deps.Metrics != nil {
		p.deps.Metrics.ExecutionStarted()
	}
}

func (p *Pipeline) finished() {
	if p.deps.Metrics != nil {
		p.deps.Metrics.ExecutionFinished()
	}
}
