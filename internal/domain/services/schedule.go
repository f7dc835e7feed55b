package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/domain/repositories"
	"github.com/ledgerly/reportflow/internal/pkg/metrics"
	"github.com/ledgerly/reportflow/internal/scheduler/guard"
	"github.com/ledgerly/reportflow/internal/scheduler/recurrence"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrInvalidSchedule  = errors.New("invalid schedule")
)

// Deliverer produces and sends a report for a schedule right away.
type Deliverer interface {
	Deliver(ctx context.Context, s *models.ReportSchedule) error
}

type ScheduleService struct {
	scheduleRepo *repositories.ReportScheduleRepository
	runRepo      *repositories.ReportRunRepository
	deliverer    Deliverer
	guard        *guard.ManualTrigger
	sendTimeout  time.Duration
	now          func() time.Time
}

type ScheduleOption func(*ScheduleService)

func WithClock(now func() time.Time) ScheduleOption {
	return func(s *ScheduleService) { s.now = now }
}

func WithSendTimeout(d time.Duration) ScheduleOption {
	return func(s *ScheduleService) { s.sendTimeout = d }
}

func NewScheduleService(
	scheduleRepo *repositories.ReportScheduleRepository,
	runRepo *repositories.ReportRunRepository,
	deliverer Deliverer,
	manual *guard.ManualTrigger,
	opts ...ScheduleOption,
) *ScheduleService {
	if manual == nil {
		manual = guard.NewManualTrigger(guard.DefaultCooldown)
	}
	s := &ScheduleService{
		scheduleRepo: scheduleRepo,
		runRepo:      runRepo,
		deliverer:    deliverer,
		guard:        manual,
		sendTimeout:  30 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timing holds the optional recurrence hints of a schedule.
type Timing struct {
	Hour       *int
	Minute     *int
	DayOfWeek  *int
	DayOfMonth *int
}

func (t Timing) hints() recurrence.Hints {
	return recurrence.Hints{Hour: t.Hour, Minute: t.Minute, DayOfWeek: t.DayOfWeek, DayOfMonth: t.DayOfMonth}
}

type CreateScheduleInput struct {
	OwnerID        uuid.UUID
	ReportType     models.ReportType
	Frequency      models.Frequency
	Format         models.Format
	DeliverByEmail bool
	Timing         Timing
	Timezone       string
}

func (s *ScheduleService) Create(ctx context.Context, input CreateScheduleInput) (*models.ReportSchedule, error) {
	if input.Timezone == "" {
		input.Timezone = "UTC"
	}

	schedule := &models.ReportSchedule{
		OwnerID:             input.OwnerID,
		ReportType:          input.ReportType,
		Frequency:           input.Frequency,
		Format:              input.Format,
		DeliverByEmail:      input.DeliverByEmail,
		IsActive:            true,
		ScheduledHour:       input.Timing.Hour,
		ScheduledMinute:     input.Timing.Minute,
		ScheduledDayOfWeek:  input.Timing.DayOfWeek,
		ScheduledDayOfMonth: input.Timing.DayOfMonth,
		Timezone:            input.Timezone,
	}
	if err := validateSchedule(schedule); err != nil {
		return nil, err
	}

	next := s.nextFromNow(schedule)
	schedule.NextRunAt = &next

	if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
		return nil, err
	}

	log.Info().
		Str("schedule_id", schedule.ID.String()).
		Str("owner_id", schedule.OwnerID.String()).
		Str("frequency", string(schedule.Frequency)).
		Time("next_run_at", next).
		Msg("Report schedule created")

	return schedule, nil
}

func (s *ScheduleService) List(ctx context.Context, ownerID uuid.UUID) ([]models.ReportSchedule, error) {
	return s.scheduleRepo.FindByOwner(ctx, ownerID)
}

func (s *ScheduleService) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.ReportSchedule, error) {
	schedule, err := s.scheduleRepo.FindOwned(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return schedule, nil
}

type UpdateScheduleInput struct {
	ReportType     *models.ReportType
	Frequency      *models.Frequency
	Format         *models.Format
	DeliverByEmail *bool
	// Timing replaces all recurrence hints when set.
	Timing   *Timing
	Timezone *string
}

func (s *ScheduleService) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateScheduleInput) (*models.ReportSchedule, error) {
	schedule, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	rescheduled := false

	if input.ReportType != nil {
		schedule.ReportType = *input.ReportType
		fields["report_type"] = schedule.ReportType
	}
	if input.Format != nil && *input.Format != schedule.Format {
		schedule.Format = *input.Format
		fields["format"] = schedule.Format
		rescheduled = true
	}
	if input.DeliverByEmail != nil {
		schedule.DeliverByEmail = *input.DeliverByEmail
		fields["deliver_by_email"] = schedule.DeliverByEmail
	}
	if input.Frequency != nil && *input.Frequency != schedule.Frequency {
		schedule.Frequency = *input.Frequency
		fields["frequency"] = schedule.Frequency
		rescheduled = true
	}
	if input.Timing != nil {
		schedule.ScheduledHour = input.Timing.Hour
		schedule.ScheduledMinute = input.Timing.Minute
		schedule.ScheduledDayOfWeek = input.Timing.DayOfWeek
		schedule.ScheduledDayOfMonth = input.Timing.DayOfMonth
		fields["scheduled_hour"] = schedule.ScheduledHour
		fields["scheduled_minute"] = schedule.ScheduledMinute
		fields["scheduled_day_of_week"] = schedule.ScheduledDayOfWeek
		fields["scheduled_day_of_month"] = schedule.ScheduledDayOfMonth
		rescheduled = true
	}
	if input.Timezone != nil && *input.Timezone != schedule.Timezone {
		schedule.Timezone = *input.Timezone
		fields["timezone"] = schedule.Timezone
		rescheduled = true
	}

	if err := validateSchedule(schedule); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return schedule, nil
	}

	if rescheduled {
		next := s.nextFromNow(schedule)
		schedule.NextRunAt = &next
		fields["next_run_at"] = next.UTC()
	}

	ok, err := s.scheduleRepo.UpdateOwned(ctx, ownerID, id, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrScheduleNotFound
	}

	return s.Get(ctx, ownerID, id)
}

func (s *ScheduleService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	ok, err := s.scheduleRepo.DeleteOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrScheduleNotFound
	}
	return nil
}

// Toggle flips is_active. Reactivation recomputes next_run_at when it is
// missing or already in the past. Deactivation keeps it.
func (s *ScheduleService) Toggle(ctx context.Context, ownerID, id uuid.UUID) (*models.ReportSchedule, error) {
	schedule, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	active := !schedule.IsActive
	fields := map[string]interface{}{"is_active": active}

	now := s.now()
	if active && (schedule.NextRunAt == nil || schedule.NextRunAt.Before(now)) {
		fields["next_run_at"] = s.nextFromNow(schedule).UTC()
	}

	ok, err := s.scheduleRepo.UpdateOwned(ctx, ownerID, id, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrScheduleNotFound
	}

	return s.Get(ctx, ownerID, id)
}

// SendNow delivers the report immediately. The manual send timestamp is
// stamped before delivery and kept even if delivery fails.
func (s *ScheduleService) SendNow(ctx context.Context, ownerID, id uuid.UUID) error {
	schedule, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.guard.Check(schedule, now); err != nil {
		metrics.ManualSendsRejectedTotal.Inc()
		return err
	}

	stamped, err := s.scheduleRepo.StampManualSend(ctx, ownerID, id, now, s.guard.Threshold(now))
	if err != nil {
		return err
	}
	if !stamped {
		// A concurrent request stamped first.
		metrics.ManualSendsRejectedTotal.Inc()
		if latest, err := s.Get(ctx, ownerID, id); err == nil {
			if cooldown := s.guard.Check(latest, now); cooldown != nil {
				return cooldown
			}
		}
		return &guard.CooldownError{Remaining: s.guard.Cooldown()}
	}
	schedule.LastManualSendAt = &now

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.deliverer.Deliver(sendCtx, schedule); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}

func (s *ScheduleService) ListRuns(ctx context.Context, ownerID, id uuid.UUID, opts *repositories.ListOptions) ([]models.ReportRun, int64, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, 0, err
	}
	return s.runRepo.FindBySchedule(ctx, ownerID, id, opts)
}

func (s *ScheduleService) nextFromNow(schedule *models.ReportSchedule) time.Time {
	return recurrence.NextRun(schedule.Frequency, s.now().In(schedule.Location()), recurrence.HintsFor(schedule))
}

func validateSchedule(schedule *models.ReportSchedule) error {
	if !schedule.ReportType.Valid() {
		return fmt.Errorf("%w: unknown report type %q", ErrInvalidSchedule, schedule.ReportType)
	}
	if !schedule.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidSchedule, schedule.Frequency)
	}
	if !schedule.Format.Valid() {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidSchedule, schedule.Format)
	}
	if schedule.ReportType == models.ReportTypeAnnualSummary {
		switch schedule.Frequency {
		case models.FrequencyMonthly, models.FrequencyQuarterly, models.FrequencyYearly:
		default:
			return fmt.Errorf("%w: %s cannot run %s", ErrInvalidSchedule, schedule.ReportType, schedule.Frequency)
		}
	}
	if err := recurrence.Validate(schedule.Frequency, recurrence.HintsFor(schedule)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if _, err := time.LoadLocation(schedule.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, schedule.Timezone)
	}
	return nil
}
