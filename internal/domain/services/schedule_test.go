package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/domain/repositories"
	"github.com/ledgerly/reportflow/internal/pkg/database"
	"github.com/ledgerly/reportflow/internal/scheduler/guard"
)

func intPtr(v int) *int { return &v }

type fakeDeliverer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (d *fakeDeliverer) Deliver(context.Context, *models.ReportSchedule) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newService(t *testing.T) (*ScheduleService, *fakeDeliverer, *clock, *repositories.ReportRunRepository) {
	db := database.NewTestDB(t)
	runs := repositories.NewReportRunRepository(db)
	d := &fakeDeliverer{}
	c := &clock{now: time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)}
	svc := NewScheduleService(
		repositories.NewReportScheduleRepository(db),
		runs,
		d,
		guard.NewManualTrigger(10*time.Second),
		WithClock(c.Now),
	)
	return svc, d, c, runs
}

func monthlyInput(owner uuid.UUID) CreateScheduleInput {
	return CreateScheduleInput{
		OwnerID:        owner,
		ReportType:     models.ReportTypePeriodSummary,
		Frequency:      models.FrequencyMonthly,
		Format:         models.FormatBoth,
		DeliverByEmail: true,
		Timing:         Timing{Hour: intPtr(8), DayOfMonth: intPtr(1)},
	}
}

func TestCreate_ComputesNextRun(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, monthlyInput(uuid.New()))
	require.NoError(t, err)

	assert.True(t, s.IsActive)
	assert.Equal(t, int64(0), s.RunCount)
	assert.Equal(t, "UTC", s.Timezone)
	require.NotNil(t, s.NextRunAt)
	assert.True(t, s.NextRunAt.Equal(time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)))
}

func TestCreate_RejectsMeaninglessCombinations(t *testing.T) {
	svc, _, _, _ := newService(t)
	owner := uuid.New()

	cases := map[string]CreateScheduleInput{
		"annual daily": {OwnerID: owner, ReportType: models.ReportTypeAnnualSummary, Frequency: models.FrequencyDaily, Format: models.FormatDocument},
		"unknown type": {OwnerID: owner, ReportType: "WEEKLY_DIGEST", Frequency: models.FrequencyDaily, Format: models.FormatDocument},
		"bad format":   {OwnerID: owner, ReportType: models.ReportTypePeriodSummary, Frequency: models.FrequencyDaily, Format: "CSV"},
		"dow on daily": {OwnerID: owner, ReportType: models.ReportTypePeriodSummary, Frequency: models.FrequencyDaily, Format: models.FormatDocument, Timing: Timing{DayOfWeek: intPtr(1)}},
		"minute only":  {OwnerID: owner, ReportType: models.ReportTypePeriodSummary, Frequency: models.FrequencyDaily, Format: models.FormatDocument, Timing: Timing{Minute: intPtr(5)}},
		"bad timezone": {OwnerID: owner, ReportType: models.ReportTypePeriodSummary, Frequency: models.FrequencyDaily, Format: models.FormatDocument, Timezone: "Mars/Olympus"},
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), input)
			assert.ErrorIs(t, err, ErrInvalidSchedule)
		})
	}
}

func TestOwnerScoping(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	owner, intruder := uuid.New(), uuid.New()

	s, err := svc.Create(ctx, monthlyInput(owner))
	require.NoError(t, err)

	_, err = svc.Get(ctx, intruder, s.ID)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	_, err = svc.Update(ctx, intruder, s.ID, UpdateScheduleInput{DeliverByEmail: new(bool)})
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	_, err = svc.Toggle(ctx, intruder, s.ID)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	assert.ErrorIs(t, svc.SendNow(ctx, intruder, s.ID), ErrScheduleNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, intruder, s.ID), ErrScheduleNotFound)

	_, _, err = svc.ListRuns(ctx, intruder, s.ID, nil)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	mine, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.List(ctx, intruder)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	require.NoError(t, svc.Delete(ctx, owner, s.ID))
	_, err = svc.Get(ctx, owner, s.ID)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestUpdate_RecomputesFromNow(t *testing.T) {
	svc, _, c, _ := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	s, err := svc.Create(ctx, monthlyInput(owner))
	require.NoError(t, err)

	c.now = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	weekly := models.FrequencyWeekly
	updated, err := svc.Update(ctx, owner, s.ID, UpdateScheduleInput{
		Frequency: &weekly,
		Timing:    &Timing{Hour: intPtr(7), DayOfWeek: intPtr(1)},
	})
	require.NoError(t, err)

	assert.Equal(t, models.FrequencyWeekly, updated.Frequency)
	assert.Nil(t, updated.ScheduledDayOfMonth)
	// next Monday after Tuesday 2025-06-10
	assert.True(t, updated.NextRunAt.Equal(time.Date(2025, time.June, 16, 7, 0, 0, 0, time.UTC)), "got %s", updated.NextRunAt)

	// non-scheduling change keeps next run
	c.now = c.now.Add(time.Hour)
	off := false
	again, err := svc.Update(ctx, owner, s.ID, UpdateScheduleInput{DeliverByEmail: &off})
	require.NoError(t, err)
	assert.False(t, again.DeliverByEmail)
	assert.True(t, again.NextRunAt.Equal(*updated.NextRunAt))
}

func TestUpdate_FormatChangeRecomputes(t *testing.T) {
	svc, _, c, _ := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	s, err := svc.Create(ctx, CreateScheduleInput{
		OwnerID:        owner,
		ReportType:     models.ReportTypePeriodSummary,
		Frequency:      models.FrequencyDaily,
		Format:         models.FormatDocument,
		DeliverByEmail: true,
	})
	require.NoError(t, err)
	require.True(t, s.NextRunAt.Equal(time.Date(2025, time.March, 16, 10, 30, 0, 0, time.UTC)), "got %s", s.NextRunAt)

	c.now = c.now.Add(6 * time.Hour)
	spreadsheet := models.FormatSpreadsheet
	updated, err := svc.Update(ctx, owner, s.ID, UpdateScheduleInput{Format: &spreadsheet})
	require.NoError(t, err)
	assert.Equal(t, models.FormatSpreadsheet, updated.Format)
	assert.True(t, updated.NextRunAt.Equal(time.Date(2025, time.March, 16, 16, 30, 0, 0, time.UTC)), "got %s", updated.NextRunAt)

	// resubmitting the same format is not a change
	c.now = c.now.Add(time.Hour)
	same, err := svc.Update(ctx, owner, s.ID, UpdateScheduleInput{Format: &spreadsheet})
	require.NoError(t, err)
	assert.True(t, same.NextRunAt.Equal(*updated.NextRunAt))
}

func TestUpdate_RejectsInvalidResult(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	s, err := svc.Create(ctx, monthlyInput(owner))
	require.NoError(t, err)

	daily := models.FrequencyDaily
	_, err = svc.Update(ctx, owner, s.ID, UpdateScheduleInput{Frequency: &daily})
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestToggle(t *testing.T) {
	svc, _, c, _ := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	s, err := svc.Create(ctx, monthlyInput(owner))
	require.NoError(t, err)
	original := *s.NextRunAt

	off, err := svc.Toggle(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	require.NotNil(t, off.NextRunAt)
	assert.True(t, off.NextRunAt.Equal(original))

	// reactivating after the stored run has passed recomputes it from now
	c.now = time.Date(2025, time.May, 20, 9, 0, 0, 0, time.UTC)
	on, err := svc.Toggle(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
	assert.True(t, on.NextRunAt.Equal(time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)), "got %s", on.NextRunAt)
}

func TestSendNow_Cooldown(t *testing.T) {
	svc, d, c, _ := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	s, err := svc.Create(ctx, monthlyInput(owner))
	require.NoError(t, err)

	require.NoError(t, svc.SendNow(ctx, owner, s.ID))
	assert.Equal(t, 1, d.calls)

	c.now = c.now.Add(3 * time.Second)
	err = svc.SendNow(ctx, owner, s.ID)
	var cooldown *guard.CooldownError
	require.True(t, errors.As(err, &cooldown))
	assert.Equal(t, 7, cooldown.RemainingSeconds())
	assert.Equal(t, 1, d.calls)

	c.now = c.now.Add(8 * time.Second)
	require.NoError(t, svc.SendNow(ctx, owner, s.ID))
	assert.Equal(t, 2, d.calls)

	// manual sends leave the automatic schedule alone
	got, err := svc.Get(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.RunCount)
	assert.Nil(t, got.LastRunAt)
	assert.True(t, got.NextRunAt.Equal(*s.NextRunAt))
}

func TestSendNow_StampsEvenOnFailure(t *testing.T) {
	svc, d, c, _ := newService(t)
	ctx := context.Background()
	owner := uuid.New()
	d.err = errors.New("smtp down")

	s, err := svc.Create(ctx, monthlyInput(owner))
	require.NoError(t, err)

	err = svc.SendNow(ctx, owner, s.ID)
	require.Error(t, err)

	got, err := svc.Get(ctx, owner, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastManualSendAt)
	assert.True(t, got.LastManualSendAt.Equal(c.now))

	var cooldown *guard.CooldownError
	assert.True(t, errors.As(svc.SendNow(ctx, owner, s.ID), &cooldown))
	assert.Equal(t, 1, d.calls)
}

func TestListRuns(t *testing.T) {
	svc, _, c, runs := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	s, err := svc.Create(ctx, monthlyInput(owner))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, runs.Create(ctx, &models.ReportRun{
			ScheduleID: s.ID,
			OwnerID:    owner,
			Trigger:    models.TriggerScheduled,
			Status:     models.RunStatusSucceeded,
			StartedAt:  c.now.Add(time.Duration(i) * time.Hour),
		}))
	}

	list, total, err := svc.ListRuns(ctx, owner, s.ID, repositories.NewListOptions(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.True(t, list[0].StartedAt.After(list[1].StartedAt))
}
