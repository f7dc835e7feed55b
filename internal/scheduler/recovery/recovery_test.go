package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/domain/repositories"
	"github.com/ledgerly/reportflow/internal/pkg/database"
	"github.com/ledgerly/reportflow/internal/scheduler/store"
)

type counter struct{ recovered, pruned int64 }

func (c *counter) IncRecovered(n int64) { c.recovered += n }
func (c *counter) IncPruned(n int64)    { c.pruned += n }

func TestLeaseRecovery_ReleasesOnlyExpiredLeases(t *testing.T) {
	db := database.NewTestDB(t)
	st := store.NewGormStore(db)
	ctx := context.Background()
	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)

	mk := func(until time.Time) *models.ReportSchedule {
		worker := "crashed"
		next := now.Add(-time.Hour)
		s := &models.ReportSchedule{
			OwnerID:      uuid.New(),
			ReportType:   models.ReportTypePeriodSummary,
			Frequency:    models.FrequencyDaily,
			Format:       models.FormatDocument,
			IsActive:     true,
			NextRunAt:    &next,
			ClaimedBy:    &worker,
			ClaimedUntil: &until,
		}
		require.NoError(t, db.Create(s).Error)
		return s
	}

	expired := mk(now.Add(-time.Minute))
	live := mk(now.Add(time.Minute))

	c := &counter{}
	r := NewLeaseRecovery(st, c)
	r.now = func() time.Time { return now }

	released, err := r.RecoverOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)
	assert.Equal(t, int64(1), c.recovered)

	got, err := st.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ClaimedBy)

	got, err = st.GetByID(ctx, live.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ClaimedBy)
	assert.Equal(t, "crashed", *got.ClaimedBy)
}

func TestCleanup_PrunesOldRuns(t *testing.T) {
	db := database.NewTestDB(t)
	runs := repositories.NewReportRunRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	old := &models.ReportRun{ScheduleID: uuid.New(), OwnerID: uuid.New(), Trigger: models.TriggerScheduled, Status: models.RunStatusSucceeded, StartedAt: now, CreatedAt: now.AddDate(0, 0, -120)}
	recent := &models.ReportRun{ScheduleID: uuid.New(), OwnerID: uuid.New(), Trigger: models.TriggerScheduled, Status: models.RunStatusSucceeded, StartedAt: now, CreatedAt: now.AddDate(0, 0, -5)}
	require.NoError(t, runs.Create(ctx, old))
	require.NoError(t, runs.Create(ctx, recent))

	c := &counter{}
	deleted, err := NewCleanup(runs, c, 90).CleanupOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, int64(1), c.pruned)

	var remaining int64
	require.NoError(t, db.Model(&models.ReportRun{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestCleanup_DisabledWithoutRetention(t *testing.T) {
	deleted, err := NewCleanup(nil, nil, 0).CleanupOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
