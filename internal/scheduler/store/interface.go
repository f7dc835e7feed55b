package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	// ErrLeaseLost means the caller no longer holds the execution lease.
	ErrLeaseLost = errors.New("schedule lease lost")
)

// DueCursor is the keyset position of the last schedule in a page.
type DueCursor struct {
	NextRunAt time.Time
	ID        uuid.UUID
}

// CursorAfter returns the cursor positioned on s.
func CursorAfter(s *models.ReportSchedule) *DueCursor {
	c := &DueCursor{ID: s.ID}
	if s.NextRunAt != nil {
		c.NextRunAt = s.NextRunAt.UTC()
	}
	return c
}

type ScheduleStore interface {
	// GetDue fetches one page of active schedules whose next run is at or
	// before now and that are not leased by a running execution. Pages are
	// ordered by (next_run_at, id); a non-nil after resumes past that row.
	GetDue(ctx context.Context, now time.Time, after *DueCursor, limit int) ([]*models.ReportSchedule, error)

	// Claim takes the execution lease for a due schedule. It returns false if
	// the schedule is no longer due or another worker holds the lease.
	Claim(ctx context.Context, id uuid.UUID, worker string, now, until time.Time) (bool, error)

	// Release drops the lease without touching any run state.
	Release(ctx context.Context, id uuid.UUID, worker string) error

	// RecordRun stores a successful run and drops the lease in one update.
	RecordRun(ctx context.Context, id uuid.UUID, worker string, ranAt, nextRun time.Time) error

	// ReleaseExpired clears leases whose deadline has passed.
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)

	// GetByID fetches a single schedule
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReportSchedule, error)
}
