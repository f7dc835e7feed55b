package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetDue(ctx context.Context, now time.Time, after *DueCursor, limit int) ([]*models.ReportSchedule, error) {
	now = now.UTC()

	query := s.db.WithContext(ctx).
		Where("is_active = ? AND next_run_at <= ?", true, now).
		Where("claimed_until IS NULL OR claimed_until < ?", now)
	if after != nil {
		at := after.NextRunAt.UTC()
		query = query.Where("next_run_at > ? OR (next_run_at = ? AND id > ?)", at, at, after.ID)
	}

	var schedules []*models.ReportSchedule
	err := query.
		Order("next_run_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (s *GormStore) Claim(ctx context.Context, id uuid.UUID, worker string, now, until time.Time) (bool, error) {
	now = now.UTC()

	result := s.db.WithContext(ctx).
		Model(&models.ReportSchedule{}).
		Where("id = ? AND is_active = ? AND next_run_at <= ?", id, true, now).
		Where("claimed_until IS NULL OR claimed_until < ?", now).
		Updates(map[string]interface{}{
			"claimed_by":    worker,
			"claimed_until": until.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormStore) Release(ctx context.Context, id uuid.UUID, worker string) error {
	return s.db.WithContext(ctx).
		Model(&models.ReportSchedule{}).
		Where("id = ? AND claimed_by = ?", id, worker).
		Updates(map[string]interface{}{
			"claimed_by":    nil,
			"claimed_until": nil,
		}).Error
}

func (s *GormStore) RecordRun(ctx context.Context, id uuid.UUID, worker string, ranAt, nextRun time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.ReportSchedule{}).
		Where("id = ? AND claimed_by = ?", id, worker).
		Updates(map[string]interface{}{
			"last_run_at":   ranAt.UTC(),
			"next_run_at":   nextRun.UTC(),
			"run_count":     gorm.Expr("run_count + 1"),
			"claimed_by":    nil,
			"claimed_until": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (s *GormStore) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.ReportSchedule{}).
		Where("claimed_until IS NOT NULL AND claimed_until < ?", now.UTC()).
		Updates(map[string]interface{}{
			"claimed_by":    nil,
			"claimed_until": nil,
		})
	return result.RowsAffected, result.Error
}

func (s *GormStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ReportSchedule, error) {
	var schedule models.ReportSchedule
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &schedule, nil
}
