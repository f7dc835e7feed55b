package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

type ReportRunRepository struct {
	*BaseRepository[models.ReportRun]
}

func NewReportRunRepository(db *gorm.DB) *ReportRunRepository {
	return &ReportRunRepository{
		BaseRepository: NewBaseRepository[models.ReportRun](db),
	}
}

func (r *ReportRunRepository) FindBySchedule(ctx context.Context, ownerID, scheduleID uuid.UUID, opts *ListOptions) ([]models.ReportRun, int64, error) {
	var runs []models.ReportRun
	var total int64

	query := r.DB().WithContext(ctx).
		Model(&models.ReportRun{}).
		Where("schedule_id = ? AND owner_id = ?", scheduleID, ownerID).
		Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts != nil && opts.OrderBy == "created_at" {
		opts.OrderBy = "started_at"
	}
	err := opts.apply(query).Find(&runs).Error
	return runs, total, err
}

func (r *ReportRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.DB().WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Delete(&models.ReportRun{})
	return result.RowsAffected, result.Error
}
