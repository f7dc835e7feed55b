package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

type ReportScheduleRepository struct {
	*BaseRepository[models.ReportSchedule]
}

func NewReportScheduleRepository(db *gorm.DB) *ReportScheduleRepository {
	return &ReportScheduleRepository{
		BaseRepository: NewBaseRepository[models.ReportSchedule](db),
	}
}

func (r *ReportScheduleRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ReportSchedule, error) {
	var schedules []models.ReportSchedule
	err := r.DB().WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&schedules).Error
	return schedules, err
}

// UpdateOwned writes the given columns on a schedule owned by ownerID and
// reports whether a row matched.
func (r *ReportScheduleRepository) UpdateOwned(ctx context.Context, ownerID, id uuid.UUID, fields map[string]interface{}) (bool, error) {
	result := r.DB().WithContext(ctx).
		Model(&models.ReportSchedule{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

func (r *ReportScheduleRepository) DeleteOwned(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	result := r.DB().WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.ReportSchedule{})
	return result.RowsAffected > 0, result.Error
}

// StampManualSend sets last_manual_send_at to now unless a send happened
// after threshold. It returns false when another send won the race.
func (r *ReportScheduleRepository) StampManualSend(ctx context.Context, ownerID, id uuid.UUID, now, threshold time.Time) (bool, error) {
	result := r.DB().WithContext(ctx).
		Model(&models.ReportSchedule{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Where("last_manual_send_at IS NULL OR last_manual_send_at <= ?", threshold.UTC()).
		Update("last_manual_send_at", now.UTC())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ReportScheduleRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB().WithContext(ctx).
		Model(&models.ReportSchedule{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}
