package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

type UserRepository struct {
	*BaseRepository[models.User]
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository[models.User](db),
	}
}

// FindActive returns the user if it exists, is not deleted and is active.
func (r *UserRepository) FindActive(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.DB().WithContext(ctx).
		Where("id = ? AND status = ?", userID, models.UserStatusActive).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
