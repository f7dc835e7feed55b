package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

type userFinder interface {
	FindActive(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// UserDirectory resolves schedule owners from the users table. Deleted and
// suspended users are reported as ErrOwnerNotFound.
type UserDirectory struct {
	users userFinder
}

func NewUserDirectory(users userFinder) *UserDirectory {
	return &UserDirectory{users: users}
}

func (d *UserDirectory) FindOwner(ctx context.Context, ownerID uuid.UUID) (*models.User, error) {
	user, err := d.users.FindActive(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	return user, nil
}
