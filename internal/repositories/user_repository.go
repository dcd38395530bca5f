package repositories

import (
	"context"

	"userhub/internal/models"
)

// UserRepository defines the interface for user data access.
// Implementations return ErrNotFound for unknown ids and ErrDuplicateEmail
// when an email is already taken.
type UserRepository interface {
	List(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
}
