package repositories

import (
	"context"

	"tutorfinder/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	// Delete removes the user together with the providers it owns and their reviews.
	// Returns false when no user had that id.
	Delete(ctx context.Context, id string) (bool, error)
}
