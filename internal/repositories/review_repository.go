package repositories

import (
	"context"

	"tutorfinder/internal/models"
)

// ReviewRepository defines the interface for review data access.
type ReviewRepository interface {
	// Submit stores the review and recomputes the provider's rating in one
	// transaction, returning the new rounded rating. ErrNotFound when the
	// provider does not exist.
	Submit(ctx context.Context, review *models.Review) (float64, error)
	ListByProvider(ctx context.Context, providerID string) ([]models.Review, error)
}
