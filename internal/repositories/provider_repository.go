package repositories

import (
	"context"

	"tutorfinder/internal/models"
)

// ProviderRepository defines the interface for provider data access.
type ProviderRepository interface {
	// ListWithReviews returns every provider in insertion order with its reviews attached.
	ListWithReviews(ctx context.Context) ([]models.Provider, error)
	// ListSummaries returns every provider newest first, without reviews or images.
	ListSummaries(ctx context.Context) ([]models.Provider, error)
	GetByID(ctx context.Context, id string) (*models.Provider, error)
	Create(ctx context.Context, provider *models.Provider) error
	// Update writes the display fields and location; the image only when keepImage is false.
	Update(ctx context.Context, provider *models.Provider, keepImage bool) error
	Count(ctx context.Context) (int64, error)
	// Delete removes the provider's reviews and then the provider.
	// Returns false when no provider had that id.
	Delete(ctx context.Context, id string) (bool, error)
}
