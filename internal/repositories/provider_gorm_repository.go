package repositories

import (
	"context"
	"fmt"

	"tutorfinder/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProviderRepository is a GORM implementation of ProviderRepository.
type GORMProviderRepository struct {
	db *gorm.DB
}

// NewGORMProviderRepository creates a new instance of GORMProviderRepository.
func NewGORMProviderRepository(db *gorm.DB) *GORMProviderRepository {
	return &GORMProviderRepository{
		db: db,
	}
}

// ListWithReviews loads providers and all of their reviews with two queries.
func (r *GORMProviderRepository) ListWithReviews(ctx context.Context) ([]models.Provider, error) {
	var providers []models.Provider
	err := r.db.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Order("created_at ASC").Order("id ASC").
		Find(&providers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all providers: %w", err)
	}
	for i := range providers {
		if providers[i].Reviews == nil {
			providers[i].Reviews = []models.Review{}
		}
	}
	return providers, nil
}

// ListSummaries returns id, name and service of every provider, newest first.
func (r *GORMProviderRepository) ListSummaries(ctx context.Context) ([]models.Provider, error) {
	var providers []models.Provider
	err := r.db.WithContext(ctx).
		Select("id", "name", "service", "created_at").
		Order("created_at DESC").Order("id DESC").
		Find(&providers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

// GetByID retrieves a single provider with its reviews.
func (r *GORMProviderRepository) GetByID(ctx context.Context, id string) (*models.Provider, error) {
	var provider models.Provider
	if err := r.db.WithContext(ctx).Preload("Reviews").First(&provider, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get provider by ID %s: %w", id, translate(err))
	}
	return &provider, nil
}

// Create creates a new provider in the database.
func (r *GORMProviderRepository) Create(ctx context.Context, provider *models.Provider) error {
	if provider.ID == "" {
		provider.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Omit("Reviews").Create(provider).Error; err != nil {
		return fmt.Errorf("failed to create provider: %w", translate(err))
	}
	return nil
}

// Update updates an existing provider in the database. The rating is never
// written here; it only changes through review submission.
func (r *GORMProviderRepository) Update(ctx context.Context, provider *models.Provider, keepImage bool) error {
	columns := []string{
		"name", "qualification", "experience", "service", "fees", "timing",
		"phone", "address", "description", "lat", "lng", "updated_at",
	}
	if !keepImage {
		columns = append(columns, "image")
	}
	res := r.db.WithContext(ctx).Model(&models.Provider{ID: provider.ID}).
		Select(columns).
		Updates(provider)
	if res.Error != nil {
		return fmt.Errorf("failed to update provider: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("provider with ID %s not found for update: %w", provider.ID, ErrNotFound)
	}
	return nil
}

// Count returns the number of providers.
func (r *GORMProviderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Provider{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count providers: %w", err)
	}
	return count, nil
}

// Delete deletes the provider's reviews and then the provider in one transaction.
func (r *GORMProviderRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews of provider %s: %w", id, err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Provider{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete provider %s: %w", id, res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
