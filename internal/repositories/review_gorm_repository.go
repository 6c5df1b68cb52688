package repositories

import (
	"context"
	"fmt"

	"tutorfinder/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

// NewGORMReviewRepository creates a new instance of GORMReviewRepository.
func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{
		db: db,
	}
}

// Submit inserts the review, averages every review of the provider and stores
// the rounded mean on the provider. The provider row is locked first so
// concurrent submissions for the same provider apply one after another.
func (r *GORMReviewRepository) Submit(ctx context.Context, review *models.Review) (float64, error) {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}

	var rating float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var provider models.Provider
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&provider, "id = ?", review.ProviderID).Error
		if err != nil {
			return fmt.Errorf("provider with ID %s not found for review: %w", review.ProviderID, translate(err))
		}

		if err := tx.Create(review).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}

		var mean float64
		err = tx.Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0)").
			Where("provider_id = ?", review.ProviderID).
			Scan(&mean).Error
		if err != nil {
			return fmt.Errorf("failed to average reviews of provider %s: %w", review.ProviderID, err)
		}
		rating = models.RoundRating(mean)

		err = tx.Model(&models.Provider{}).
			Where("id = ?", review.ProviderID).
			Update("rating", rating).Error
		if err != nil {
			return fmt.Errorf("failed to store rating of provider %s: %w", review.ProviderID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rating, nil
}

// ListByProvider returns a provider's reviews, oldest first.
func (r *GORMReviewRepository) ListByProvider(ctx context.Context, providerID string) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at ASC").Order("id ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews of provider %s: %w", providerID, err)
	}
	return reviews, nil
}
