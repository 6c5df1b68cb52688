package services

import (
	"context"
	"errors"
	"strings"

	"tutorfinder/internal/models"
	"tutorfinder/internal/repositories"
	"tutorfinder/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
)

// ReviewInput is the payload of a review submission.
type ReviewInput struct {
	ProviderID string `json:"providerId" validate:"required"`
	User       string `json:"user" validate:"max=100"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Text       string `json:"text"`
}

// ReviewService accepts reviews and keeps provider ratings in step with them.
type ReviewService struct {
	repo      repositories.ReviewRepository
	publisher EventPublisher
}

// NewReviewService creates a new ReviewService. publisher may be nil.
func NewReviewService(repo repositories.ReviewRepository, publisher EventPublisher) *ReviewService {
	return &ReviewService{
		repo:      repo,
		publisher: publisher,
	}
}

// SubmitReview stores the review and returns the provider's new rating: the
// mean of all its reviews rounded to one decimal. Both writes commit together.
func (s *ReviewService) SubmitReview(ctx context.Context, input ReviewInput) (float64, error) {
	input.ProviderID = strings.TrimSpace(input.ProviderID)
	if err := validateStruct(input); err != nil {
		return 0, err
	}

	review := &models.Review{
		ProviderID: input.ProviderID,
		UserName:   strings.TrimSpace(input.User),
		Rating:     input.Rating,
		Text:       strings.TrimSpace(input.Text),
	}
	if review.UserName == "" {
		review.UserName = models.DefaultReviewAuthor
	}
	if review.Text == "" {
		review.Text = models.DefaultReviewText
	}

	rating, err := s.repo.Submit(ctx, review)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, notFoundError("provider %s not found", input.ProviderID)
		}
		return 0, unavailable(err)
	}

	logrus.WithFields(logrus.Fields{
		"provider_id": input.ProviderID,
		"rating":      rating,
	}).Info("review submitted")
	notify(s.publisher, rabbitmq.DirectoryEvent{
		Type:       rabbitmq.EventReviewSubmitted,
		ProviderID: input.ProviderID,
		Rating:     rating,
	})
	return rating, nil
}

// Reviews lists the reviews of a provider.
func (s *ReviewService) Reviews(ctx context.Context, providerID string) ([]models.Review, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, validationError("Missing ID")
	}
	reviews, err := s.repo.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, unavailable(err)
	}
	return reviews, nil
}
