package services

import (
	"context"
	"errors"
	"strings"

	"tutorfinder/internal/models"
	"tutorfinder/internal/repositories"
	"tutorfinder/pkg/rabbitmq"
)

// ProviderInput is the create/update payload of a provider.
type ProviderInput struct {
	ID            string   `json:"id"`
	OwnerID       *string  `json:"ownerId"`
	Name          string   `json:"name" validate:"required,max=150"`
	Qualification string   `json:"qualification"`
	Experience    string   `json:"experience"`
	Service       string   `json:"service" validate:"required,max=100"`
	Fees          string   `json:"fees"`
	Timing        string   `json:"timing"`
	Phone         string   `json:"phone"`
	Address       string   `json:"address"`
	Description   string   `json:"description"`
	Lat           *float64 `json:"lat" validate:"required,latitude"`
	Lng           *float64 `json:"lng" validate:"required,longitude"`
	Image         string   `json:"image"`
}

// ProviderService handles business logic related to providers.
type ProviderService struct {
	repo      repositories.ProviderRepository
	publisher EventPublisher
}

// NewProviderService creates a new ProviderService. publisher may be nil.
func NewProviderService(repo repositories.ProviderRepository, publisher EventPublisher) *ProviderService {
	return &ProviderService{
		repo:      repo,
		publisher: publisher,
	}
}

// List returns every provider with its reviews, in insertion order.
func (s *ProviderService) List(ctx context.Context) ([]models.Provider, error) {
	providers, err := s.repo.ListWithReviews(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return providers, nil
}

// Get returns one provider with its reviews.
func (s *ProviderService) Get(ctx context.Context, id string) (*models.Provider, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationError("Missing ID")
	}
	provider, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundError("provider %s not found", id)
		}
		return nil, unavailable(err)
	}
	return provider, nil
}

// Create stores a new provider with no reviews and a zero rating.
func (s *ProviderService) Create(ctx context.Context, input ProviderInput) (*models.Provider, error) {
	if err := validateProvider(input); err != nil {
		return nil, err
	}

	provider := input.toModel()
	provider.ID = ""
	provider.Rating = 0
	if err := s.repo.Create(ctx, provider); err != nil {
		return nil, unavailable(err)
	}
	provider.Reviews = []models.Review{}

	notify(s.publisher, rabbitmq.DirectoryEvent{Type: rabbitmq.EventProviderCreated, ProviderID: provider.ID})
	return provider, nil
}

// Update replaces the display fields and location of an existing provider.
// An empty image keeps the stored one.
func (s *ProviderService) Update(ctx context.Context, input ProviderInput) error {
	if strings.TrimSpace(input.ID) == "" {
		return validationError("Missing ID")
	}
	if err := validateProvider(input); err != nil {
		return err
	}

	provider := input.toModel()
	if err := s.repo.Update(ctx, provider, input.Image == ""); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundError("provider %s not found", input.ID)
		}
		return unavailable(err)
	}

	notify(s.publisher, rabbitmq.DirectoryEvent{Type: rabbitmq.EventProviderUpdated, ProviderID: input.ID})
	return nil
}

// Delete removes a provider and its reviews. Unknown ids succeed without effect.
func (s *ProviderService) Delete(ctx context.Context, id string) error {
	return deleteProvider(ctx, s.repo, s.publisher, id)
}

func deleteProvider(ctx context.Context, repo repositories.ProviderRepository, publisher EventPublisher, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationError("Missing ID")
	}
	deleted, err := repo.Delete(ctx, id)
	if err != nil {
		return unavailable(err)
	}
	if deleted {
		notify(publisher, rabbitmq.DirectoryEvent{Type: rabbitmq.EventProviderDeleted, ProviderID: id})
	}
	return nil
}

func validateProvider(input ProviderInput) error {
	if input.Lat == nil || input.Lng == nil {
		return validationError("location is required")
	}
	return validateStruct(input)
}

func (in ProviderInput) toModel() *models.Provider {
	var owner *string
	if in.OwnerID != nil && strings.TrimSpace(*in.OwnerID) != "" {
		id := strings.TrimSpace(*in.OwnerID)
		owner = &id
	}
	p := &models.Provider{
		ID:            strings.TrimSpace(in.ID),
		OwnerID:       owner,
		Name:          strings.TrimSpace(in.Name),
		Qualification: in.Qualification,
		Experience:    in.Experience,
		Service:       strings.TrimSpace(in.Service),
		Fees:          in.Fees,
		Timing:        in.Timing,
		Phone:         in.Phone,
		Address:       in.Address,
		Description:   in.Description,
		Image:         in.Image,
	}
	if in.Lat != nil {
		p.Lat = *in.Lat
	}
	if in.Lng != nil {
		p.Lng = *in.Lng
	}
	return p
}
