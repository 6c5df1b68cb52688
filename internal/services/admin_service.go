package services

import (
	"context"
	"strings"

	"tutorfinder/internal/models"
	"tutorfinder/internal/repositories"
	"tutorfinder/pkg/rabbitmq"
)

// Record types accepted by Delete.
const (
	RecordUsers     = "users"
	RecordProviders = "providers"
)

// UserSummary is one row of the admin user list.
type UserSummary struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// ProviderSummary is one row of the admin provider list.
type ProviderSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Service string `json:"service"`
}

// Counts is the admin dashboard summary.
type Counts struct {
	TotalUsers     int64 `json:"totalUsers"`
	TotalProviders int64 `json:"totalProviders"`
}

// AdminService lists and deletes users and providers.
type AdminService struct {
	userRepo     repositories.UserRepository
	providerRepo repositories.ProviderRepository
	publisher    EventPublisher
}

// NewAdminService creates a new AdminService. publisher may be nil.
func NewAdminService(userRepo repositories.UserRepository, providerRepo repositories.ProviderRepository, publisher EventPublisher) *AdminService {
	return &AdminService{
		userRepo:     userRepo,
		providerRepo: providerRepo,
		publisher:    publisher,
	}
}

// ListUsers returns every user, newest first.
func (s *AdminService) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{ID: u.ID, Username: u.Username, Role: u.Role})
	}
	return out, nil
}

// ListProviders returns every provider, newest first.
func (s *AdminService) ListProviders(ctx context.Context) ([]ProviderSummary, error) {
	providers, err := s.providerRepo.ListSummaries(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]ProviderSummary, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderSummary{ID: p.ID, Name: p.Name, Service: p.Service})
	}
	return out, nil
}

// Counts returns the number of users and providers.
func (s *AdminService) Counts(ctx context.Context) (Counts, error) {
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return Counts{}, unavailable(err)
	}
	providers, err := s.providerRepo.Count(ctx)
	if err != nil {
		return Counts{}, unavailable(err)
	}
	return Counts{TotalUsers: users, TotalProviders: providers}, nil
}

// DeleteUser removes a user and everything it owns. Unknown ids succeed without effect.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationError("Missing ID")
	}
	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return unavailable(err)
	}
	if deleted {
		notify(s.publisher, rabbitmq.DirectoryEvent{Type: rabbitmq.EventUserDeleted, UserID: id})
	}
	return nil
}

// DeleteProvider removes a provider and its reviews. Unknown ids succeed without effect.
func (s *AdminService) DeleteProvider(ctx context.Context, id string) error {
	return deleteProvider(ctx, s.providerRepo, s.publisher, id)
}

// Delete dispatches on the record type used by the stats endpoint.
func (s *AdminService) Delete(ctx context.Context, recordType, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationError("Missing ID")
	}
	switch recordType {
	case RecordUsers:
		return s.DeleteUser(ctx, id)
	case RecordProviders:
		return s.DeleteProvider(ctx, id)
	default:
		return validationError("Invalid Type")
	}
}
