package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tutorfinder/internal/database"
	"tutorfinder/internal/models"
	"tutorfinder/internal/repositories"
	"tutorfinder/internal/services"
	"tutorfinder/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminService_Lists(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	providerRepo := new(MockProviderRepository)
	adminService := services.NewAdminService(userRepo, providerRepo, nil)

	userRepo.On("List", ctx).Return([]models.User{
		{ID: "u-2", Username: "bob", Role: models.RoleUser, Password: "hash"},
		{ID: "u-1", Username: "admin", Role: models.RoleAdmin, Password: "hash"},
	}, nil).Once()
	users, err := adminService.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []services.UserSummary{
		{ID: "u-2", Username: "bob", Role: models.RoleUser},
		{ID: "u-1", Username: "admin", Role: models.RoleAdmin},
	}, users)

	providerRepo.On("ListSummaries", ctx).Return([]models.Provider{{ID: "p-1", Name: "Ayesha", Service: "Math Tutor"}}, nil).Once()
	providers, err := adminService.ListProviders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []services.ProviderSummary{{ID: "p-1", Name: "Ayesha", Service: "Math Tutor"}}, providers)

	userRepo.On("Count", ctx).Return(int64(3), nil).Once()
	providerRepo.On("Count", ctx).Return(int64(2), nil).Once()
	counts, err := adminService.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.Counts{TotalUsers: 3, TotalProviders: 2}, counts)

	userRepo.On("Count", ctx).Return(int64(0), errors.New("timeout")).Once()
	_, err = adminService.Counts(ctx)
	assert.ErrorIs(t, err, services.ErrUnavailable)

	userRepo.AssertExpectations(t)
	providerRepo.AssertExpectations(t)
}

func TestAdminService_Delete(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	providerRepo := new(MockProviderRepository)
	publisher := new(MockPublisher)
	adminService := services.NewAdminService(userRepo, providerRepo, publisher)

	err := adminService.Delete(ctx, services.RecordUsers, "")
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "Missing ID")

	err = adminService.Delete(ctx, "bookings", "x-1")
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "Invalid Type")

	userRepo.On("Delete", ctx, "u-1").Return(true, nil).Once()
	publisher.On("Publish", rabbitmq.EventUserDeleted, mock.Anything).Return(nil).Once()
	assert.NoError(t, adminService.Delete(ctx, services.RecordUsers, "u-1"))

	providerRepo.On("Delete", ctx, "p-1").Return(true, nil).Once()
	publisher.On("Publish", rabbitmq.EventProviderDeleted, mock.Anything).Return(nil).Once()
	assert.NoError(t, adminService.Delete(ctx, services.RecordProviders, "p-1"))

	// Unknown ids succeed and publish nothing.
	providerRepo.On("Delete", ctx, "p-1").Return(false, nil).Once()
	assert.NoError(t, adminService.Delete(ctx, services.RecordProviders, "p-1"))

	userRepo.AssertExpectations(t)
	providerRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

// TestDirectoryFlow runs the services against a real in-memory store.
func TestDirectoryFlow(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenMemory()
	require.NoError(t, err)

	userRepo := repositories.NewGORMUserRepository(db)
	providerRepo := repositories.NewGORMProviderRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)
	authService := services.NewAuthService(userRepo, bcrypt.MinCost)
	providerService := services.NewProviderService(providerRepo, nil)
	reviewService := services.NewReviewService(reviewRepo, nil)
	adminService := services.NewAdminService(userRepo, providerRepo, nil)

	owner, err := authService.Register(ctx, services.Credentials{Username: "tutor", Password: "pw", Role: models.RoleProvider})
	require.NoError(t, err)
	_, err = authService.Register(ctx, services.Credentials{Username: "TUTOR", Password: "other"})
	assert.ErrorIs(t, err, services.ErrConflict)

	input := validInput()
	input.OwnerID = &owner.ID
	provider, err := providerService.Create(ctx, input)
	require.NoError(t, err)

	// first review sets the rating to its own value
	rating, err := reviewService.SubmitReview(ctx, services.ReviewInput{ProviderID: provider.ID, Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, rating)
	for _, r := range []int{5, 3} {
		rating, err = reviewService.SubmitReview(ctx, services.ReviewInput{ProviderID: provider.ID, Rating: r})
		require.NoError(t, err)
	}
	assert.Equal(t, 4.0, rating)

	reviews, err := reviewService.Reviews(ctx, provider.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.Equal(t, models.DefaultReviewText, reviews[0].Text)
	assert.Equal(t, models.DefaultReviewAuthor, reviews[0].UserName)

	// update without image keeps the stored image and rating
	update := validInput()
	update.ID = provider.ID
	update.Name = "Ayesha K."
	update.Image = ""
	require.NoError(t, providerService.Update(ctx, update))
	got, err := providerService.Get(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ayesha K.", got.Name)
	assert.Equal(t, "data:image/png;base64,AAAA", got.Image)
	assert.Equal(t, 4.0, got.Rating)

	counts, err := adminService.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.Counts{TotalUsers: 1, TotalProviders: 1}, counts)

	// deleting the owner removes its providers and their reviews
	require.NoError(t, adminService.Delete(ctx, services.RecordUsers, owner.ID))
	require.NoError(t, adminService.Delete(ctx, services.RecordUsers, owner.ID))
	_, err = providerService.Get(ctx, provider.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = reviewService.SubmitReview(ctx, services.ReviewInput{ProviderID: provider.ID, Rating: 5})
	assert.ErrorIs(t, err, services.ErrNotFound)

	counts, err = adminService.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.Counts{}, counts)
}

func TestAdminService_ListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	userRepo := repositories.NewGORMUserRepository(db)
	providerRepo := repositories.NewGORMProviderRepository(db)
	adminService := services.NewAdminService(userRepo, providerRepo, nil)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"older", "newer"} {
		require.NoError(t, providerRepo.Create(ctx, &models.Provider{Name: name, Service: "Tutor", Lat: 30, Lng: 66, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	providers, err := adminService.ListProviders(ctx)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "newer", providers[0].Name)
}
