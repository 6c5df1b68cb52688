package repositories_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tutorfinder/internal/database"
	"tutorfinder/internal/models"
	"tutorfinder/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newProvider(name string) *models.Provider {
	return &models.Provider{
		Name:    name,
		Service: "Math Tutor",
		Lat:     30.1687,
		Lng:     66.9859,
		Image:   "data:image/png;base64,AAAA",
	}
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMUserRepository(setupDB(t))

	user := &models.User{Username: "Bob", Password: "hash", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "bob", user.UsernameKey)

	got, err := repo.GetByUsername(ctx, "BOB")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Bob", got.Username)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Username)

	_, err = repo.GetByUsername(ctx, "alice")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUserRepository_DuplicateUsernameIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMUserRepository(setupDB(t))

	require.NoError(t, repo.Create(ctx, &models.User{Username: "bob", Password: "x", Role: models.RoleUser}))
	err := repo.Create(ctx, &models.User{Username: "BOB", Password: "y", Role: models.RoleUser})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMUserRepository(setupDB(t))

	user := &models.User{Username: "bob", Password: "old", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new"))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Password)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "new"), repositories.ErrNotFound)
}

func TestUserRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := repositories.NewGORMUserRepository(db)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		u := &models.User{Username: name, Password: "x", Role: models.RoleUser, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, repo.Create(ctx, u))
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "third", users[0].Username)
	assert.Equal(t, "second", users[1].Username)
	assert.Equal(t, "first", users[2].Username)
}

func TestUserRepository_DeleteCascadesOwnedProviders(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	users := repositories.NewGORMUserRepository(db)
	providers := repositories.NewGORMProviderRepository(db)
	reviews := repositories.NewGORMReviewRepository(db)

	owner := &models.User{Username: "tutor", Password: "x", Role: models.RoleProvider}
	other := &models.User{Username: "other", Password: "x", Role: models.RoleProvider}
	require.NoError(t, users.Create(ctx, owner))
	require.NoError(t, users.Create(ctx, other))

	owned := newProvider("Owned")
	owned.OwnerID = &owner.ID
	kept := newProvider("Kept")
	kept.OwnerID = &other.ID
	require.NoError(t, providers.Create(ctx, owned))
	require.NoError(t, providers.Create(ctx, kept))

	_, err := reviews.Submit(ctx, &models.Review{ProviderID: owned.ID, UserName: "a", Rating: 5, Text: "great"})
	require.NoError(t, err)
	_, err = reviews.Submit(ctx, &models.Review{ProviderID: kept.ID, UserName: "a", Rating: 3, Text: "ok"})
	require.NoError(t, err)

	deleted, err := users.Delete(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = providers.GetByID(ctx, owned.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	var orphaned int64
	require.NoError(t, db.Model(&models.Review{}).Where("provider_id = ?", owned.ID).Count(&orphaned).Error)
	assert.Zero(t, orphaned)

	got, err := providers.GetByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, got.Reviews, 1)

	// Deleting again is a no-op.
	deleted, err = users.Delete(ctx, owner.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestProviderRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMProviderRepository(setupDB(t))

	first := newProvider("First")
	first.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := newProvider("Second")
	second.CreatedAt = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	all, err := repo.ListWithReviews(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "First", all[0].Name)
	assert.Equal(t, "Second", all[1].Name)
	assert.NotNil(t, all[0].Reviews)
	assert.Empty(t, all[0].Reviews)
	assert.Zero(t, all[0].Rating)

	summaries, err := repo.ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Second", summaries[0].Name)
	assert.Equal(t, "Math Tutor", summaries[0].Service)
	assert.Empty(t, summaries[0].Image)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestProviderRepository_UpdateKeepsImageAndRating(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := repositories.NewGORMProviderRepository(db)
	reviews := repositories.NewGORMReviewRepository(db)

	p := newProvider("Ayesha")
	require.NoError(t, repo.Create(ctx, p))
	_, err := reviews.Submit(ctx, &models.Review{ProviderID: p.ID, UserName: "a", Rating: 4, Text: "good"})
	require.NoError(t, err)

	update := &models.Provider{ID: p.ID, Name: "Ayesha K.", Service: "Physics Tutor", Lat: 30.2, Lng: 67.0, Rating: 1}
	require.NoError(t, repo.Update(ctx, update, true))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ayesha K.", got.Name)
	assert.Equal(t, "Physics Tutor", got.Service)
	assert.Equal(t, 30.2, got.Lat)
	assert.Equal(t, "data:image/png;base64,AAAA", got.Image)
	assert.Equal(t, 4.0, got.Rating)

	update.Image = "data:image/png;base64,BBBB"
	require.NoError(t, repo.Update(ctx, update, false))
	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,BBBB", got.Image)

	err = repo.Update(ctx, &models.Provider{ID: "missing", Name: "x", Service: "y"}, true)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestProviderRepository_DeleteRemovesReviews(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := repositories.NewGORMProviderRepository(db)
	reviews := repositories.NewGORMReviewRepository(db)

	p := newProvider("Gone")
	require.NoError(t, repo.Create(ctx, p))
	_, err := reviews.Submit(ctx, &models.Review{ProviderID: p.ID, UserName: "a", Rating: 2, Text: "meh"})
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	left, err := reviews.ListByProvider(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	deleted, err = repo.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestReviewRepository_SubmitAveragesRatings(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	providers := repositories.NewGORMProviderRepository(db)
	reviews := repositories.NewGORMReviewRepository(db)

	p := newProvider("Rated")
	require.NoError(t, providers.Create(ctx, p))

	rating, err := reviews.Submit(ctx, &models.Review{ProviderID: p.ID, UserName: "a", Rating: 4, Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, rating)

	rating, err = reviews.Submit(ctx, &models.Review{ProviderID: p.ID, UserName: "b", Rating: 5, Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, 4.5, rating)

	rating, err = reviews.Submit(ctx, &models.Review{ProviderID: p.ID, UserName: "c", Rating: 5, Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, 4.7, rating)

	got, err := providers.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.7, got.Rating)
	assert.Len(t, got.Reviews, 3)

	listed, err := reviews.ListByProvider(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestReviewRepository_SubmitUnknownProvider(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	reviews := repositories.NewGORMReviewRepository(db)

	_, err := reviews.Submit(ctx, &models.Review{ProviderID: "missing", UserName: "a", Rating: 4, Text: "t"})
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Review{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReviewRepository_ConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	providers := repositories.NewGORMProviderRepository(db)
	reviews := repositories.NewGORMReviewRepository(db)

	p := newProvider("Busy")
	require.NoError(t, providers.Create(ctx, p))

	ratings := []int{1, 2, 3, 4, 5, 5, 4, 3, 2, 1, 5, 5}
	var wg sync.WaitGroup
	errs := make(chan error, len(ratings))
	for _, r := range ratings {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			_, err := reviews.Submit(ctx, &models.Review{ProviderID: p.ID, UserName: "c", Rating: r, Text: "t"})
			errs <- err
		}(r)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sum := 0
	for _, r := range ratings {
		sum += r
	}
	got, err := providers.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Reviews, len(ratings))
	assert.Equal(t, models.RoundRating(float64(sum)/float64(len(ratings))), got.Rating)
}
