package repository

import (
	"context"
	"testing"
	"time"

	"creaza/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserRepository_SaveAndLookup(t *testing.T) {
	repo := NewUserRepository(setupStore(t))
	ctx := context.Background()

	missing, err := repo.Lookup(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	user := &models.User{
		ID:          "u1",
		Username:    "ana",
		Email:       "ana@example.com",
		DisplayName: "Ana",
		Avatar:      models.PlaceholderAvatar,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Save(ctx, user))

	got := repo.GetByID(ctx, "u1")
	require.NotNil(t, got)
	assert.Equal(t, "ana", got.Username)

	assert.NotNil(t, repo.GetByUsername(ctx, "ana"))
	assert.NotNil(t, repo.GetByEmail(ctx, "  ANA@example.com "))
	assert.Nil(t, repo.GetByUsername(ctx, "bob"))
}

func TestUserRepository_UpdateIsPartial(t *testing.T) {
	repo := NewUserRepository(setupStore(t))
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &models.User{ID: "u1", Username: "ana", Bio: "old", DisplayName: "Ana"}))

	require.NoError(t, repo.Update(ctx, "u1", models.ProfileUpdate{Bio: strPtr("new bio")}))

	got := repo.GetByID(ctx, "u1")
	require.NotNil(t, got)
	assert.Equal(t, "new bio", got.Bio)
	assert.Equal(t, "Ana", got.DisplayName)

	err := repo.Update(ctx, "ghost", models.ProfileUpdate{Bio: strPtr("x")})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	assert.NoError(t, repo.Update(ctx, "u1", models.ProfileUpdate{}), "empty update is a no-op")
}

func TestUserRepository_ListNewestFirst(t *testing.T) {
	repo := NewUserRepository(setupStore(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Save(ctx, &models.User{ID: id, Username: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}

	users := repo.List(ctx, 10)
	require.Len(t, users, 3)
	assert.Equal(t, "c", users[0].ID)
	assert.Equal(t, "a", users[2].ID)
}

func TestUserRepository_ReadFailuresDegrade(t *testing.T) {
	repo := NewUserRepository(brokenStore{Store: setupStore(t)})
	ctx := context.Background()

	_, err := repo.Lookup(ctx, "u1")
	assert.ErrorIs(t, err, errStoreDown)

	assert.Nil(t, repo.GetByID(ctx, "u1"))
	assert.Nil(t, repo.GetByUsername(ctx, "ana"))
	assert.NotNil(t, repo.List(ctx, 10))
	assert.Empty(t, repo.List(ctx, 10))
}
