package repository

import (
	"context"
	"testing"
	"time"

	"creaza/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository(t *testing.T) {
	repo := NewAccountRepository(setupStore(t))
	ctx := context.Background()

	acc := &models.Account{ID: "acc1", Email: "ana@example.com", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, acc))

	err := repo.Create(ctx, &models.Account{ID: "acc2", Email: "ana@example.com", PasswordHash: "hash"})
	assert.True(t, models.IsCode(err, models.CodeConflict), "email is unique")

	got, err := repo.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acc1", got.ID)

	none, err := repo.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.SetDisplayName(ctx, "acc1", "Ana"))
	got, err = repo.FindByID(ctx, "acc1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.DisplayName)
}
