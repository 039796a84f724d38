package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"creaza/internal/docstore"
	"creaza/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListByPinWithoutIndex(t *testing.T) {
	store := setupStore(t, docstore.WithStrictIndexes(true))
	dropIndex(t, store, &models.Comment{}, "idx_comments_pin_id_created_at")
	repo := NewCommentRepository(store)
	ctx := context.Background()
	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose.
	for _, i := range []int{2, 0, 3, 1} {
		require.NoError(t, repo.Create(ctx, &models.Comment{
			ID:        fmt.Sprintf("c%d", i),
			PinID:     "p1",
			UserID:    "u1",
			Text:      "nice",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Comment{ID: "other", PinID: "p2", UserID: "u1", Text: "x", CreatedAt: base}))

	comments := repo.ListByPin(ctx, "p1", 3)
	require.Len(t, comments, 3)
	assert.Equal(t, "c3", comments[0].ID)
	assert.Equal(t, "c2", comments[1].ID)
	assert.Equal(t, "c1", comments[2].ID)

	assert.Len(t, repo.ListByPin(ctx, "p1", 0), 4)
	assert.Empty(t, repo.ListByPin(ctx, "nope", 10))
}

func TestCommentRepository_GetByID(t *testing.T) {
	repo := NewCommentRepository(setupStore(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Comment{ID: "c1", PinID: "p1", UserID: "u1", Text: "hola", CreatedAt: time.Now()}))

	got := repo.GetByID(ctx, "c1")
	require.NotNil(t, got)
	assert.Equal(t, "hola", got.Text)
	assert.Nil(t, repo.GetByID(ctx, "c2"))

	err := repo.Create(ctx, &models.Comment{ID: "c1", PinID: "p1", UserID: "u1", Text: "again", CreatedAt: time.Now()})
	assert.True(t, models.IsCode(err, models.CodeConflict))
}
