// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"creaza/internal/cache"
	"creaza/internal/database"
	"creaza/internal/docstore"
	"creaza/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewStore returns an in-memory sqlite store with every collection migrated.
func NewStore(t *testing.T, opts ...docstore.GormOption) *docstore.GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return docstore.NewGormStore(db, opts...)
}

// NewRedis starts miniredis and installs it as the shared cache client for
// the duration of the test.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = client.Close()
	})
	return mr, client
}

// SeedUser inserts a profile with sensible defaults.
func SeedUser(t *testing.T, s docstore.Store, id, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:          id,
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
		Avatar:      models.PlaceholderAvatar,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.Insert(context.Background(), docstore.Users, u))
	return u
}

// SeedPin inserts a pin owned by userID.
func SeedPin(t *testing.T, s docstore.Store, id, userID string, likes int, createdAt time.Time) *models.Pin {
	t.Helper()
	p := &models.Pin{
		ID:        id,
		UserID:    userID,
		Title:     "pin " + id,
		Category:  models.CategoryIllustration,
		Likes:     likes,
		CreatedAt: createdAt,
	}
	require.NoError(t, s.Insert(context.Background(), docstore.Pins, p))
	return p
}
