package likecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"creaza/internal/identity"
	"creaza/internal/models"
	"creaza/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(t *testing.T) KV {
	return map[string]func(t *testing.T) KV{
		"file": func(t *testing.T) KV {
			return NewFileKV(filepath.Join(t.TempDir(), "state", "likes.json"))
		},
		"redis": func(t *testing.T) KV {
			_, rdb := testutil.NewRedis(t)
			return NewRedisKV(rdb, "device-1")
		},
	}
}

func TestCache_MarkAndClear(t *testing.T) {
	for name, newKV := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := New(newKV(t))

			assert.False(t, c.IsLiked(ctx, "p1"))
			require.NoError(t, c.MarkLiked(ctx, "p1", true))
			require.NoError(t, c.MarkLiked(ctx, "p2", true))
			require.NoError(t, c.MarkLiked(ctx, "p2", false))
			assert.True(t, c.IsLiked(ctx, "p1"))
			assert.False(t, c.IsLiked(ctx, "p2"))
			assert.Equal(t, map[string]bool{"p1": true}, c.Snapshot(ctx))

			require.NoError(t, c.Clear(ctx))
			assert.Empty(t, c.Snapshot(ctx))
			require.NoError(t, c.Clear(ctx))
		})
	}
}

func TestFileKV_StoresUnderFixedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "likes.json")
	c := New(NewFileKV(path))
	require.NoError(t, c.MarkLiked(context.Background(), "p1", true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"creaza_user_likes":"{\"p1\":true}"}`, string(data))
}

func TestCache_CorruptDataReadsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewFileKV(filepath.Join(t.TempDir(), "likes.json"))
	require.NoError(t, kv.Set(ctx, StorageKey, []byte("{not json")))

	c := New(kv)
	assert.False(t, c.IsLiked(ctx, "p1"))
	require.NoError(t, c.MarkLiked(ctx, "p1", true))
	assert.True(t, c.IsLiked(ctx, "p1"))
}

func TestCache_Reconcile(t *testing.T) {
	ctx := context.Background()
	c := New(NewFileKV(filepath.Join(t.TempDir(), "likes.json")))
	require.NoError(t, c.MarkLiked(ctx, "stale", true))

	require.NoError(t, c.Reconcile(ctx, []string{"p1", "p2"}))
	assert.Equal(t, map[string]bool{"p1": true, "p2": true}, c.Snapshot(ctx))

	require.NoError(t, c.ReconcilePins(ctx, []models.Pin{{ID: "p1", Likes: 0}, {ID: "p2", Likes: 3}, {ID: "p3", Likes: 0}}))
	assert.Equal(t, map[string]bool{"p2": true}, c.Snapshot(ctx))
}

func TestCache_ToggleRestoresOnFailure(t *testing.T) {
	ctx := context.Background()
	c := New(NewFileKV(filepath.Join(t.TempDir(), "likes.json")))

	var sawLiked bool
	remoteErr := errors.New("offline")
	err := c.Toggle(ctx, "p1", true, func(ctx context.Context) error {
		sawLiked = c.IsLiked(ctx, "p1")
		return remoteErr
	})
	assert.ErrorIs(t, err, remoteErr)
	assert.True(t, sawLiked, "mark is applied before the remote write")
	assert.False(t, c.IsLiked(ctx, "p1"))

	require.NoError(t, c.Toggle(ctx, "p1", true, func(context.Context) error { return nil }))
	assert.True(t, c.IsLiked(ctx, "p1"))
}

func TestCache_BindSession(t *testing.T) {
	ctx := context.Background()
	c := New(NewFileKV(filepath.Join(t.TempDir(), "likes.json")))
	session := identity.NewSession()

	fetchErr := error(nil)
	remote := map[string][]string{"u1": {"p1", "p9"}}
	unbind := c.BindSession(session, func(_ context.Context, userID string) ([]string, error) {
		return remote[userID], fetchErr
	})
	defer unbind()

	session.Set(identity.State{Identity: &identity.Identity{ID: "u1"}})
	assert.Equal(t, map[string]bool{"p1": true, "p9": true}, c.Snapshot(ctx))

	session.Set(identity.Anonymous)
	assert.Empty(t, c.Snapshot(ctx))

	require.NoError(t, c.MarkLiked(ctx, "local", true))
	fetchErr = errors.New("store down")
	session.Set(identity.State{Identity: &identity.Identity{ID: "u1"}})
	assert.Equal(t, map[string]bool{"local": true}, c.Snapshot(ctx), "failed fetch keeps local state")
}
