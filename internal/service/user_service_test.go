package service

import (
	"context"
	"testing"

	"creaza/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserService_Lookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana")

	u, err := f.users.GetUserByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u, err = f.users.GetUserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = f.users.GetUserByID(ctx, "nobody")
	assertCode(t, err, models.CodeNotFound)
	assert.Len(t, f.users.ListUsers(ctx, 0), 1)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana")
	f.seedUser(t, "u2", "beto")

	u, err := f.users.UpdateProfile(ctx, "u1", models.ProfileUpdate{Bio: strPtr("ilustradora"), Username: strPtr(" ana_m ")})
	require.NoError(t, err)
	assert.Equal(t, "ilustradora", u.Bio)
	assert.Equal(t, "ana_m", u.Username)

	_, err = f.users.UpdateProfile(ctx, "u1", models.ProfileUpdate{Username: strPtr("beto")})
	assertCode(t, err, models.CodeConflict)

	_, err = f.users.UpdateProfile(ctx, "u1", models.ProfileUpdate{Username: strPtr("b")})
	assertCode(t, err, models.CodeValidation)

	_, err = f.users.UpdateProfile(ctx, "ghost", models.ProfileUpdate{Bio: strPtr("x")})
	assertCode(t, err, models.CodeNotFound)
}

func TestUserService_ProfileCountsAndDump(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana")
	f.seedUser(t, "u2", "beto")
	f.seedUser(t, "u3", "carla")
	f.seedPin(t, "p1", "u1", 0)

	_, err := f.engagement.Follow(ctx, "u2", "u1")
	require.NoError(t, err)
	_, err = f.engagement.Follow(ctx, "u3", "u1")
	require.NoError(t, err)
	_, err = f.engagement.Follow(ctx, "u1", "u2")
	require.NoError(t, err)

	p, err := f.users.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.FollowersCount)
	assert.Equal(t, int64(1), p.FollowingCount)

	dump := f.users.Dump(ctx)
	assert.Len(t, dump.Users, 3)
	assert.Len(t, dump.Pins, 1)
	assert.Len(t, dump.Follows, 3)
	assert.Len(t, dump.Notifications, 3)
	assert.Empty(t, dump.Comments)
}
