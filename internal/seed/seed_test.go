package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"creaza/internal/docstore"
	"creaza/internal/identity"
	"creaza/internal/models"
	"creaza/internal/repository"
	"creaza/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallOptions() Options {
	return Options{
		Users:              5,
		PinsPerUser:        2,
		LikesPerUser:       3,
		CommentsPerPin:     1,
		FollowsPerUser:     2,
		CollectionsPerUser: 1,
		PinsPerCollection:  2,
		MaxDays:            30,
		FastHash:           true,
		Seed:               7,
		Concurrency:        4,
	}
}

func TestRun_SeedsConsistentGraph(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)

	report, err := NewSeeder(store, smallOptions()).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Users)
	assert.Equal(t, 10, report.Pins)
	assert.Equal(t, 10, report.Follows)
	assert.Equal(t, 15, report.Likes)
	assert.Equal(t, 5, report.Collections)

	repos := repository.New(store)
	users := repos.Users.All(ctx)
	require.Len(t, users, 5)

	pins := repos.Pins.All(ctx)
	require.Len(t, pins, 10)
	totalLikes := 0
	categories := map[models.Category]bool{}
	for _, p := range pins {
		totalLikes += p.Likes
		categories[p.Category] = true
		if p.Category == models.CategoryPhotography {
			require.NotEmpty(t, p.Tags)
			assert.Equal(t, "paisaje", p.Tags[0])
		}
	}
	assert.Equal(t, 15, totalLikes, "like counters match the like edges")
	assert.Len(t, categories, len(models.Categories()))

	for _, u := range users {
		liked, err := repos.PinLikes.PinIDsForUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, liked, 3)
	}

	// Likes, follows and comments all target someone else, so each one
	// produced exactly one notification.
	notifications := repos.Notifications.All(ctx)
	assert.Len(t, notifications, report.Likes+report.Follows+report.Comments)
	assert.Len(t, repos.Comments.All(ctx), report.Comments)

	collections := repos.Collections.All(ctx)
	require.Len(t, collections, 5)
	for _, c := range collections {
		assert.Len(t, c.PinIDs, 2)
	}
}

func TestRun_SeededAccountsCanSignIn(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	opts := smallOptions()
	opts.Users = 2

	_, err := NewSeeder(store, opts).Run(ctx)
	require.NoError(t, err)

	repos := repository.New(store)
	user := repos.Users.All(ctx)[0]

	provider := identity.NewLocalProvider(repos.Accounts, "seed-test-secret-that-is-long-enough", time.Hour, nil)
	state, err := provider.SignIn(ctx, user.Email, DefaultPassword)
	require.NoError(t, err)
	require.NotNil(t, state.Identity)
	assert.Equal(t, user.ID, state.Identity.ID)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	opts := smallOptions()
	opts.DryRun = true

	report, err := NewSeeder(store, opts).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Users)
	assert.Equal(t, 10, report.Pins)
	assert.Equal(t, 15, report.Likes)

	for _, coll := range []docstore.Collection{docstore.Users, docstore.Accounts, docstore.Pins, docstore.Notifications} {
		n, err := store.Count(ctx, docstore.Query{Collection: coll})
		require.NoError(t, err)
		assert.Zero(t, n, coll)
	}
}

const fixtureYAML = `
users:
  - username: ana
    display_name: Ana Rivas
    bio: Fotografa de montaña
  - username: luis
    email: luis@creaza.dev
pins:
  - owner: ana
    title: Cerro al amanecer
    category: photography
    tags: [paisaje, amanecer]
  - owner: luis
    title: Tipos de madera
    category: design
`

func TestRun_WithFixture(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)

	path := filepath.Join(t.TempDir(), "seed.yml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))
	fx, err := LoadFixture(path)
	require.NoError(t, err)

	opts := smallOptions()
	opts.Users = 1
	opts.PinsPerUser = 0
	opts.Fixture = fx

	report, err := NewSeeder(store, opts).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Users)
	assert.Equal(t, 2, report.Pins)

	repos := repository.New(store)
	ana := repos.Users.GetByUsername(ctx, "ana")
	require.NotNil(t, ana)
	assert.Equal(t, "Ana Rivas", ana.DisplayName)
	assert.Equal(t, "ana@example.com", ana.Email)

	luis := repos.Users.GetByUsername(ctx, "luis")
	require.NotNil(t, luis)
	assert.Equal(t, "luis@creaza.dev", luis.Email)

	pins := repos.Pins.ListByUser(ctx, ana.ID, 10)
	require.Len(t, pins, 1)
	assert.Equal(t, "Cerro al amanecer", pins[0].Title)
	assert.Equal(t, []string{"paisaje", "amanecer"}, []string(pins[0].Tags))
}

func TestParseFixture_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown owner", "users: [{username: ana}]\npins: [{owner: bob, title: x, category: design}]"},
		{"unknown category", "users: [{username: ana}]\npins: [{owner: ana, title: x, category: pottery}]"},
		{"missing title", "users: [{username: ana}]\npins: [{owner: ana, category: design}]"},
		{"duplicate username", "users: [{username: ana}, {username: ana}]"},
		{"bad handle", "users: [{username: 'a b'}]"},
		{"not yaml", "users: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestFactory_BuildPin(t *testing.T) {
	f := NewFactory(Options{MaxDays: 10, Seed: 1})
	owner := f.BuildUser()

	for _, c := range models.Categories() {
		p := f.BuildPin(owner, c)
		assert.Equal(t, owner.ID, p.UserID)
		assert.Equal(t, c, p.Category)
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Tags)
		assert.WithinDuration(t, time.Now(), p.CreatedAt, 11*24*time.Hour)
		assert.False(t, p.CreatedAt.After(time.Now()))
	}
}

func TestFactory_PickIsDistinct(t *testing.T) {
	f := NewFactory(Options{Seed: 3})

	picked := f.Pick(10, 4)
	assert.Len(t, picked, 4)
	seen := map[int]bool{}
	for _, i := range picked {
		assert.False(t, seen[i])
		assert.True(t, i >= 0 && i < 10)
		seen[i] = true
	}
	assert.Len(t, f.Pick(3, 5), 3)
}
