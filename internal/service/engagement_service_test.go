package service

import (
	"context"
	"errors"
	"testing"

	"creaza/internal/docstore"
	"creaza/internal/models"
	"creaza/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLike_CounterNeverNegative(t *testing.T) {
	f := newFixture(t)
	f.seedPin(t, "p1", "owner", 0)
	ctx := context.Background()

	steps := []bool{false, false, true, false, false, false}
	for _, liked := range steps {
		pin, err := f.engagement.ToggleLike(ctx, "p1", liked, "fan")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pin.Likes, 0)
	}
	assert.Equal(t, 0, f.repos.Pins.GetByID(ctx, "p1").Likes)
}

func TestToggleLike_LikeThenUnlikeKeepsNotification(t *testing.T) {
	f := newFixture(t)
	f.seedPin(t, "p1", "owner", 5)
	ctx := context.Background()

	pin, err := f.engagement.ToggleLike(ctx, "p1", true, "fan")
	require.NoError(t, err)
	assert.Equal(t, 6, pin.Likes)
	assert.True(t, f.repos.PinLikes.Has(ctx, "fan", "p1"))

	notes := f.repos.Notifications.ListForUser(ctx, "owner", 50)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationLike, notes[0].Type())
	assert.Equal(t, "fan", notes[0].FromUserID)
	pinID, ok := notes[0].PinID()
	assert.True(t, ok)
	assert.Equal(t, "p1", pinID)
	assert.Equal(t, []string{"owner"}, f.published)

	pin, err = f.engagement.ToggleLike(ctx, "p1", false, "fan")
	require.NoError(t, err)
	assert.Equal(t, 5, pin.Likes)
	assert.False(t, f.repos.PinLikes.Has(ctx, "fan", "p1"))
	assert.Len(t, f.repos.Notifications.ListForUser(ctx, "owner", 50), 1)
}

func TestToggleLike_SelfLikeDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	f.seedPin(t, "p1", "owner", 0)
	ctx := context.Background()

	pin, err := f.engagement.ToggleLike(ctx, "p1", true, "owner")
	require.NoError(t, err)
	assert.Equal(t, 1, pin.Likes)
	assert.Empty(t, f.repos.Notifications.ListForUser(ctx, "owner", 50))
}

func TestToggleLike_MissingPin(t *testing.T) {
	f := newFixture(t)
	_, err := f.engagement.ToggleLike(context.Background(), "ghost", true, "fan")
	assertCode(t, err, models.CodeNotFound)
}

// pinRepoStub overrides the counter write of a real repository.
type pinRepoStub struct {
	repository.PinRepository
	adjustFn func(ctx context.Context, id string, delta int) error
}

func (s *pinRepoStub) AdjustLikes(ctx context.Context, id string, delta int) error {
	return s.adjustFn(ctx, id, delta)
}

type notificationRepoStub struct {
	repository.NotificationRepository
	createFn func(ctx context.Context, n models.Notification) error
}

func (s *notificationRepoStub) Create(ctx context.Context, n models.Notification) error {
	return s.createFn(ctx, n)
}

func TestToggleLike_CounterFailureSkipsNotification(t *testing.T) {
	f := newFixture(t)
	f.seedPin(t, "p1", "owner", 2)
	writeErr := models.NewInternalError(errors.New("disk full"))
	created := 0
	f.engagement.pins = &pinRepoStub{
		PinRepository: f.repos.Pins,
		adjustFn:      func(context.Context, string, int) error { return writeErr },
	}
	f.engagement.notifications = &notificationRepoStub{
		createFn: func(context.Context, models.Notification) error { created++; return nil },
	}

	_, err := f.engagement.ToggleLike(context.Background(), "p1", true, "fan")
	assert.ErrorIs(t, err, writeErr)
	assert.Zero(t, created)
}

func TestToggleLike_NotificationFailureKeepsLike(t *testing.T) {
	f := newFixture(t)
	f.seedPin(t, "p1", "owner", 2)
	f.engagement.notifications = &notificationRepoStub{
		createFn: func(context.Context, models.Notification) error {
			return models.NewInternalError(errors.New("quota exceeded"))
		},
	}

	pin, err := f.engagement.ToggleLike(context.Background(), "p1", true, "fan")
	require.NoError(t, err)
	assert.Equal(t, 3, pin.Likes)
	assert.Empty(t, f.published)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	f.seedPin(t, "p1", "owner", 0)
	ctx := context.Background()

	t.Run("blank text is rejected", func(t *testing.T) {
		_, err := f.engagement.AddComment(ctx, AddCommentInput{PinID: "p1", UserID: "fan", Text: "  \n "})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("missing pin", func(t *testing.T) {
		_, err := f.engagement.AddComment(ctx, AddCommentInput{PinID: "ghost", UserID: "fan", Text: "hola"})
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("comment by another user notifies the owner", func(t *testing.T) {
		c, err := f.engagement.AddComment(ctx, AddCommentInput{PinID: "p1", UserID: "fan", Text: "  precioso  "})
		require.NoError(t, err)
		assert.Equal(t, "precioso", c.Text)

		notes := f.repos.Notifications.ListForUser(ctx, "owner", 50)
		require.Len(t, notes, 1)
		payload, ok := notes[0].Payload.(models.CommentPayload)
		require.True(t, ok)
		assert.Equal(t, c.ID, payload.CommentID)
		assert.Equal(t, "p1", payload.PinID)
	})

	t.Run("owner commenting on own pin does not notify", func(t *testing.T) {
		_, err := f.engagement.AddComment(ctx, AddCommentInput{PinID: "p1", UserID: "owner", Text: "gracias"})
		require.NoError(t, err)
		assert.Len(t, f.repos.Notifications.ListForUser(ctx, "owner", 50), 1)
	})

	t.Run("notification failure fails the call", func(t *testing.T) {
		g := newFixture(t)
		g.seedPin(t, "p1", "owner", 0)
		g.engagement.notifications = &notificationRepoStub{
			createFn: func(context.Context, models.Notification) error {
				return models.NewInternalError(errors.New("down"))
			},
		}
		_, err := g.engagement.AddComment(ctx, AddCommentInput{PinID: "p1", UserID: "fan", Text: "hola"})
		assertCode(t, err, models.CodeInternal)
	})
}

func TestAddComment_Mentions(t *testing.T) {
	f := newFixture(t)
	f.seedPin(t, "p1", "owner", 0)
	f.seedUser(t, "owner", "dueña")
	f.seedUser(t, "u-carla", "carla")
	f.seedUser(t, "u-beto", "beto")
	f.seedUser(t, "fan", "fan_one")
	ctx := context.Background()

	text := "mira @carla y @beto, otra vez @carla, yo @fan_one, correo a@carla.com y @nadie"
	_, err := f.engagement.AddComment(ctx, AddCommentInput{PinID: "p1", UserID: "fan", Text: text})
	require.NoError(t, err)

	carla := f.repos.Notifications.ListForUser(ctx, "u-carla", 50)
	require.Len(t, carla, 1)
	assert.Equal(t, models.NotificationMention, carla[0].Type())
	assert.Len(t, f.repos.Notifications.ListForUser(ctx, "u-beto", 50), 1)
	assert.Empty(t, f.repos.Notifications.ListForUser(ctx, "fan", 50))
}

func TestMentionedUsernames(t *testing.T) {
	assert.Equal(t, []string{"ana", "Beto"}, MentionedUsernames("@ana hola @Beto y @ana otra vez"))
	assert.Empty(t, MentionedUsernames("sin menciones, correo ana@example.com, @ab"))
}

func TestFollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engagement.Follow(ctx, "ana", "ana")
	assertCode(t, err, models.CodeValidation)

	edge, err := f.engagement.Follow(ctx, "ana", "beto")
	require.NoError(t, err)
	assert.Equal(t, "ana_beto", edge.ID)
	assert.True(t, f.users.IsFollowing(ctx, "ana", "beto"))

	notes := f.repos.Notifications.ListForUser(ctx, "beto", 50)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFollow, notes[0].Type())

	require.NoError(t, f.engagement.Unfollow(ctx, "ana", "beto"))
	assert.False(t, f.users.IsFollowing(ctx, "ana", "beto"))
	assert.Len(t, f.repos.Notifications.ListForUser(ctx, "beto", 50), 1, "follow notification survives unfollow")
}

func TestCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engagement.CreateCollection(ctx, CreateCollectionInput{UserID: "ana", Name: "  "})
	assertCode(t, err, models.CodeValidation)

	c, err := f.engagement.CreateCollection(ctx, CreateCollectionInput{UserID: "ana", Name: "Paisajes"})
	require.NoError(t, err)

	got, err := f.engagement.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paisajes", got.Name)
	assert.Empty(t, got.PinIDs)
	assert.NotNil(t, got.PinIDs)

	_, err = f.engagement.AddPinToCollection(ctx, c.ID, "p1")
	require.NoError(t, err)
	again, err := f.engagement.AddPinToCollection(ctx, c.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, []string(again.PinIDs))

	_, err = f.engagement.RemovePinFromCollection(ctx, c.ID, "p9")
	require.NoError(t, err)
	got, _ = f.engagement.GetCollection(ctx, c.ID)
	assert.Equal(t, []string{"p1"}, []string(got.PinIDs))

	_, err = f.engagement.RemovePinFromCollection(ctx, c.ID, "p1")
	require.NoError(t, err)
	got, _ = f.engagement.GetCollection(ctx, c.ID)
	assert.Empty(t, got.PinIDs)

	assert.Len(t, f.engagement.ListUserCollections(ctx, "ana"), 1)
	require.NoError(t, f.engagement.DeleteCollection(ctx, c.ID))
	_, err = f.engagement.GetCollection(ctx, c.ID)
	assertCode(t, err, models.CodeNotFound)

	_, err = f.engagement.AddPinToCollection(ctx, "ghost", "p1")
	assertCode(t, err, models.CodeNotFound)
}

type collectionRepoStub struct {
	repository.CollectionRepository
	setPinsFn func(ctx context.Context, id string, version int64, pinIDs []string) error
}

func (s *collectionRepoStub) SetPins(ctx context.Context, id string, version int64, pinIDs []string) error {
	return s.setPinsFn(ctx, id, version, pinIDs)
}

func TestAddPinToCollection_RetriesOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.engagement.CreateCollection(ctx, CreateCollectionInput{UserID: "ana", Name: "Bocetos"})
	require.NoError(t, err)

	attempts := 0
	f.engagement.collections = &collectionRepoStub{
		CollectionRepository: f.repos.Collections,
		setPinsFn: func(ctx context.Context, id string, version int64, pinIDs []string) error {
			attempts++
			if attempts == 1 {
				// a concurrent writer lands first
				require.NoError(t, f.repos.Collections.SetPins(ctx, id, version, []string{"other"}))
				return models.NewConflictError("Collection was modified concurrently", docstore.ErrConflict)
			}
			return f.repos.Collections.SetPins(ctx, id, version, pinIDs)
		},
	}

	got, err := f.engagement.AddPinToCollection(ctx, c.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []string{"other", "p1"}, []string(got.PinIDs))
}

func TestAddPinToCollection_GivesUpAfterRetries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.engagement.CreateCollection(ctx, CreateCollectionInput{UserID: "ana", Name: "Bocetos"})
	require.NoError(t, err)

	f.engagement.retries = 2
	attempts := 0
	f.engagement.collections = &collectionRepoStub{
		CollectionRepository: f.repos.Collections,
		setPinsFn: func(context.Context, string, int64, []string) error {
			attempts++
			return models.NewConflictError("Collection was modified concurrently", docstore.ErrConflict)
		},
	}

	_, err = f.engagement.AddPinToCollection(ctx, c.ID, "p1")
	assertCode(t, err, models.CodeConflict)
	assert.Equal(t, 3, attempts)
}
