package notifications

import (
	"context"
	"testing"
	"time"

	"creaza/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "notifications:user:u1", UserChannel("u1"))

	id, ok := UserIDFromChannel("notifications:user:u1")
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	_, ok = UserIDFromChannel("notifications:user:")
	assert.False(t, ok)
	_, ok = UserIDFromChannel("chat:room:1")
	assert.False(t, ok)
}

func TestNotifier_PublishReachesSubscriber(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan [2]string, 1)
	require.NoError(t, n.StartUserSubscriber(ctx, func(userID, payload string) {
		got <- [2]string{userID, payload}
	}))

	require.NoError(t, n.PublishUser(ctx, "u42", `{"type":"like"}`))

	select {
	case msg := <-got:
		assert.Equal(t, "u42", msg[0])
		assert.Equal(t, `{"type":"like"}`, msg[1])
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not receive the publish")
	}
}

func TestNotifier_SubscriberSurvivesPanic(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 2)
	require.NoError(t, n.StartUserSubscriber(ctx, func(userID, _ string) {
		if userID == "boom" {
			panic("handler failed")
		}
		got <- userID
	}))

	require.NoError(t, n.PublishUser(ctx, "boom", "x"))
	require.NoError(t, n.PublishUser(ctx, "ok", "x"))

	select {
	case id := <-got:
		assert.Equal(t, "ok", id)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber stopped after a panic")
	}
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), "u1", "x"))
	assert.NoError(t, n.StartUserSubscriber(context.Background(), func(string, string) {}))
}
