package repository

import (
	"context"
	"time"

	"creaza/internal/docstore"
	"creaza/internal/models"
)

// FollowRepository defines persistence operations for follow edges.
type FollowRepository interface {
	// Put writes the edge under its composite id, replacing any earlier one.
	Put(ctx context.Context, followerID, followingID string) (*models.Follow, error)
	Delete(ctx context.Context, followerID, followingID string) error
	Exists(ctx context.Context, followerID, followingID string) bool
	FollowingCount(ctx context.Context, userID string) int64
	FollowersCount(ctx context.Context, userID string) int64
	All(ctx context.Context) []models.Follow
}

type followRepository struct {
	docRepo[models.Follow]
	now func() time.Time
}

// NewFollowRepository creates a new FollowRepository.
func NewFollowRepository(store docstore.Store) FollowRepository {
	return &followRepository{docRepo: newDocRepo(store, docstore.Follows, followCreatedAt), now: time.Now}
}

func (r *followRepository) Put(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	f := &models.Follow{
		ID:          models.FollowID(followerID, followingID),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.put(ctx, f.ID, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID string) error {
	return r.delete(ctx, models.FollowID(followerID, followingID))
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID string) bool {
	return r.get(ctx, models.FollowID(followerID, followingID), "exists") != nil
}

func (r *followRepository) FollowingCount(ctx context.Context, userID string) int64 {
	return r.count(ctx, "following_count", docstore.Eq("follower_id", userID))
}

func (r *followRepository) FollowersCount(ctx context.Context, userID string) int64 {
	return r.count(ctx, "followers_count", docstore.Eq("following_id", userID))
}

func (r *followRepository) All(ctx context.Context) []models.Follow {
	return r.all(ctx)
}
