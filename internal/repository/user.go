package repository

import (
	"context"
	"sort"
	"strings"

	"creaza/internal/cache"
	"creaza/internal/docstore"
	"creaza/internal/models"
)

// UserRepository defines persistence operations for user profiles.
type UserRepository interface {
	// Lookup distinguishes a missing profile (nil, nil) from a failed read.
	Lookup(ctx context.Context, id string) (*models.User, error)
	GetByID(ctx context.Context, id string) *models.User
	GetByUsername(ctx context.Context, username string) *models.User
	GetByEmail(ctx context.Context, email string) *models.User
	// List returns up to limit profiles, newest first.
	List(ctx context.Context, limit int) []models.User
	All(ctx context.Context) []models.User
	// Save creates or replaces the profile stored under user.ID.
	Save(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id string, update models.ProfileUpdate) error
}

type userRepository struct {
	docRepo[models.User]
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(store docstore.Store) UserRepository {
	return &userRepository{newDocRepo(store, docstore.Users, userCreatedAt)}
}

func (r *userRepository) Lookup(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := cache.CacheAside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() (bool, error) {
		doc, err := r.lookup(ctx, id)
		if err != nil || doc == nil {
			return false, err
		}
		user = *doc
		return true, nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) *models.User {
	user, err := r.Lookup(ctx, id)
	if err != nil {
		r.log.LogDegraded(ctx, err, "get_by_id")
		return nil
	}
	return user
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) *models.User {
	return r.first(ctx, "get_by_username", docstore.Eq("username", username))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) *models.User {
	return r.first(ctx, "get_by_email", docstore.Eq("email", strings.ToLower(strings.TrimSpace(email))))
}

func (r *userRepository) List(ctx context.Context, limit int) []models.User {
	users := r.find(ctx, docstore.Query{Collection: r.coll, Limit: limit}, "list")
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users
}

func (r *userRepository) All(ctx context.Context) []models.User {
	return r.all(ctx)
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	if err := r.put(ctx, user.ID, user); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) Update(ctx context.Context, id string, update models.ProfileUpdate) error {
	fields := update.Fields()
	if len(fields) == 0 {
		return nil
	}
	if err := r.update(ctx, id, fields); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, id)
	return nil
}
