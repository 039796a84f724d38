package service

import (
	"context"
	"strings"

	"creaza/internal/models"
	"creaza/internal/repository"
	"creaza/internal/validation"
)

type UserService struct {
	repos *repository.Repositories
}

// Profile is a user with follow counts.
type Profile struct {
	User           *models.User `json:"user"`
	FollowingCount int64        `json:"following_count"`
	FollowersCount int64        `json:"followers_count"`
}

// Dump is every document in the store, keyed by collection.
type Dump struct {
	Users         []models.User         `json:"users"`
	Pins          []models.Pin          `json:"pins"`
	Comments      []models.Comment      `json:"comments"`
	Notifications []models.Notification `json:"notifications"`
	Collections   []models.Collection   `json:"collections"`
	Follows       []models.Follow       `json:"follows"`
}

func NewUserService(repos *repository.Repositories) *UserService {
	return &UserService{repos: repos}
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u := s.repos.Users.GetByID(ctx, id)
	if u == nil {
		return nil, models.NewNotFoundError("User", id)
	}
	return u, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := s.repos.Users.GetByUsername(ctx, username)
	if u == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return u, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := s.repos.Users.GetByEmail(ctx, email)
	if u == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, limit int) []models.User {
	return s.repos.Users.List(ctx, pageSize(limit))
}

// UpdateProfile applies a partial update and returns the stored profile.
func (s *UserService) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if other := s.repos.Users.GetByUsername(ctx, username); other != nil && other.ID != id {
			return nil, models.NewConflictError("username already taken", nil)
		}
		update.Username = &username
	}
	if len(update.Fields()) == 0 {
		return s.GetUserByID(ctx, id)
	}
	if err := s.repos.Users.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *UserService) GetProfile(ctx context.Context, id string) (*Profile, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:           u,
		FollowingCount: s.repos.Follows.FollowingCount(ctx, id),
		FollowersCount: s.repos.Follows.FollowersCount(ctx, id),
	}, nil
}

func (s *UserService) IsFollowing(ctx context.Context, followerID, followingID string) bool {
	return s.repos.Follows.Exists(ctx, followerID, followingID)
}

// Dump reads every collection in full. Intended for admin export only.
func (s *UserService) Dump(ctx context.Context) *Dump {
	return &Dump{
		Users:         s.repos.Users.All(ctx),
		Pins:          s.repos.Pins.All(ctx),
		Comments:      s.repos.Comments.All(ctx),
		Notifications: s.repos.Notifications.All(ctx),
		Collections:   s.repos.Collections.All(ctx),
		Follows:       s.repos.Follows.All(ctx),
	}
}
