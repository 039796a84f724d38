package service

import (
	"context"
	"strings"
	"time"

	"creaza/internal/models"
	"creaza/internal/ranking"
	"creaza/internal/repository"
	"creaza/internal/validation"
)

// DefaultPageSize is used when a list call passes no limit.
const DefaultPageSize = 50

type PinService struct {
	pins           repository.PinRepository
	comments       repository.CommentRepository
	users          repository.UserRepository
	candidateLimit int
	now            func() time.Time
	newID          func() string
}

type CreatePinInput struct {
	UserID      string
	Title       string
	Description string
	Image       string
	Category    string
	Tags        []string
}

// CommentView is a comment with its author resolved for rendering.
type CommentView struct {
	Comment models.Comment `json:"comment"`
	Author  *models.User   `json:"author,omitempty"`
}

// NewPinService caps full scans used by search at candidateLimit pins.
func NewPinService(repos *repository.Repositories, candidateLimit int) *PinService {
	if candidateLimit <= 0 {
		candidateLimit = 500
	}
	return &PinService{
		pins:           repos.Pins,
		comments:       repos.Comments,
		users:          repos.Users,
		candidateLimit: candidateLimit,
		now:            time.Now,
		newID:          newID,
	}
}

func (s *PinService) CreatePin(ctx context.Context, in CreatePinInput) (*models.Pin, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if err := validation.ValidateCategory(in.Category); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	pin := &models.Pin{
		ID:          s.newID(),
		UserID:      in.UserID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Image:       in.Image,
		Category:    models.Category(in.Category),
		Tags:        tags,
		Likes:       0,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.pins.Create(ctx, pin); err != nil {
		return nil, err
	}
	return pin, nil
}

func (s *PinService) GetPin(ctx context.Context, id string) (*models.Pin, error) {
	pin := s.pins.GetByID(ctx, id)
	if pin == nil {
		return nil, models.NewNotFoundError("Pin", id)
	}
	return pin, nil
}

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return limit
}

func (s *PinService) ListPins(ctx context.Context, limit int) []models.Pin {
	return s.pins.List(ctx, pageSize(limit))
}

func (s *PinService) ListUserPins(ctx context.Context, userID string, limit int) []models.Pin {
	return s.pins.ListByUser(ctx, userID, pageSize(limit))
}

// ListTags returns the sorted distinct tags of the scanned pins.
func (s *PinService) ListTags(ctx context.Context) []string {
	return ranking.Tags(s.pins.Scan(ctx, s.candidateLimit))
}

// Search filters a bounded scan of pins in memory.
func (s *PinService) Search(ctx context.Context, c ranking.Criteria) []models.Pin {
	return ranking.Filter(s.pins.Scan(ctx, s.candidateLimit), c)
}

// Trending returns the limit highest scoring pins.
func (s *PinService) Trending(ctx context.Context, limit int) []models.Pin {
	return ranking.Trending(ctx, s.pins, pageSize(limit), s.now())
}

// ListPinComments returns the pin's comments newest first with authors
// resolved. Unknown authors are left nil.
func (s *PinService) ListPinComments(ctx context.Context, pinID string, limit int) []CommentView {
	comments := s.comments.ListByPin(ctx, pinID, pageSize(limit))
	authors := map[string]*models.User{}
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		author, ok := authors[c.UserID]
		if !ok {
			author = s.users.GetByID(ctx, c.UserID)
			authors[c.UserID] = author
		}
		views = append(views, CommentView{Comment: c, Author: author})
	}
	return views
}
