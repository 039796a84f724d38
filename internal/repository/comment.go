package repository

import (
	"context"

	"creaza/internal/docstore"
	"creaza/internal/models"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) *models.Comment
	// ListByPin returns the pin's comments, newest first.
	ListByPin(ctx context.Context, pinID string, limit int) []models.Comment
	All(ctx context.Context) []models.Comment
}

type commentRepository struct {
	docRepo[models.Comment]
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(store docstore.Store) CommentRepository {
	return &commentRepository{newDocRepo(store, docstore.Comments, commentCreatedAt)}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.insert(ctx, comment.ID, comment)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) *models.Comment {
	return r.get(ctx, id, "get_by_id")
}

func (r *commentRepository) ListByPin(ctx context.Context, pinID string, limit int) []models.Comment {
	return r.find(ctx, docstore.Query{
		Collection: r.coll,
		Where:      []docstore.Filter{docstore.Eq("pin_id", pinID)},
		OrderBy:    "created_at",
		Desc:       true,
		Limit:      limit,
	}, "list_by_pin")
}

func (r *commentRepository) All(ctx context.Context) []models.Comment {
	return r.all(ctx)
}
