// Package docstore is the boundary to the document database. Each logical
// collection is addressed by name and documents are decoded into the model
// structs from internal/models.
package docstore

import (
	"context"
	"errors"
	"strings"
)

// Collection names a logical document collection.
type Collection string

const (
	Users         Collection = "users"
	Pins          Collection = "pins"
	Comments      Collection = "comments"
	Notifications Collection = "notifications"
	Collections   Collection = "collections"
	Follows       Collection = "follows"
	PinLikes      Collection = "pin_likes"
	Accounts      Collection = "accounts"
)

var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrIndexMissing is returned when a filtered and ordered query needs a
	// composite index the backend does not have.
	ErrIndexMissing = errors.New("docstore: query requires a composite index")
	// ErrConflict is returned by UpdateVersioned when the stored version moved.
	ErrConflict = errors.New("docstore: version conflict")
	// ErrDuplicate is returned by Insert when the id or a unique field already exists.
	ErrDuplicate = errors.New("docstore: duplicate document")
)

// Filter is an equality condition on one field.
type Filter struct {
	Field string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Query selects documents from one collection.
type Query struct {
	Collection Collection
	Where      []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

// Unordered returns a copy of q without ordering and limit.
func (q Query) Unordered() Query {
	q.OrderBy = ""
	q.Desc = false
	q.Limit = 0
	return q
}

// NeedsCompositeIndex reports whether the backend must have a composite
// index over the filter fields plus the order field to serve q.
func (q Query) NeedsCompositeIndex() bool {
	if q.OrderBy == "" || len(q.Where) == 0 {
		return false
	}
	for _, f := range q.Where {
		if f.Field != q.OrderBy {
			return true
		}
	}
	return false
}

// IndexName is the conventional name of the composite index serving q,
// e.g. idx_pins_user_id_created_at.
func (q Query) IndexName() string {
	parts := []string{"idx", string(q.Collection)}
	for _, f := range q.Where {
		parts = append(parts, f.Field)
	}
	if q.OrderBy != "" {
		parts = append(parts, q.OrderBy)
	}
	return strings.Join(parts, "_")
}

// Store is implemented by every document database backend.
//
// Get and Find decode into dest, which must be a pointer to a model struct
// or a pointer to a slice of model structs respectively.
type Store interface {
	Get(ctx context.Context, c Collection, id string, dest any) error
	Find(ctx context.Context, q Query, dest any) error
	Count(ctx context.Context, q Query) (int64, error)
	Insert(ctx context.Context, c Collection, doc any) error
	// Put creates or fully replaces the document with doc's id.
	Put(ctx context.Context, c Collection, doc any) error
	Update(ctx context.Context, c Collection, id string, fields map[string]any) error
	// UpdateVersioned applies fields only if the stored version equals
	// version, and bumps the version by one.
	UpdateVersioned(ctx context.Context, c Collection, id string, version int64, fields map[string]any) error
	// Increment atomically adds delta to an integer field, never going below zero.
	Increment(ctx context.Context, c Collection, id, field string, delta int) error
	Delete(ctx context.Context, c Collection, id string) error
	BatchUpdate(ctx context.Context, c Collection, ids []string, fields map[string]any) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
