// Package repository provides typed access to the document collections.
//
// Read methods never fail: a missing document reads as nil, and a read that
// fails for any other reason is logged and degrades to nil or an empty slice.
// Write methods return *models.AppError.
package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"creaza/internal/docstore"
	"creaza/internal/models"
	"creaza/internal/observability"
)

// docRepo holds the collection plumbing shared by every repository.
type docRepo[T any] struct {
	store     docstore.Store
	coll      docstore.Collection
	log       *observability.RepoLogger
	createdAt func(*T) time.Time
}

func newDocRepo[T any](store docstore.Store, coll docstore.Collection, createdAt func(*T) time.Time) docRepo[T] {
	return docRepo[T]{
		store:     store,
		coll:      coll,
		log:       observability.NewRepoLogger(string(coll)),
		createdAt: createdAt,
	}
}

// lookup returns nil, nil when the document does not exist.
func (r docRepo[T]) lookup(ctx context.Context, id string) (*T, error) {
	var doc T
	err := r.store.Get(ctx, r.coll, id, &doc)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r docRepo[T]) get(ctx context.Context, id, op string) *T {
	doc, err := r.lookup(ctx, id)
	if err != nil {
		r.log.LogDegraded(ctx, err, op)
		return nil
	}
	r.log.LogRead(ctx, map[string]interface{}{"id": id, "found": doc != nil})
	return doc
}

// query runs q and returns the raw error, with the composite index fallback
// already applied.
func (r docRepo[T]) query(ctx context.Context, q docstore.Query, op string) ([]T, error) {
	var docs []T
	err := r.store.Find(ctx, q, &docs)
	if errors.Is(err, docstore.ErrIndexMissing) {
		r.log.LogIndexFallback(ctx, op)
		docs, err = r.queryUnordered(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

// queryUnordered is the fallback for a missing composite index: filter only,
// then newest first in memory, then the limit.
func (r docRepo[T]) queryUnordered(ctx context.Context, q docstore.Query) ([]T, error) {
	var docs []T
	if err := r.store.Find(ctx, q.Unordered(), &docs); err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return r.createdAt(&docs[i]).After(r.createdAt(&docs[j]))
	})
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// find is query with failures degraded to an empty slice.
func (r docRepo[T]) find(ctx context.Context, q docstore.Query, op string) []T {
	docs, err := r.query(ctx, q, op)
	if err != nil {
		r.log.LogDegraded(ctx, err, op)
		return []T{}
	}
	return docs
}

// first returns the first match of an equality filter, or nil.
func (r docRepo[T]) first(ctx context.Context, op string, where ...docstore.Filter) *T {
	docs := r.find(ctx, docstore.Query{Collection: r.coll, Where: where, Limit: 1}, op)
	if len(docs) == 0 {
		return nil
	}
	return &docs[0]
}

func (r docRepo[T]) count(ctx context.Context, op string, where ...docstore.Filter) int64 {
	n, err := r.store.Count(ctx, docstore.Query{Collection: r.coll, Where: where})
	if err != nil {
		r.log.LogDegraded(ctx, err, op)
		return 0
	}
	return n
}

func (r docRepo[T]) all(ctx context.Context) []T {
	return r.find(ctx, docstore.Query{Collection: r.coll}, "all")
}

func (r docRepo[T]) insert(ctx context.Context, id string, doc *T) error {
	if err := r.store.Insert(ctx, r.coll, doc); err != nil {
		r.log.LogError(ctx, err, "create")
		return writeError(err, string(r.coll), id)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"id": id})
	return nil
}

func (r docRepo[T]) put(ctx context.Context, id string, doc *T) error {
	if err := r.store.Put(ctx, r.coll, doc); err != nil {
		r.log.LogError(ctx, err, "put")
		return writeError(err, string(r.coll), id)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"id": id, "upsert": true})
	return nil
}

func (r docRepo[T]) update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.store.Update(ctx, r.coll, id, fields); err != nil {
		r.log.LogError(ctx, err, "update")
		return writeError(err, string(r.coll), id)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"id": id, "fields": len(fields)})
	return nil
}

func (r docRepo[T]) delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, r.coll, id); err != nil {
		r.log.LogError(ctx, err, "delete")
		return writeError(err, string(r.coll), id)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"id": id})
	return nil
}

// writeError maps store sentinels onto application errors.
func writeError(err error, resource, id string) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, docstore.ErrDuplicate):
		return models.NewConflictError(resource+" already exists", err)
	case errors.Is(err, docstore.ErrConflict):
		return models.NewConflictError(resource+" was modified concurrently", err)
	default:
		return models.NewInternalError(err)
	}
}

func pinCreatedAt(p *models.Pin) time.Time                         { return p.CreatedAt }
func userCreatedAt(u *models.User) time.Time                       { return u.CreatedAt }
func commentCreatedAt(c *models.Comment) time.Time                 { return c.CreatedAt }
func notificationCreatedAt(n *models.NotificationRecord) time.Time { return n.CreatedAt }
func collectionCreatedAt(c *models.Collection) time.Time           { return c.CreatedAt }
func followCreatedAt(f *models.Follow) time.Time                   { return f.CreatedAt }
func pinLikeCreatedAt(l *models.PinLike) time.Time                 { return l.CreatedAt }
