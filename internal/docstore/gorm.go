package docstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"creaza/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// GormStore keeps each collection in a relational table of the same name.
type GormStore struct {
	db      *gorm.DB
	strict  bool
	indexes sync.Map
	metrics *observability.StoreMetrics
	tracer  *observability.TraceLayer
}

// GormOption configures a GormStore.
type GormOption func(*GormStore)

// WithStrictIndexes makes filtered and ordered queries fail with
// ErrIndexMissing unless the composite index named by Query.IndexName exists.
func WithStrictIndexes(strict bool) GormOption {
	return func(s *GormStore) {
		s.strict = strict
	}
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB, opts ...GormOption) *GormStore {
	s := &GormStore{
		db:      db,
		metrics: observability.NewStoreMetrics(),
		tracer:  observability.GetTraceLayer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying connection for migrations and health checks.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) begin(ctx context.Context, op string, c Collection) (context.Context, func(error)) {
	ctx, span := s.tracer.TraceStoreOperation(ctx, s.db.Dialector.Name(), op, string(c))
	done := s.metrics.TrackQuery(op, string(c))
	return ctx, func(err error) {
		done()
		if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrIndexMissing) {
			s.metrics.RecordError(op, string(c))
		}
		observability.EndSpan(span, err)
	}
}

func (s *GormStore) table(ctx context.Context, c Collection) *gorm.DB {
	return s.db.WithContext(ctx).Table(string(c))
}

func (s *GormStore) Get(ctx context.Context, c Collection, id string, dest any) (err error) {
	ctx, end := s.begin(ctx, "get", c)
	defer func() { end(err) }()

	return translateGormError(s.table(ctx, c).Where("id = ?", id).Take(dest).Error)
}

func (s *GormStore) Find(ctx context.Context, q Query, dest any) (err error) {
	ctx, end := s.begin(ctx, "find", q.Collection)
	defer func() { end(err) }()

	if s.strict && q.NeedsCompositeIndex() && !s.hasIndex(ctx, q) {
		return ErrIndexMissing
	}

	tx := s.table(ctx, q.Collection)
	for _, f := range q.Where {
		tx = tx.Where(f.Field+" = ?", f.Value)
	}
	if q.OrderBy != "" {
		dir := " ASC"
		if q.Desc {
			dir = " DESC"
		}
		tx = tx.Order(q.OrderBy + dir)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return translateGormError(tx.Find(dest).Error)
}

func (s *GormStore) hasIndex(ctx context.Context, q Query) bool {
	name := q.IndexName()
	if _, ok := s.indexes.Load(name); ok {
		return true
	}
	if !s.db.WithContext(ctx).Migrator().HasIndex(string(q.Collection), name) {
		return false
	}
	s.indexes.Store(name, struct{}{})
	return true
}

func (s *GormStore) Count(ctx context.Context, q Query) (n int64, err error) {
	ctx, end := s.begin(ctx, "count", q.Collection)
	defer func() { end(err) }()

	tx := s.table(ctx, q.Collection)
	for _, f := range q.Where {
		tx = tx.Where(f.Field+" = ?", f.Value)
	}
	err = translateGormError(tx.Count(&n).Error)
	return n, err
}

func (s *GormStore) Insert(ctx context.Context, c Collection, doc any) (err error) {
	ctx, end := s.begin(ctx, "insert", c)
	defer func() { end(err) }()

	return translateGormError(s.table(ctx, c).Create(doc).Error)
}

func (s *GormStore) Put(ctx context.Context, c Collection, doc any) (err error) {
	ctx, end := s.begin(ctx, "put", c)
	defer func() { end(err) }()

	cols, err := replaceColumns(s.db, doc)
	if err != nil {
		return err
	}
	return translateGormError(s.table(ctx, c).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(doc).Error)
}

// replaceColumns lists every non-key column of doc's model. Put assigns all
// of them on conflict, created_at included, so the stored document is the
// new one in full.
func replaceColumns(db *gorm.DB, doc any) ([]string, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(doc); err != nil {
		return nil, fmt.Errorf("parse %T: %w", doc, err)
	}
	cols := make([]string, 0, len(stmt.Schema.DBNames))
	for _, name := range stmt.Schema.DBNames {
		if f := stmt.Schema.LookUpField(name); f != nil && f.PrimaryKey {
			continue
		}
		cols = append(cols, name)
	}
	return cols, nil
}

func (s *GormStore) Update(ctx context.Context, c Collection, id string, fields map[string]any) (err error) {
	ctx, end := s.begin(ctx, "update", c)
	defer func() { end(err) }()

	res := s.table(ctx, c).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translateGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UpdateVersioned(ctx context.Context, c Collection, id string, version int64, fields map[string]any) (err error) {
	ctx, end := s.begin(ctx, "update_versioned", c)
	defer func() { end(err) }()

	upd := maps.Clone(fields)
	upd["version"] = gorm.Expr("version + 1")
	res := s.table(ctx, c).Where("id = ? AND version = ?", id, version).Updates(upd)
	if res.Error != nil {
		return translateGormError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := s.table(ctx, c).Where("id = ?", id).Count(&n).Error; err != nil {
		return translateGormError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *GormStore) Increment(ctx context.Context, c Collection, id, field string, delta int) (err error) {
	ctx, end := s.begin(ctx, "increment", c)
	defer func() { end(err) }()

	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", field), delta, delta)
	res := s.table(ctx, c).Where("id = ?", id).Update(field, expr)
	if res.Error != nil {
		return translateGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, c Collection, id string) (err error) {
	ctx, end := s.begin(ctx, "delete", c)
	defer func() { end(err) }()

	return translateGormError(s.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.db.Statement.Quote(string(c))), id).Error)
}

func (s *GormStore) BatchUpdate(ctx context.Context, c Collection, ids []string, fields map[string]any) (err error) {
	if len(ids) == 0 {
		return nil
	}
	ctx, end := s.begin(ctx, "batch_update", c)
	defer func() { end(err) }()

	return translateGormError(s.table(ctx, c).Where("id IN ?", ids).Updates(fields).Error)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translateGormError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Message)
	}
	return err
}
