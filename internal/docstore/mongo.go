package docstore

import (
	"context"
	"errors"
	"fmt"

	"creaza/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Server error codes that mean the planner could not serve a sort without an index.
var mongoIndexErrorCodes = []int{
	96,  // OperationFailed: sort exceeded memory limit (pre 4.4)
	291, // NoQueryExecutionPlans (notablescan)
	292, // QueryExceededMemoryLimitNoDiskUseAllowed
}

// MongoStore keeps each collection in a MongoDB collection of the same name.
// Document ids live in _id.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	metrics *observability.StoreMetrics
	tracer  *observability.TraceLayer
}

// NewMongoStore wraps a connected client and database.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:  client,
		db:      db,
		metrics: observability.NewStoreMetrics(),
		tracer:  observability.GetTraceLayer(),
	}
}

func (s *MongoStore) begin(ctx context.Context, op string, c Collection) (context.Context, func(error)) {
	ctx, span := s.tracer.TraceStoreOperation(ctx, "mongodb", op, string(c))
	done := s.metrics.TrackQuery(op, string(c))
	return ctx, func(err error) {
		done()
		if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrIndexMissing) {
			s.metrics.RecordError(op, string(c))
		}
		observability.EndSpan(span, err)
	}
}

func (s *MongoStore) coll(c Collection) *mongo.Collection {
	return s.db.Collection(string(c))
}

func mongoField(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

func mongoFilter(where []Filter) bson.D {
	filter := bson.D{}
	for _, f := range where {
		filter = append(filter, bson.E{Key: mongoField(f.Field), Value: f.Value})
	}
	return filter
}

func (s *MongoStore) Get(ctx context.Context, c Collection, id string, dest any) (err error) {
	ctx, end := s.begin(ctx, "get", c)
	defer func() { end(err) }()

	return translateMongoError(s.coll(c).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(dest))
}

func (s *MongoStore) Find(ctx context.Context, q Query, dest any) (err error) {
	ctx, end := s.begin(ctx, "find", q.Collection)
	defer func() { end(err) }()

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: mongoField(q.OrderBy), Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.coll(q.Collection).Find(ctx, mongoFilter(q.Where), opts)
	if err != nil {
		return translateMongoError(err)
	}
	defer cursor.Close(ctx)
	return translateMongoError(cursor.All(ctx, dest))
}

func (s *MongoStore) Count(ctx context.Context, q Query) (n int64, err error) {
	ctx, end := s.begin(ctx, "count", q.Collection)
	defer func() { end(err) }()

	n, err = s.coll(q.Collection).CountDocuments(ctx, mongoFilter(q.Where))
	return n, translateMongoError(err)
}

func (s *MongoStore) Insert(ctx context.Context, c Collection, doc any) (err error) {
	ctx, end := s.begin(ctx, "insert", c)
	defer func() { end(err) }()

	_, err = s.coll(c).InsertOne(ctx, doc)
	return translateMongoError(err)
}

func (s *MongoStore) Put(ctx context.Context, c Collection, doc any) (err error) {
	ctx, end := s.begin(ctx, "put", c)
	defer func() { end(err) }()

	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c, err)
	}
	id := bson.Raw(raw).Lookup("_id")
	_, err = s.coll(c).ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.Raw(raw), options.Replace().SetUpsert(true))
	return translateMongoError(err)
}

func (s *MongoStore) Update(ctx context.Context, c Collection, id string, fields map[string]any) (err error) {
	ctx, end := s.begin(ctx, "update", c)
	defer func() { end(err) }()

	res, err := s.coll(c).UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return translateMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateVersioned(ctx context.Context, c Collection, id string, version int64, fields map[string]any) (err error) {
	ctx, end := s.begin(ctx, "update_versioned", c)
	defer func() { end(err) }()

	res, err := s.coll(c).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "version", Value: version}},
		bson.D{
			{Key: "$set", Value: fields},
			{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
		},
	)
	if err != nil {
		return translateMongoError(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.coll(c).CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translateMongoError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *MongoStore) Increment(ctx context.Context, c Collection, id, field string, delta int) (err error) {
	ctx, end := s.begin(ctx, "increment", c)
	defer func() { end(err) }()

	// Pipeline update so the floor is applied server side in the same write.
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: field, Value: bson.D{{Key: "$max", Value: bson.A{
			0,
			bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, 0}}}, delta}}},
		}}}}}}},
	}
	res, err := s.coll(c).UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, pipeline)
	if err != nil {
		return translateMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, c Collection, id string) (err error) {
	ctx, end := s.begin(ctx, "delete", c)
	defer func() { end(err) }()

	_, err = s.coll(c).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return translateMongoError(err)
}

func (s *MongoStore) BatchUpdate(ctx context.Context, c Collection, ids []string, fields map[string]any) (err error) {
	if len(ids) == 0 {
		return nil
	}
	ctx, end := s.begin(ctx, "batch_update", c)
	defer func() { end(err) }()

	_, err = s.coll(c).UpdateMany(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}},
		bson.D{{Key: "$set", Value: fields}},
	)
	return translateMongoError(err)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the composite indexes the repositories query with,
// using the same names the relational backend declares.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := map[Collection][]mongo.IndexModel{
		Pins: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_pins_user_id_created_at")},
			{Keys: bson.D{{Key: "likes", Value: -1}}, Options: options.Index().SetName("idx_pins_likes")},
		},
		Comments: {
			{Keys: bson.D{{Key: "pin_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_comments_pin_id_created_at")},
		},
		Notifications: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_notifications_user_id_created_at")},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}, Options: options.Index().SetName("idx_notifications_user_id_read")},
		},
		Collections: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_collections_user_id_created_at")},
		},
		Accounts: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("idx_accounts_email").SetUnique(true)},
		},
	}
	for c, models := range specs {
		if _, err := s.coll(c).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", c, err)
		}
	}
	return nil
}

func translateMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range mongoIndexErrorCodes {
			if se.HasErrorCode(code) {
				return fmt.Errorf("%w: %v", ErrIndexMissing, err)
			}
		}
	}
	return err
}
