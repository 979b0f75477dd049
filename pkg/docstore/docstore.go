// Package docstore is a small document-store facade over MongoDB: documents
// are addressed by collection name and string id, and collections can be
// watched for live changes.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

// Query selects documents by equality/operator filter with optional ordering.
type Query struct {
	Where   bson.M
	OrderBy string
	Desc    bool
	Limit   int64
}

type Store struct {
	db     *mongo.Database
	logger *slog.Logger
}

func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, logger: slog.Default().With("component", "docstore")}
}

// WithLogger returns a copy of s that reports background failures to logger.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	if logger == nil {
		return s
	}
	c := *s
	c.logger = logger.With("component", "docstore")
	return &c
}

func (s *Store) Database() *mongo.Database {
	return s.db
}

// Add inserts doc under a freshly generated id and returns the id.
func (s *Store) Add(ctx context.Context, collection string, doc any) (string, error) {
	m, err := toMap(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	m["_id"] = id

	if _, err := s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		return "", fmt.Errorf("failed to add document to %s: %w", collection, err)
	}
	return id, nil
}

// Create inserts doc under id and fails with ErrAlreadyExists if the id is taken.
func (s *Store) Create(ctx context.Context, collection, id string, doc any) error {
	m, err := toMap(doc)
	if err != nil {
		return err
	}
	m["_id"] = id

	if _, err := s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Set replaces the document stored under id, creating it when missing.
func (s *Store) Set(ctx context.Context, collection, id string, doc any) error {
	m, err := toMap(doc)
	if err != nil {
		return err
	}
	m["_id"] = id

	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, m, opts); err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get decodes the document stored under id into out.
func (s *Store) Get(ctx context.Context, collection, id string, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return nil
}

// FindOne decodes the first document matching where into out.
func (s *Store) FindOne(ctx context.Context, collection string, where bson.M, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, where).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find document in %s: %w", collection, err)
	}
	return nil
}

// Query decodes every matching document into out, which must be a pointer to a slice.
func (s *Store) Query(ctx context.Context, collection string, q Query, out any) error {
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	where := q.Where
	if where == nil {
		where = bson.M{}
	}

	cursor, err := s.db.Collection(collection).Find(ctx, where, opts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return nil
}

// Update sets the given fields on the document stored under id.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Increment atomically adds delta to a numeric field.
func (s *Store) Increment(ctx context.Context, collection, id, field string, delta float64) error {
	update := bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to increment %s on %s/%s: %w", field, collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndex creates a single-field index on collection.
func (s *Store) EnsureIndex(ctx context.Context, collection, field string, unique bool) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(unique),
	}
	if _, err := s.db.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("failed to create index %s.%s: %w", collection, field, err)
	}
	return nil
}

func toMap(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return m, nil
}
