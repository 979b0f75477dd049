package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Operation string

const (
	OpInsert  Operation = "insert"
	OpUpdate  Operation = "update"
	OpReplace Operation = "replace"
	OpDelete  Operation = "delete"
)

// Change is one live update delivered by Subscribe. Document is empty for deletes.
type Change struct {
	Op       Operation
	ID       string
	Document bson.Raw
}

func (c Change) Decode(out any) error {
	if len(c.Document) == 0 {
		return ErrNotFound
	}
	return bson.Unmarshal(c.Document, out)
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
}

func (e changeEvent) toChange() Change {
	return Change{
		Op:       Operation(e.OperationType),
		ID:       e.DocumentKey.ID,
		Document: e.FullDocument,
	}
}

// Subscribe streams changes to documents of collection matching where until
// ctx is done. With a non-empty filter deletes are not delivered, since a
// deleted document can no longer be matched. Change streams need a replica set.
func (s *Store) Subscribe(ctx context.Context, collection string, where bson.M) (<-chan Change, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := s.db.Collection(collection).Watch(ctx, watchPipeline(where), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", collection, err)
	}

	changes := make(chan Change, 16)
	go s.pump(ctx, collection, stream, changes)
	return changes, nil
}

// eventStream is the part of *mongo.ChangeStream that pump reads.
type eventStream interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

// pump forwards decoded events until the stream ends or ctx is done, then
// closes changes. Undecodable events are logged and skipped.
func (s *Store) pump(ctx context.Context, collection string, stream eventStream, changes chan<- Change) {
	defer close(changes)
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			s.logger.WarnContext(ctx, "skipping undecodable change event",
				"collection", collection, "error", err)
			continue
		}
		select {
		case changes <- ev.toChange():
		case <-ctx.Done():
			return
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "change stream stopped",
			"collection", collection, "error", err)
	}
}

func watchPipeline(where bson.M) mongo.Pipeline {
	if len(where) == 0 {
		return mongo.Pipeline{}
	}
	match := bson.M{}
	for k, v := range where {
		match["fullDocument."+k] = v
	}
	return mongo.Pipeline{{{Key: "$match", Value: match}}}
}
