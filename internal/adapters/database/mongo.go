package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-graph-service/internal/models"
	"social-graph-service/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements store.Store on a mongo database. One collection per
// document kind; "_id" is the document key. Field-level updates map to $set
// and $unset so each update is atomic within its document, which is the only
// atomicity the sync core is allowed to rely on.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Get(ctx context.Context, collection, key string) (store.Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	doc := normalizeDocument(raw)
	delete(doc, "_id")
	return doc, nil
}

func (s *MongoStore) SetFields(ctx context.Context, collection, key string, fields map[string]any) error {
	set := bson.M{}
	for path, value := range fields {
		set[path] = value
	}
	_, err := s.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set fields %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *MongoStore) RemoveFields(ctx context.Context, collection, key string, paths ...string) error {
	unset := bson.M{}
	for _, path := range paths {
		unset[path] = ""
	}
	_, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$unset": unset})
	if err != nil {
		return fmt.Errorf("remove fields %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *MongoStore) AddToSet(ctx context.Context, collection, key, field string, value any) error {
	_, err := s.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.M{"$addToSet": bson.M{field: value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("add to set %s/%s.%s: %w", collection, key, field, err)
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, collection string, doc store.Document) (string, error) {
	key, _ := doc["_id"].(string)
	if key == "" {
		key = uuid.New().String()
	}

	insert := bson.M{"_id": key}
	for k, v := range doc {
		if k != "_id" {
			insert[k] = v
		}
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, insert); err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return key, nil
}

func (s *MongoStore) Find(ctx context.Context, collection string, q store.Query) ([]store.Snapshot, error) {
	filter := queryFilter(q)

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var snaps []store.Snapshot
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode from %s: %w", collection, err)
		}
		doc := normalizeDocument(raw)
		key, _ := doc["_id"].(string)
		delete(doc, "_id")
		snaps = append(snaps, store.Snapshot{Key: key, Doc: doc})
	}
	return snaps, cursor.Err()
}

func (s *MongoStore) Watch(ctx context.Context, collection, key string) (*store.Subscription, error) {
	return s.watch(ctx, collection, func(ctx context.Context) []store.Snapshot {
		doc, err := s.Get(ctx, collection, key)
		if err != nil {
			return []store.Snapshot{}
		}
		return []store.Snapshot{{Key: key, Doc: doc}}
	})
}

func (s *MongoStore) WatchQuery(ctx context.Context, collection string, q store.Query) (*store.Subscription, error) {
	return s.watch(ctx, collection, func(ctx context.Context) []store.Snapshot {
		snaps, err := s.Find(ctx, collection, q)
		if err != nil {
			return nil
		}
		return snaps
	})
}

// watch opens a change stream on the collection and re-evaluates the view on
// every event. Re-running the read instead of patching from the event payload
// gives the full-redelivery semantics the core expects.
func (s *MongoStore) watch(ctx context.Context, collection string, evaluate func(context.Context) []store.Snapshot) (*store.Subscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := s.db.Collection(collection).Watch(streamCtx, mongo.Pipeline{},
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", collection, err)
	}

	sub := store.NewSubscription(cancel)
	sub.Deliver(evaluate(streamCtx))

	go func() {
		defer sub.Close()
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			if snaps := evaluate(streamCtx); snaps != nil {
				sub.Deliver(snaps)
			}
		}
	}()

	return sub, nil
}

func queryFilter(q store.Query) bson.M {
	filter := bson.M{}
	for path, value := range q.Equals {
		filter[path] = value
	}
	if q.Prefix != "" && q.OrderBy != "" {
		filter[q.OrderBy] = bson.M{"$gte": q.Prefix, "$lt": q.Prefix + "\uf8ff"}
	}
	return filter
}

// normalizeDocument converts the driver's bson.M/bson.D/primitive.A values
// into plain maps and slices so the rest of the code never sees bson types.
func normalizeDocument(raw bson.M) store.Document {
	doc := make(store.Document, len(raw))
	for k, v := range raw {
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		return normalizeDocument(val)
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
