package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/guttosm/shell-cache/internal/domain/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// storeDocument registers one generation store.
type storeDocument struct {
	Name      string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// entryDocument is one snapshot in a generation store.
type entryDocument struct {
	Store    string      `bson:"store"`
	Key      string      `bson:"key"`
	Method   string      `bson:"method"`
	URL      string      `bson:"url"`
	Status   int         `bson:"status"`
	Type     string      `bson:"type"`
	Header   http.Header `bson:"header,omitempty"`
	Body     []byte      `bson:"body,omitempty"`
	FinalURL string      `bson:"final_url"`
	StoredAt time.Time   `bson:"stored_at"`
}

// MongoStorage keeps generations in two MongoDB collections.
type MongoStorage struct {
	db *MongoDB
}

// NewMongoStorage creates a storage on an open connection.
func NewMongoStorage(db *MongoDB) *MongoStorage {
	return &MongoStorage{db: db}
}

// Open returns the named store, creating it when absent.
func (m *MongoStorage) Open(ctx context.Context, name string) (Store, error) {
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}
	res, err := m.db.Stores.UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", name, err)
	}
	if res.UpsertedCount > 0 {
		// A new store starts empty, even if an earlier Delete left entries behind.
		if _, err := m.db.Entries.DeleteMany(ctx, bson.M{"store": name}); err != nil {
			return nil, fmt.Errorf("open store %s: drop orphaned entries: %w", name, err)
		}
	}
	return &mongoStore{db: m.db, name: name}, nil
}

// Has reports whether the named store exists.
func (m *MongoStorage) Has(ctx context.Context, name string) (bool, error) {
	n, err := m.db.Stores.CountDocuments(ctx, bson.M{"_id": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Keys lists store names in lexical order.
func (m *MongoStorage) Keys(ctx context.Context) ([]string, error) {
	cursor, err := m.db.Stores.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []storeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	return names, nil
}

// Delete removes the store document, then its entries. Entries must go
// second: a concurrent Put that lands in between sees the store missing
// and removes its own write.
func (m *MongoStorage) Delete(ctx context.Context, name string) (bool, error) {
	res, err := m.db.Stores.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return false, fmt.Errorf("delete store %s: %w", name, err)
	}
	if _, err := m.db.Entries.DeleteMany(ctx, bson.M{"store": name}); err != nil {
		return res.DeletedCount > 0, fmt.Errorf("delete entries of %s: %w", name, err)
	}
	return res.DeletedCount > 0, nil
}

// Ping verifies the connection.
func (m *MongoStorage) Ping(ctx context.Context) error {
	return m.db.HealthCheck(ctx)
}

// Close disconnects the client.
func (m *MongoStorage) Close(ctx context.Context) error {
	return m.db.Close(ctx)
}

// Backend returns "mongodb".
func (m *MongoStorage) Backend() string { return "mongodb" }

type mongoStore struct {
	db   *MongoDB
	name string
}

func (s *mongoStore) Name() string { return s.name }

func (s *mongoStore) Match(ctx context.Context, id model.RequestIdentity) (*model.Snapshot, error) {
	var doc entryDocument
	err := s.db.Entries.FindOne(ctx, bson.M{"store": s.name, "key": id.Key()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}
	return &model.Snapshot{
		Status:   doc.Status,
		Header:   doc.Header,
		Body:     doc.Body,
		Type:     model.ResponseType(doc.Type),
		URL:      doc.FinalURL,
		StoredAt: doc.StoredAt.UTC(),
	}, nil
}

// Put writes the entry, then confirms the store still exists. If the store
// was deleted the write is undone so no orphan survives.
func (s *mongoStore) Put(ctx context.Context, id model.RequestIdentity, snap *model.Snapshot) error {
	doc := entryDocument{
		Store:    s.name,
		Key:      id.Key(),
		Method:   id.Method,
		URL:      id.URL,
		Status:   snap.Status,
		Type:     string(snap.Type),
		Header:   snap.Header,
		Body:     snap.Body,
		FinalURL: snap.URL,
		StoredAt: snap.StoredAt.UTC(),
	}
	filter := bson.M{"store": s.name, "key": doc.Key}
	if _, err := s.db.Entries.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}

	n, err := s.db.Stores.CountDocuments(ctx, bson.M{"_id": s.name}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	if n == 0 {
		if _, err := s.db.Entries.DeleteOne(ctx, filter); err != nil {
			return fmt.Errorf("put %s: undo write to deleted store: %w", id, err)
		}
		return ErrStoreNotFound
	}
	return nil
}

func (s *mongoStore) Keys(ctx context.Context) ([]model.RequestIdentity, error) {
	cursor, err := s.db.Entries.Find(ctx,
		bson.M{"store": s.name},
		options.Find().
			SetProjection(bson.M{"method": 1, "url": 1}).
			SetSort(bson.D{{Key: "key", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []model.RequestIdentity
	for cursor.Next(ctx) {
		var id model.RequestIdentity
		if err := cursor.Decode(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, cursor.Err()
}

func (s *mongoStore) Delete(ctx context.Context, id model.RequestIdentity) (bool, error) {
	res, err := s.db.Entries.DeleteOne(ctx, bson.M{"store": s.name, "key": id.Key()})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}
