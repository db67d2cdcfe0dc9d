package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func newMongo(addr string) (*mongo.Client, error) {
	return mongo.Connect(options.Client().ApplyURI(addr))
}

type snapshotDocument struct {
	Key     string    `bson:"_id"`
	Blob    []byte    `bson:"blob"`
	SavedAt time.Time `bson:"saved_at"`
}

type MongoStore struct {
	c   *mongo.Collection
	key string
}

func NewMongoStore(ctx context.Context, addr, key string) (*MongoStore, error) {
	m, err := newMongo(addr)
	if err != nil {
		return nil, err
	}
	if err := m.Ping(ctx, nil); err != nil {
		m.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{
		c:   m.Database("lalf").Collection("snapshots"),
		key: key,
	}, nil
}

func (s *MongoStore) Load(ctx context.Context) ([]byte, error) {
	var doc snapshotDocument
	err := s.c.FindOne(ctx, bson.D{{Key: "_id", Value: s.key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, err
	}
	return doc.Blob, nil
}

func (s *MongoStore) Save(ctx context.Context, blob []byte) error {
	doc := snapshotDocument{Key: s.key, Blob: blob, SavedAt: time.Now()}
	_, err := s.c.ReplaceOne(ctx, bson.D{{Key: "_id", Value: s.key}}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) Reset(ctx context.Context) error {
	_, err := s.c.DeleteOne(ctx, bson.D{{Key: "_id", Value: s.key}})
	return err
}

func (s *MongoStore) Close() error {
	return s.c.Database().Client().Disconnect(context.Background())
}
