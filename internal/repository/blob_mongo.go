package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBlobStore keeps one document per key in a collection.
type MongoBlobStore struct {
	coll *mongo.Collection
}

type blobDoc struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"v"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoBlobStore returns a blob store backed by coll.
func NewMongoBlobStore(coll *mongo.Collection) *MongoBlobStore {
	return &MongoBlobStore{coll: coll}
}

// SaveBlob replaces the value stored under key.
func (s *MongoBlobStore) SaveBlob(ctx context.Context, key string, blob []byte) error {
	doc := blobDoc{Key: key, Value: blob, UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

// LoadBlob returns the value stored under key; ok is false when absent.
func (s *MongoBlobStore) LoadBlob(ctx context.Context, key string) ([]byte, bool, error) {
	var doc blobDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc.Value, true, nil
}
