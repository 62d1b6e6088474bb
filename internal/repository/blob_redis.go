package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBlobStore keeps blobs as plain Redis strings under a key prefix.
type RedisBlobStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisBlobStore returns a blob store writing keys as prefix+key.
func NewRedisBlobStore(rdb *redis.Client, prefix string) *RedisBlobStore {
	return &RedisBlobStore{rdb: rdb, prefix: prefix}
}

// SaveBlob replaces the value stored under key. Blobs never expire.
func (s *RedisBlobStore) SaveBlob(ctx context.Context, key string, blob []byte) error {
	return s.rdb.Set(ctx, s.prefix+key, blob, 0).Err()
}

// LoadBlob returns the value stored under key; ok is false when absent.
func (s *RedisBlobStore) LoadBlob(ctx context.Context, key string) ([]byte, bool, error) {
	blob, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}
