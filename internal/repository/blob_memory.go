package repository

import (
	"context"
	"sync"
)

// MemoryBlobStore keeps blobs in process memory. Nothing survives a
// restart; it backs the "memory" layout store and tests.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore returns an empty store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

// SaveBlob replaces the value stored under key.
func (s *MemoryBlobStore) SaveBlob(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), blob...)
	return nil
}

// LoadBlob returns the value stored under key; ok is false when absent.
func (s *MemoryBlobStore) LoadBlob(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}
