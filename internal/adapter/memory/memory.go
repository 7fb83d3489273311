// Package memory implements an in-memory blob store for development and testing.
package memory

import (
	"context"
	"slices"
	"sync"

	"weightlog/internal/domain"
)

// Store keeps blobs in a map. Values are copied on the way in and out.
type Store struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Ensure interfaces are met.
var _ domain.BlobStore = (*Store)(nil)

// GetBlob returns a copy of the blob stored under key.
func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return slices.Clone(b), nil
}

// SetBlob replaces the blob stored under key.
func (s *Store) SetBlob(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = slices.Clone(data)
	return nil
}
