// Package memory holds process-local implementations of the persistence
// collaborators, used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-patient-monitor/internal/domain"
)

// BlobStore keeps blobs in a map. Returned slices are copies.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (s *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %q: %w", key, domain.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (s *BlobStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	s.blobs[key] = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}
