package memory

import (
	"context"
	"sync"

	"rider-analytics-lab/internal/storage"
)

// ArtifactStore is an in-memory implementation of storage.ModelArtifactStore.
// Both blobs are held and replaced under a single lock, so a load never
// observes a mixed generation.
type ArtifactStore struct {
	mu     sync.RWMutex
	model  []byte
	scaler []byte
}

// NewArtifactStore creates a new in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{}
}

// Compile-time interface check.
var _ storage.ModelArtifactStore = (*ArtifactStore)(nil)

// SaveModel replaces both artifact blobs.
func (s *ArtifactStore) SaveModel(_ context.Context, model, scaler []byte) error {
	if len(model) == 0 || len(scaler) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.model = append([]byte(nil), model...)
	s.scaler = append([]byte(nil), scaler...)
	return nil
}

// LoadModel retrieves both artifact blobs. Returns ErrNotFound when no
// generation has been saved.
func (s *ArtifactStore) LoadModel(_ context.Context) ([]byte, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.model == nil || s.scaler == nil {
		return nil, nil, storage.ErrNotFound
	}
	return append([]byte(nil), s.model...), append([]byte(nil), s.scaler...), nil
}
