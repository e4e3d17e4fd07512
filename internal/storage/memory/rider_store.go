package memory

import (
	"context"
	"sync"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
)

// RiderStore is an in-memory implementation of storage.RiderStore.
// GetAll preserves insertion order, matching a collection scan.
type RiderStore struct {
	mu    sync.RWMutex
	byID  map[string]*domain.RiderRecord
	order []string
}

// NewRiderStore creates a new in-memory rider store.
func NewRiderStore() *RiderStore {
	return &RiderStore{
		byID: make(map[string]*domain.RiderRecord),
	}
}

// Compile-time interface check.
var _ storage.RiderStore = (*RiderStore)(nil)

// Insert adds a new rider. Returns ErrDuplicateKey if riderId exists.
func (s *RiderStore) Insert(_ context.Context, r *domain.RiderRecord) error {
	if r == nil || r.RiderID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.RiderID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.byID[r.RiderID] = &cp
	s.order = append(s.order, r.RiderID)
	return nil
}

// InsertBulk adds multiple riders. Fails entire batch on any duplicate.
func (s *RiderStore) InsertBulk(_ context.Context, riders []*domain.RiderRecord) error {
	if len(riders) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(riders))
	for _, r := range riders {
		if r == nil || r.RiderID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.byID[r.RiderID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[r.RiderID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[r.RiderID] = struct{}{}
	}

	for _, r := range riders {
		cp := *r
		s.byID[r.RiderID] = &cp
		s.order = append(s.order, r.RiderID)
	}
	return nil
}

// GetByRiderID retrieves a rider by its ID. Returns ErrNotFound if not exists.
func (s *RiderStore) GetByRiderID(_ context.Context, riderID string) (*domain.RiderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[riderID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// GetAll retrieves every rider in insertion order.
func (s *RiderStore) GetAll(_ context.Context) ([]*domain.RiderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RiderRecord, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.byID[id]
		result = append(result, &cp)
	}
	return result, nil
}

// Count returns the number of riders.
func (s *RiderStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}
