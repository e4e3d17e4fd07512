package memory

import (
	"context"
	"sync"
	"time"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
)

// SwapStore is an in-memory implementation of storage.SwapStore.
// Swap events have no natural unique key; the store is append-only.
type SwapStore struct {
	mu   sync.RWMutex
	data []*domain.SwapEvent
}

// NewSwapStore creates a new in-memory swap store.
func NewSwapStore() *SwapStore {
	return &SwapStore{}
}

// Compile-time interface check.
var _ storage.SwapStore = (*SwapStore)(nil)

// Insert adds a new swap event.
func (s *SwapStore) Insert(_ context.Context, swap *domain.SwapEvent) error {
	if swap == nil || swap.RiderID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *swap
	s.data = append(s.data, &cp)
	return nil
}

// InsertBulk adds multiple swap events.
func (s *SwapStore) InsertBulk(_ context.Context, swaps []*domain.SwapEvent) error {
	if len(swaps) == 0 {
		return nil
	}

	for _, swap := range swaps {
		if swap == nil || swap.RiderID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, swap := range swaps {
		cp := *swap
		s.data = append(s.data, &cp)
	}
	return nil
}

// GetAll retrieves every swap event.
func (s *SwapStore) GetAll(_ context.Context) ([]*domain.SwapEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyFiltered(func(*domain.SwapEvent) bool { return true }), nil
}

// GetByLocation retrieves swap events whose location name matches exactly.
func (s *SwapStore) GetByLocation(_ context.Context, locationName string) ([]*domain.SwapEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyFiltered(func(e *domain.SwapEvent) bool {
		return e.Location.Name == locationName
	}), nil
}

// GetSince retrieves swap events with swapDate at or after since.
// Events with a missing swapDate are excluded.
func (s *SwapStore) GetSince(_ context.Context, since time.Time) ([]*domain.SwapEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyFiltered(func(e *domain.SwapEvent) bool {
		return !e.SwapDate.IsZero() && !e.SwapDate.Before(since)
	}), nil
}

// copyFiltered returns copies of events matching keep. Callers must hold
// at least a read lock.
func (s *SwapStore) copyFiltered(keep func(*domain.SwapEvent) bool) []*domain.SwapEvent {
	result := make([]*domain.SwapEvent, 0, len(s.data))
	for _, e := range s.data {
		if keep(e) {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result
}
