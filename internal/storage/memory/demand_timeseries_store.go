package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
)

// DemandTimeseriesStore is an in-memory implementation of
// storage.DemandTimeseriesStore.
type DemandTimeseriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailyDemandPoint // keyed by (location, date)
}

// NewDemandTimeseriesStore creates a new in-memory demand series store.
func NewDemandTimeseriesStore() *DemandTimeseriesStore {
	return &DemandTimeseriesStore{
		data: make(map[string]*domain.DailyDemandPoint),
	}
}

// Compile-time interface check.
var _ storage.DemandTimeseriesStore = (*DemandTimeseriesStore)(nil)

// demandKey generates a unique key for a daily point.
func demandKey(location, date string) string {
	return fmt.Sprintf("%s|%s", location, date)
}

// InsertBulk upserts daily points keyed by (location, date).
func (s *DemandTimeseriesStore) InsertBulk(_ context.Context, points []*domain.DailyDemandPoint) error {
	if len(points) == 0 {
		return nil
	}

	for _, p := range points {
		if p == nil || p.Date == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		cp := *p
		s.data[demandKey(p.Location, p.Date)] = &cp
	}
	return nil
}

// GetByLocation retrieves all points for a location, ordered by date ASC.
func (s *DemandTimeseriesStore) GetByLocation(_ context.Context, location string) ([]*domain.DailyDemandPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DailyDemandPoint, 0)
	for _, p := range s.data {
		if p.Location == location {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, nil
}
