package memory

import (
	"context"
	"sync"
	"time"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
)

// PaymentStore is an in-memory implementation of storage.PaymentStore.
type PaymentStore struct {
	mu   sync.RWMutex
	data []*domain.PaymentRecord
}

// NewPaymentStore creates a new in-memory payment store.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{}
}

// Compile-time interface check.
var _ storage.PaymentStore = (*PaymentStore)(nil)

// Insert adds a new payment record.
func (s *PaymentStore) Insert(_ context.Context, p *domain.PaymentRecord) error {
	if p == nil || p.RiderID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.data = append(s.data, &cp)
	return nil
}

// InsertBulk adds multiple payment records.
func (s *PaymentStore) InsertBulk(_ context.Context, payments []*domain.PaymentRecord) error {
	if len(payments) == 0 {
		return nil
	}

	for _, p := range payments {
		if p == nil || p.RiderID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range payments {
		cp := *p
		s.data = append(s.data, &cp)
	}
	return nil
}

// GetAll retrieves every payment record.
func (s *PaymentStore) GetAll(_ context.Context) ([]*domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PaymentRecord, 0, len(s.data))
	for _, p := range s.data {
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

// GetSince retrieves payments created at or after since.
func (s *PaymentStore) GetSince(_ context.Context, since time.Time) ([]*domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PaymentRecord, 0, len(s.data))
	for _, p := range s.data {
		if !p.CreatedAt.IsZero() && !p.CreatedAt.Before(since) {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

// Count returns the number of payment records.
func (s *PaymentStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

// CountByStatus returns the number of payments with the given status.
func (s *PaymentStore) CountByStatus(_ context.Context, status string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.data {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}
