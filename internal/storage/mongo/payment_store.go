package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
)

// PaymentStore implements storage.PaymentStore using MongoDB.
type PaymentStore struct {
	db *DB
}

// NewPaymentStore creates a new PaymentStore.
func NewPaymentStore(db *DB) *PaymentStore {
	return &PaymentStore{db: db}
}

// Compile-time interface check.
var _ storage.PaymentStore = (*PaymentStore)(nil)

func (s *PaymentStore) coll() *mongo.Collection {
	return s.db.db.Collection(paymentsCollection)
}

// Insert adds a new payment record.
func (s *PaymentStore) Insert(ctx context.Context, p *domain.PaymentRecord) error {
	if p == nil || p.RiderID == "" {
		return storage.ErrInvalidInput
	}

	if _, err := s.coll().InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// InsertBulk adds multiple payment records.
func (s *PaymentStore) InsertBulk(ctx context.Context, payments []*domain.PaymentRecord) error {
	if len(payments) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(payments))
	for _, p := range payments {
		if p == nil || p.RiderID == "" {
			return storage.ErrInvalidInput
		}
		docs = append(docs, p)
	}

	if _, err := s.coll().InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert payments: %w", err)
	}
	return nil
}

// GetAll retrieves every payment record.
func (s *PaymentStore) GetAll(ctx context.Context) ([]*domain.PaymentRecord, error) {
	return s.find(ctx, bson.M{})
}

// GetSince retrieves payments created at or after since.
func (s *PaymentStore) GetSince(ctx context.Context, since time.Time) ([]*domain.PaymentRecord, error) {
	return s.find(ctx, bson.M{"createdAt": bson.M{"$gte": since.UTC()}})
}

// Count returns the number of payment records.
func (s *PaymentStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

// CountByStatus returns the number of payments with the given status.
func (s *PaymentStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	n, err := s.coll().CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("count payments by status: %w", err)
	}
	return n, nil
}

func (s *PaymentStore) find(ctx context.Context, filter bson.M) ([]*domain.PaymentRecord, error) {
	cursor, err := s.coll().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("scan payments: %w", err)
	}

	var payments []*domain.PaymentRecord
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	return payments, nil
}
