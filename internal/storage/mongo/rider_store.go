package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
)

// RiderStore implements storage.RiderStore using MongoDB.
type RiderStore struct {
	db *DB
}

// NewRiderStore creates a new RiderStore.
func NewRiderStore(db *DB) *RiderStore {
	return &RiderStore{db: db}
}

// Compile-time interface check.
var _ storage.RiderStore = (*RiderStore)(nil)

func (s *RiderStore) coll() *mongo.Collection {
	return s.db.db.Collection(ridersCollection)
}

// Insert adds a new rider. Returns ErrDuplicateKey if riderId exists.
func (s *RiderStore) Insert(ctx context.Context, r *domain.RiderRecord) error {
	if r == nil || r.RiderID == "" {
		return storage.ErrInvalidInput
	}

	if _, err := s.coll().InsertOne(ctx, r); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert rider: %w", err)
	}
	return nil
}

// InsertBulk adds multiple riders. Fails the batch on any duplicate.
func (s *RiderStore) InsertBulk(ctx context.Context, riders []*domain.RiderRecord) error {
	if len(riders) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(riders))
	for _, r := range riders {
		if r == nil || r.RiderID == "" {
			return storage.ErrInvalidInput
		}
		docs = append(docs, r)
	}

	if _, err := s.coll().InsertMany(ctx, docs); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert riders: %w", err)
	}
	return nil
}

// GetByRiderID retrieves a rider by its ID. Returns ErrNotFound if not exists.
func (s *RiderStore) GetByRiderID(ctx context.Context, riderID string) (*domain.RiderRecord, error) {
	var r domain.RiderRecord
	err := s.coll().FindOne(ctx, bson.M{"riderId": riderID}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find rider %s: %w", riderID, err)
	}
	return &r, nil
}

// GetAll retrieves every rider in natural collection order.
func (s *RiderStore) GetAll(ctx context.Context) ([]*domain.RiderRecord, error) {
	cursor, err := s.coll().Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("scan riders: %w", err)
	}

	var riders []*domain.RiderRecord
	if err := cursor.All(ctx, &riders); err != nil {
		return nil, fmt.Errorf("decode riders: %w", err)
	}
	return riders, nil
}

// Count returns the number of riders.
func (s *RiderStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count riders: %w", err)
	}
	return n, nil
}
