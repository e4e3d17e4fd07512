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

// SwapStore implements storage.SwapStore using MongoDB.
type SwapStore struct {
	db *DB
}

// NewSwapStore creates a new SwapStore.
func NewSwapStore(db *DB) *SwapStore {
	return &SwapStore{db: db}
}

// Compile-time interface check.
var _ storage.SwapStore = (*SwapStore)(nil)

func (s *SwapStore) coll() *mongo.Collection {
	return s.db.db.Collection(swapsCollection)
}

// Insert adds a new swap event.
func (s *SwapStore) Insert(ctx context.Context, swap *domain.SwapEvent) error {
	if swap == nil || swap.RiderID == "" {
		return storage.ErrInvalidInput
	}

	if _, err := s.coll().InsertOne(ctx, swap); err != nil {
		return fmt.Errorf("insert swap: %w", err)
	}
	return nil
}

// InsertBulk adds multiple swap events.
func (s *SwapStore) InsertBulk(ctx context.Context, swaps []*domain.SwapEvent) error {
	if len(swaps) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(swaps))
	for _, swap := range swaps {
		if swap == nil || swap.RiderID == "" {
			return storage.ErrInvalidInput
		}
		docs = append(docs, swap)
	}

	if _, err := s.coll().InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert swaps: %w", err)
	}
	return nil
}

// GetAll retrieves every swap event.
func (s *SwapStore) GetAll(ctx context.Context) ([]*domain.SwapEvent, error) {
	return s.find(ctx, bson.M{})
}

// GetByLocation retrieves swap events whose location name matches exactly.
func (s *SwapStore) GetByLocation(ctx context.Context, locationName string) ([]*domain.SwapEvent, error) {
	return s.find(ctx, bson.M{"location.name": locationName})
}

// GetSince retrieves swap events with swapDate at or after since.
func (s *SwapStore) GetSince(ctx context.Context, since time.Time) ([]*domain.SwapEvent, error) {
	return s.find(ctx, bson.M{"swapDate": bson.M{"$gte": since.UTC()}})
}

func (s *SwapStore) find(ctx context.Context, filter bson.M) ([]*domain.SwapEvent, error) {
	cursor, err := s.coll().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("scan swaphistories: %w", err)
	}

	var swaps []*domain.SwapEvent
	if err := cursor.All(ctx, &swaps); err != nil {
		return nil, fmt.Errorf("decode swaphistories: %w", err)
	}
	return swaps, nil
}
