package storage

import (
	"context"
	"time"

	"rider-analytics-lab/internal/domain"
)

// RiderStore provides access to the riders collection.
type RiderStore interface {
	// Insert adds a new rider. Returns ErrDuplicateKey if riderId exists.
	Insert(ctx context.Context, r *domain.RiderRecord) error

	// InsertBulk adds multiple riders. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, riders []*domain.RiderRecord) error

	// GetByRiderID retrieves a rider by its ID. Returns ErrNotFound if not exists.
	GetByRiderID(ctx context.Context, riderID string) (*domain.RiderRecord, error)

	// GetAll retrieves every rider in collection scan order.
	GetAll(ctx context.Context) ([]*domain.RiderRecord, error)

	// Count returns the number of riders.
	Count(ctx context.Context) (int64, error)
}

// SwapStore provides access to the swaphistories collection.
type SwapStore interface {
	// Insert adds a new swap event.
	Insert(ctx context.Context, s *domain.SwapEvent) error

	// InsertBulk adds multiple swap events.
	InsertBulk(ctx context.Context, swaps []*domain.SwapEvent) error

	// GetAll retrieves every swap event.
	GetAll(ctx context.Context) ([]*domain.SwapEvent, error)

	// GetByLocation retrieves swap events whose location name matches exactly.
	GetByLocation(ctx context.Context, locationName string) ([]*domain.SwapEvent, error)

	// GetSince retrieves swap events with swapDate at or after since.
	GetSince(ctx context.Context, since time.Time) ([]*domain.SwapEvent, error)
}

// PaymentStore provides access to the payments collection.
type PaymentStore interface {
	// Insert adds a new payment record.
	Insert(ctx context.Context, p *domain.PaymentRecord) error

	// InsertBulk adds multiple payment records.
	InsertBulk(ctx context.Context, payments []*domain.PaymentRecord) error

	// GetAll retrieves every payment record.
	GetAll(ctx context.Context) ([]*domain.PaymentRecord, error)

	// GetSince retrieves payments created at or after since.
	GetSince(ctx context.Context, since time.Time) ([]*domain.PaymentRecord, error)

	// Count returns the number of payment records.
	Count(ctx context.Context) (int64, error)

	// CountByStatus returns the number of payments with the given status.
	CountByStatus(ctx context.Context, status string) (int64, error)
}

// DemandTimeseriesStore mirrors aggregated daily demand series for
// retention beyond the raw event collections.
type DemandTimeseriesStore interface {
	// InsertBulk upserts daily points keyed by (location, date).
	InsertBulk(ctx context.Context, points []*domain.DailyDemandPoint) error

	// GetByLocation retrieves all points for a location ("" = all
	// locations series), ordered by date ASC.
	GetByLocation(ctx context.Context, location string) ([]*domain.DailyDemandPoint, error)
}

// ModelArtifactStore persists a trained churn model generation as two
// blobs: the fitted ensemble and the fitted scaler (with its encoder).
// A successful retrain replaces both together; LoadModel never returns a
// mixed pair.
type ModelArtifactStore interface {
	// SaveModel durably replaces both artifact blobs.
	SaveModel(ctx context.Context, model, scaler []byte) error

	// LoadModel retrieves both artifact blobs. Returns ErrNotFound when
	// either blob is missing.
	LoadModel(ctx context.Context) (model, scaler []byte, err error)
}
