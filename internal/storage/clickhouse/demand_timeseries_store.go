package clickhouse

import (
	"context"
	"fmt"
	"time"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
)

// DemandTimeseriesStore implements storage.DemandTimeseriesStore using
// ClickHouse. The table is a ReplacingMergeTree keyed by (location, date)
// so re-aggregating the same day is an idempotent upsert.
type DemandTimeseriesStore struct {
	conn *Conn
}

// NewDemandTimeseriesStore creates a new DemandTimeseriesStore.
func NewDemandTimeseriesStore(conn *Conn) *DemandTimeseriesStore {
	return &DemandTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DemandTimeseriesStore = (*DemandTimeseriesStore)(nil)

// InsertBulk upserts daily points keyed by (location, date).
func (s *DemandTimeseriesStore) InsertBulk(ctx context.Context, points []*domain.DailyDemandPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO demand_timeseries (location, date, count)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if p == nil || p.Date == "" {
			return storage.ErrInvalidInput
		}
		day, err := time.Parse(domain.DateKeyLayout, p.Date)
		if err != nil {
			return fmt.Errorf("%w: bad date key %q", storage.ErrInvalidInput, p.Date)
		}
		if err := batch.Append(p.Location, day, uint32(p.Count)); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByLocation retrieves all points for a location, ordered by date ASC.
// FINAL collapses replaced rows so each day appears once.
func (s *DemandTimeseriesStore) GetByLocation(ctx context.Context, location string) ([]*domain.DailyDemandPoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT location, date, count
		FROM demand_timeseries FINAL
		WHERE location = ?
		ORDER BY date ASC
	`, location)
	if err != nil {
		return nil, fmt.Errorf("query demand_timeseries: %w", err)
	}
	defer rows.Close()

	var points []*domain.DailyDemandPoint
	for rows.Next() {
		var (
			loc   string
			day   time.Time
			count uint32
		)
		if err := rows.Scan(&loc, &day, &count); err != nil {
			return nil, fmt.Errorf("scan demand_timeseries row: %w", err)
		}
		points = append(points, &domain.DailyDemandPoint{
			Location: loc,
			Date:     domain.DateKey(day),
			Count:    int(count),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate demand_timeseries rows: %w", err)
	}
	return points, nil
}
