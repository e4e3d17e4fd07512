package demand

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/observability"
	"rider-analytics-lab/internal/storage"
)

// Forecast parameters.
const (
	// MinObservations is the minimum number of distinct daily points
	// required before a forecast is attempted.
	MinObservations = 10

	// DefaultHorizonDays is used when the caller does not request a
	// horizon.
	DefaultHorizonDays = 7

	// boundZ widens the residual spread into roughly an 80% interval.
	boundZ = 1.28
)

// ErrInsufficientHistory means fewer than MinObservations daily points
// exist for the requested scope. The HTTP boundary maps it to an empty
// forecast.
var ErrInsufficientHistory = errors.New("insufficient demand history")

// Forecaster aggregates swap history into a daily series and projects it
// forward. An optional mirror store retains each aggregated series.
type Forecaster struct {
	swaps   storage.SwapStore
	mirror  storage.DemandTimeseriesStore
	logger  *log.Logger
	metrics *observability.Metrics
	clock   func() time.Time
}

// NewForecaster creates a demand forecaster.
func NewForecaster(swaps storage.SwapStore, logger *log.Logger) *Forecaster {
	return &Forecaster{
		swaps:  swaps,
		logger: logger,
		clock:  time.Now,
	}
}

// WithMirror attaches a demand series store that each aggregation is
// written through to.
func (f *Forecaster) WithMirror(mirror storage.DemandTimeseriesStore) *Forecaster {
	f.mirror = mirror
	return f
}

// WithMetrics attaches prometheus metrics.
func (f *Forecaster) WithMetrics(m *observability.Metrics) *Forecaster {
	f.metrics = m
	return f
}

// WithClock overrides the wall clock, for deterministic tests.
func (f *Forecaster) WithClock(clock func() time.Time) *Forecaster {
	f.clock = clock
	return f
}

// Forecast fits the seasonal model to the historical daily series for
// the given scope and projects exactly horizonDays contiguous days past
// the last observed day. Only the horizon is returned, never historical
// fitted values. Every bound is non-negative and lower <= predicted <=
// upper holds for every point.
func (f *Forecaster) Forecast(ctx context.Context, location string, horizonDays int) ([]*domain.ForecastPoint, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	var (
		swaps []*domain.SwapEvent
		err   error
	)
	if location != "" {
		swaps, err = f.swaps.GetByLocation(ctx, location)
	} else {
		swaps, err = f.swaps.GetAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch swap history: %w", err)
	}

	series := Aggregate(swaps, location, f.clock())

	if f.mirror != nil && len(series) > 0 {
		if merr := f.mirror.InsertBulk(ctx, series); merr != nil {
			// The mirror is retention, not a dependency of the forecast.
			f.logger.Printf("mirror demand series: %v", merr)
		}
	}

	if len(series) < MinObservations {
		return nil, ErrInsufficientHistory
	}

	days := make([]time.Time, len(series))
	counts := make([]float64, len(series))
	for i, p := range series {
		day, perr := time.Parse(domain.DateKeyLayout, p.Date)
		if perr != nil {
			return nil, fmt.Errorf("bad date key %q: %w", p.Date, perr)
		}
		days[i] = day
		counts[i] = float64(p.Count)
	}

	model := fitSeasonal(days, counts)
	first := days[0]
	last := days[len(days)-1]

	forecast := make([]*domain.ForecastPoint, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		day := last.AddDate(0, 0, i)
		yhat := model.predict(first, day)
		spread := boundZ * model.residStd

		forecast = append(forecast, &domain.ForecastPoint{
			Date:      domain.DateKey(day),
			Predicted: clampCount(yhat),
			Lower:     clampCount(yhat - spread),
			Upper:     clampCount(yhat + spread),
		})
	}

	if f.metrics != nil {
		f.metrics.ForecastsGenerated.Inc()
		f.metrics.ForecastHorizon.Observe(float64(horizonDays))
	}
	return forecast, nil
}

// clampCount floors a forecast value at zero and coerces it to an
// integer count.
func clampCount(v float64) int {
	return int(math.Max(0, v))
}
