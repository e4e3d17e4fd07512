// Package demand aggregates swap events into daily series and projects
// them forward with a seasonal additive model.
package demand

import (
	"sort"
	"time"

	"rider-analytics-lab/internal/domain"
)

// Aggregate normalizes swap events into a day-granularity count series,
// sorted ascending by date. With a non-empty location only events whose
// location name matches exactly are counted. Events missing a swap date
// are attributed to the current moment. Returns nil when nothing matches.
func Aggregate(swaps []*domain.SwapEvent, location string, now time.Time) []*domain.DailyDemandPoint {
	counts := make(map[string]int)
	for _, s := range swaps {
		if location != "" && s.Location.Name != location {
			continue
		}
		day := s.SwapDate.Time
		if day.IsZero() {
			day = now
		}
		counts[domain.DateKey(day)]++
	}

	if len(counts) == 0 {
		return nil
	}

	series := make([]*domain.DailyDemandPoint, 0, len(counts))
	for date, count := range counts {
		series = append(series, &domain.DailyDemandPoint{
			Date:     date,
			Location: location,
			Count:    count,
		})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date < series[j].Date
	})
	return series
}
