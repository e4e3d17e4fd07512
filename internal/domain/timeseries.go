package domain

import "time"

// DateKeyLayout is the day-granularity key format for daily series.
const DateKeyLayout = "2006-01-02"

// DateKey normalizes a timestamp to its UTC day key.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateKeyLayout)
}

// DailyDemandPoint is one day of aggregated swap demand.
// Corresponds to the demand_timeseries table in ClickHouse when mirrored.
type DailyDemandPoint struct {
	Date     string `json:"date"`               // YYYY-MM-DD, UTC
	Location string `json:"location,omitempty"` // empty = all locations
	Count    int    `json:"count"`
}

// ForecastPoint is one projected day of swap demand with uncertainty
// bounds. Invariant: 0 <= Lower <= Predicted <= Upper.
type ForecastPoint struct {
	Date      string `json:"date"`
	Predicted int    `json:"predicted_swaps"`
	Lower     int    `json:"lower_bound"`
	Upper     int    `json:"upper_bound"`
}
