package domain

import "math"

// FeatureVector holds the derived per-rider features and churn label at
// extraction time. One row per distinct riderId in the rider collection,
// in collection scan order.
type FeatureVector struct {
	RiderID               string  `json:"riderId"`
	SwapCount             int     `json:"swap_count"`
	RecentSwapCount       int     `json:"recent_swap_count"` // swaps within RecencyWindowDays
	TotalPayments         int     `json:"total_payments"`
	FailedPayments        int     `json:"failed_payments"`
	PaymentFailureRate    float64 `json:"payment_failure_rate"` // failed / max(total, 1)
	DaysSinceRegistration int     `json:"days_since_registration"`
	DaysSinceLastSwap     int     `json:"days_since_last_swap"` // maximal when the rider has no swaps
	AvgSwapsPerDay        float64 `json:"avg_swaps_per_day"`    // swap_count / max(days_since_registration, 1)
	Region                string  `json:"region"`
	RegionEncoded         int     `json:"region_encoded"`
	IsChurned             int     `json:"is_churned"` // 1 iff days_since_last_swap > RecencyWindowDays
}

// FeatureDim is the number of numeric columns fed to the classifier.
const FeatureDim = 9

// Row returns the numeric feature columns in classifier order.
// NaN and Inf values are filled with 0.
func (f *FeatureVector) Row() []float64 {
	row := []float64{
		float64(f.SwapCount),
		float64(f.RecentSwapCount),
		float64(f.TotalPayments),
		float64(f.FailedPayments),
		f.PaymentFailureRate,
		float64(f.DaysSinceRegistration),
		float64(f.DaysSinceLastSwap),
		f.AvgSwapsPerDay,
		float64(f.RegionEncoded),
	}
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			row[i] = 0
		}
	}
	return row
}

// FeatureTable is the extraction result consumed by the classifier.
type FeatureTable struct {
	Rows []*FeatureVector
}

// Matrix returns the numeric feature matrix, one Row per rider.
func (t *FeatureTable) Matrix() [][]float64 {
	m := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		m[i] = r.Row()
	}
	return m
}

// Labels returns the churn labels aligned with Matrix rows.
func (t *FeatureTable) Labels() []int {
	labels := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		labels[i] = r.IsChurned
	}
	return labels
}
