// Package features derives the per-rider feature table consumed by the
// churn classifier. Extraction is a pure function of the raw collections
// and the injected "now"; no wall-clock reads happen here.
package features

import (
	"math"
	"time"

	"rider-analytics-lab/internal/domain"
)

const unknownRegion = domain.RegionUnknown

// Extractor turns raw rider/swap/payment records into a feature table.
// With no encoder supplied it fits the region encoding from the rider set
// (training); with a fitted encoder it reuses it (inference).
type Extractor struct {
	regions *LabelEncoder
}

// NewExtractor creates an extractor that fits its region encoder during
// extraction.
func NewExtractor() *Extractor {
	return &Extractor{regions: NewLabelEncoder()}
}

// NewExtractorWithEncoder creates an extractor that reuses a previously
// fitted region encoder.
func NewExtractorWithEncoder(enc *LabelEncoder) *Extractor {
	return &Extractor{regions: enc}
}

// Encoder returns the region encoder, fitted after Extract has run.
func (e *Extractor) Encoder() *LabelEncoder {
	return e.regions
}

// Extract builds one feature row per rider, in rider slice order.
// Returns nil when the rider set is empty. Swap and payment events are
// matched to riders by a linear riderId scan; no index is assumed.
func (e *Extractor) Extract(
	riders []*domain.RiderRecord,
	swaps []*domain.SwapEvent,
	payments []*domain.PaymentRecord,
	now time.Time,
) *domain.FeatureTable {
	if len(riders) == 0 {
		return nil
	}

	regions := make([]string, len(riders))
	for i, r := range riders {
		regions[i] = regionOf(r)
	}
	if !e.regions.Fitted() {
		e.regions.Fit(regions)
	}

	recentCutoff := now.Add(-domain.RecencyWindowDays * 24 * time.Hour)

	rows := make([]*domain.FeatureVector, 0, len(riders))
	for i, rider := range riders {
		var (
			swapCount   int
			recentCount int
			lastSwap    time.Time // zero when the rider has no dated swaps
		)
		for _, s := range swaps {
			if s.RiderID != rider.RiderID {
				continue
			}
			swapCount++
			// An undated swap keeps the minimum possible date: it is
			// never recent and never advances lastSwap.
			if s.SwapDate.After(recentCutoff) {
				recentCount++
			}
			if s.SwapDate.After(lastSwap) {
				lastSwap = s.SwapDate.Time
			}
		}

		var totalPayments, failedPayments int
		for _, p := range payments {
			if p.RiderID != rider.RiderID {
				continue
			}
			totalPayments++
			if p.Status == domain.PaymentStatusFailed {
				failedPayments++
			}
		}

		regDate := rider.RegistrationDate.Time
		if regDate.IsZero() {
			regDate = now
		}
		daysSinceReg := floorDays(now.Sub(regDate))
		daysSinceLastSwap := floorDays(now.Sub(lastSwap))

		rows = append(rows, &domain.FeatureVector{
			RiderID:               rider.RiderID,
			SwapCount:             swapCount,
			RecentSwapCount:       recentCount,
			TotalPayments:         totalPayments,
			FailedPayments:        failedPayments,
			PaymentFailureRate:    float64(failedPayments) / float64(maxInt(totalPayments, 1)),
			DaysSinceRegistration: daysSinceReg,
			DaysSinceLastSwap:     daysSinceLastSwap,
			AvgSwapsPerDay:        float64(swapCount) / float64(maxInt(daysSinceReg, 1)),
			Region:                regions[i],
			RegionEncoded:         e.regions.Transform(regions[i]),
			IsChurned:             churnLabel(daysSinceLastSwap),
		})
	}

	return &domain.FeatureTable{Rows: rows}
}

// churnLabel is 1 iff the rider's last swap is older than the recency
// window. A rider with no swaps has a maximal days-since-last-swap and is
// always churned.
func churnLabel(daysSinceLastSwap int) int {
	if daysSinceLastSwap > domain.RecencyWindowDays {
		return 1
	}
	return 0
}

func regionOf(r *domain.RiderRecord) string {
	if r.Region == "" {
		return unknownRegion
	}
	return r.Region
}

// floorDays converts a duration to whole days, rounding toward negative
// infinity like the original calendar arithmetic.
func floorDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
