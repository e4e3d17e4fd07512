package demand

import (
	"math"
	"time"
)

// seasonalModel is an additive decomposition of a daily count series:
// a linear trend over the day index plus a weekly component per weekday.
// The residual spread after removing both supplies the forecast bounds.
type seasonalModel struct {
	intercept float64
	slope     float64
	weekly    [7]float64 // indexed by time.Weekday
	residStd  float64
}

// fitSeasonal fits the model to aligned days and counts. Days may have
// calendar gaps; the trend regresses on the true day offset from the
// first observation, not the slice index.
func fitSeasonal(days []time.Time, counts []float64) *seasonalModel {
	n := len(days)
	m := &seasonalModel{}

	first := days[0]
	x := make([]float64, n)
	for i, d := range days {
		x[i] = dayOffset(first, d)
	}

	// Least-squares trend.
	var sumX, sumY, sumXY, sumXX float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += counts[i]
		sumXY += x[i] * counts[i]
		sumXX += x[i] * x[i]
	}
	denom := float64(n)*sumXX - sumX*sumX
	if denom != 0 {
		m.slope = (float64(n)*sumXY - sumX*sumY) / denom
	}
	m.intercept = (sumY - m.slope*sumX) / float64(n)

	// Weekly component: mean detrended residual per weekday.
	var wdSum [7]float64
	var wdCount [7]int
	for i, d := range days {
		r := counts[i] - (m.intercept + m.slope*x[i])
		wd := d.Weekday()
		wdSum[wd] += r
		wdCount[wd]++
	}
	for wd := range m.weekly {
		if wdCount[wd] > 0 {
			m.weekly[wd] = wdSum[wd] / float64(wdCount[wd])
		}
	}

	// Residual spread after trend and seasonality.
	var sq float64
	for i, d := range days {
		e := counts[i] - (m.intercept + m.slope*x[i] + m.weekly[d.Weekday()])
		sq += e * e
	}
	m.residStd = math.Sqrt(sq / float64(n))

	return m
}

// predict returns the fitted value for a day, given the first observed
// day the model was fitted against.
func (m *seasonalModel) predict(first, day time.Time) float64 {
	return m.intercept + m.slope*dayOffset(first, day) + m.weekly[day.Weekday()]
}

// dayOffset counts whole days between two UTC days.
func dayOffset(first, day time.Time) float64 {
	return math.Round(day.Sub(first).Hours() / 24)
}
