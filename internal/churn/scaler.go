package churn

import "math"

// StandardScaler standardizes feature columns to zero mean and unit
// variance. It is fitted on the training partition only and the same
// transform is applied to the held-out partition and at inference time,
// so no statistics leak from test data.
type StandardScaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// NewStandardScaler creates an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-column mean and population standard deviation.
// A constant column gets std 1 so its transform is a pure shift.
func (s *StandardScaler) Fit(m [][]float64) {
	if len(m) == 0 {
		s.Means, s.Stds = nil, nil
		return
	}

	dim := len(m[0])
	means := make([]float64, dim)
	stds := make([]float64, dim)

	for j := 0; j < dim; j++ {
		var sum float64
		for _, row := range m {
			sum += row[j]
		}
		means[j] = sum / float64(len(m))

		var sq float64
		for _, row := range m {
			d := row[j] - means[j]
			sq += d * d
		}
		stds[j] = math.Sqrt(sq / float64(len(m)))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	s.Means, s.Stds = means, stds
}

// Fitted reports whether Fit has run.
func (s *StandardScaler) Fitted() bool {
	return len(s.Means) > 0
}

// Transform returns a standardized copy of the matrix.
func (s *StandardScaler) Transform(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Means[j]) / s.Stds[j]
		}
		out[i] = scaled
	}
	return out
}
