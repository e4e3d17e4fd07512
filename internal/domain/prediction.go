package domain

// RiskLevel classifies a rider's churn risk.
type RiskLevel string

// Risk tiers
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// MediumRiskThreshold is the churn probability above which a rider
// predicted as not-churn is still tiered medium instead of low.
const MediumRiskThreshold = 0.3

// ChurnPrediction is one risk-tiered classifier output.
type ChurnPrediction struct {
	RiderID     string    `json:"riderId"`
	Risk        RiskLevel `json:"risk"`
	Probability float64   `json:"probability"` // probability of the churn class, 0..1
}

// TierRisk derives the risk tier from the predicted class and the churn
// probability. Policy: predicted churn is always high; not-churn above
// MediumRiskThreshold is medium; everything else is low.
func TierRisk(predictedChurn bool, churnProbability float64) RiskLevel {
	if predictedChurn {
		return RiskHigh
	}
	if churnProbability > MediumRiskThreshold {
		return RiskMedium
	}
	return RiskLow
}
