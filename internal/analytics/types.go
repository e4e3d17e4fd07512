package analytics

import "rider-analytics-lab/internal/domain"

// Summary is the aggregate analytics snapshot. All counts are zero-filled
// when the underlying collections are empty.
type Summary struct {
	TotalRiders    int64          `json:"total_riders"`
	ChurnRisk      RiskBreakdown  `json:"churn_risk"`
	RecentActivity RecentActivity `json:"recent_activity"`
	PaymentStats   PaymentStats   `json:"payment_stats"`
}

// RiskBreakdown counts predictions per risk tier.
type RiskBreakdown struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// RecentActivity covers the trailing recency window.
type RecentActivity struct {
	TotalSwaps   int     `json:"total_swaps_30_days"`
	DailyAverage float64 `json:"daily_average"`
}

// PaymentStats summarizes payment outcomes across all time.
type PaymentStats struct {
	TotalPayments  int64   `json:"total_payments"`
	FailedPayments int64   `json:"failed_payments"`
	SuccessRate    float64 `json:"success_rate"` // percent, (total-failed)/max(total,1)*100
}

// PaymentTrendPoint counts payments of one status on one day.
type PaymentTrendPoint struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Trends holds the windowed daily swap counts and per-status payment
// counts. Both series are empty, not nil-padded, when nothing matches.
type Trends struct {
	DailySwaps    []*domain.DailyDemandPoint `json:"daily_swaps"`
	PaymentTrends []*PaymentTrendPoint       `json:"payment_trends"`
}

// Recommendation pairs one high-risk rider with the static retention
// playbook.
type Recommendation struct {
	RiderID            string   `json:"riderId"`
	RiderName          string   `json:"riderName"`
	RiskProbability    float64  `json:"risk_probability"`
	RecommendedActions []string `json:"recommended_actions"`
}

// maxRecommendations caps the retention list at the highest-risk riders.
const maxRecommendations = 10

// retentionActions is the static playbook attached to every
// recommendation.
var retentionActions = []string{
	"Send personalized discount offer",
	"Provide priority customer support",
	"Offer loyalty program enrollment",
	"Follow up with satisfaction survey",
}
