package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"rider-analytics-lab/internal/churn"
	"rider-analytics-lab/internal/demand"
	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
)

// DefaultTrendWindowDays is the trends window when the caller does not
// provide one.
const DefaultTrendWindowDays = 30

// Service answers the read-only analytics queries on top of the stores
// and the churn scorer.
type Service struct {
	riders   storage.RiderStore
	swaps    storage.SwapStore
	payments storage.PaymentStore
	churn    *churn.Service
	logger   *log.Logger

	clock func() time.Time
}

func NewService(
	riders storage.RiderStore,
	swaps storage.SwapStore,
	payments storage.PaymentStore,
	churnSvc *churn.Service,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[analytics] ", log.LstdFlags)
	}
	return &Service{
		riders:   riders,
		swaps:    swaps,
		payments: payments,
		churn:    churnSvc,
		logger:   logger,
		clock:    time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Summary builds the aggregate snapshot. A missing or untrained churn
// model zeroes the risk breakdown without failing the whole summary.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	totalRiders, err := s.riders.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count riders: %w", err)
	}

	out := &Summary{TotalRiders: totalRiders}

	predictions, err := s.churn.PredictAll(ctx)
	switch {
	case err == nil:
		for _, p := range predictions {
			switch p.Risk {
			case domain.RiskHigh:
				out.ChurnRisk.High++
			case domain.RiskMedium:
				out.ChurnRisk.Medium++
			default:
				out.ChurnRisk.Low++
			}
		}
	case errors.Is(err, churn.ErrModelNotReady), errors.Is(err, churn.ErrNoData):
		// No scores yet; the breakdown stays zero.
	default:
		return nil, fmt.Errorf("score riders: %w", err)
	}

	now := s.clock()
	cutoff := now.AddDate(0, 0, -domain.RecencyWindowDays)
	recent, err := s.swaps.GetSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("fetch recent swaps: %w", err)
	}
	out.RecentActivity.TotalSwaps = len(recent)
	out.RecentActivity.DailyAverage = roundTo(float64(len(recent))/float64(domain.RecencyWindowDays), 2)

	totalPayments, err := s.payments.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}
	failedPayments, err := s.payments.CountByStatus(ctx, domain.PaymentStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("count failed payments: %w", err)
	}
	out.PaymentStats.TotalPayments = totalPayments
	out.PaymentStats.FailedPayments = failedPayments
	denom := totalPayments
	if denom < 1 {
		denom = 1
	}
	out.PaymentStats.SuccessRate = roundTo(float64(totalPayments-failedPayments)/float64(denom)*100, 2)

	return out, nil
}

// Trends returns daily swap counts and per-status payment counts over
// the trailing window. windowDays <= 0 falls back to the default.
func (s *Service) Trends(ctx context.Context, windowDays int) (*Trends, error) {
	if windowDays <= 0 {
		windowDays = DefaultTrendWindowDays
	}
	now := s.clock()
	cutoff := now.AddDate(0, 0, -windowDays)

	swaps, err := s.swaps.GetSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("fetch swaps: %w", err)
	}
	payments, err := s.payments.GetSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}

	out := &Trends{
		DailySwaps:    []*domain.DailyDemandPoint{},
		PaymentTrends: []*PaymentTrendPoint{},
	}
	if points := demand.Aggregate(swaps, "", now); points != nil {
		out.DailySwaps = points
	}

	type dayStatus struct {
		date   string
		status string
	}
	counts := make(map[dayStatus]int)
	for _, p := range payments {
		t := p.CreatedAt.Time
		if t.IsZero() {
			t = now
		}
		key := dayStatus{date: domain.DateKey(t), status: p.Status}
		counts[key]++
	}
	for key, n := range counts {
		out.PaymentTrends = append(out.PaymentTrends, &PaymentTrendPoint{
			Date:   key.date,
			Status: key.status,
			Count:  n,
		})
	}
	sort.Slice(out.PaymentTrends, func(i, j int) bool {
		a, b := out.PaymentTrends[i], out.PaymentTrends[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Status < b.Status
	})

	return out, nil
}

// RetentionRecommendations returns the highest-risk riders, capped at
// ten, each with the static action playbook. An untrained model yields
// an empty list.
func (s *Service) RetentionRecommendations(ctx context.Context) ([]*Recommendation, error) {
	predictions, err := s.churn.PredictAll(ctx)
	if err != nil {
		if errors.Is(err, churn.ErrModelNotReady) || errors.Is(err, churn.ErrNoData) {
			return []*Recommendation{}, nil
		}
		return nil, fmt.Errorf("score riders: %w", err)
	}

	highRisk := make([]*domain.ChurnPrediction, 0, len(predictions))
	for _, p := range predictions {
		if p.Risk == domain.RiskHigh {
			highRisk = append(highRisk, p)
		}
	}
	sort.Slice(highRisk, func(i, j int) bool {
		if highRisk[i].Probability != highRisk[j].Probability {
			return highRisk[i].Probability > highRisk[j].Probability
		}
		return highRisk[i].RiderID < highRisk[j].RiderID
	})
	if len(highRisk) > maxRecommendations {
		highRisk = highRisk[:maxRecommendations]
	}

	out := make([]*Recommendation, 0, len(highRisk))
	for _, p := range highRisk {
		rider, err := s.riders.GetByRiderID(ctx, p.RiderID)
		if errors.Is(err, storage.ErrNotFound) {
			// Scored from stale data; the rider record is gone.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch rider %s: %w", p.RiderID, err)
		}
		name := rider.Name
		if name == "" {
			name = "Unknown"
		}
		out = append(out, &Recommendation{
			RiderID:            p.RiderID,
			RiderName:          name,
			RiskProbability:    p.Probability,
			RecommendedActions: append([]string(nil), retentionActions...),
		})
	}
	return out, nil
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
