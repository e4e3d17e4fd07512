package analytics

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"rider-analytics-lab/internal/churn"
	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
	"rider-analytics-lab/internal/storage/memory"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	riders   *memory.RiderStore
	swaps    *memory.SwapStore
	payments *memory.PaymentStore
	churn    *churn.Service
	svc      *Service
}

func newFixture() *fixture {
	riders := memory.NewRiderStore()
	swaps := memory.NewSwapStore()
	payments := memory.NewPaymentStore()
	logger := log.New(io.Discard, "", 0)

	clock := func() time.Time { return testNow }
	churnSvc := churn.NewService(riders, swaps, payments, memory.NewArtifactStore(), logger).
		WithClock(clock)

	svc := NewService(riders, swaps, payments, churnSvc, logger).WithClock(clock)
	return &fixture{riders: riders, swaps: swaps, payments: payments, churn: churnSvc, svc: svc}
}

// seed populates perClass active and perClass churned riders plus
// payments, mirroring the churn service test dataset.
func (f *fixture) seed(t *testing.T, perClass int) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < perClass; i++ {
		activeID := fmt.Sprintf("active-%d", i)
		churnedID := fmt.Sprintf("churned-%d", i)

		must(t, f.riders.Insert(ctx, &domain.RiderRecord{
			RiderID:          activeID,
			Name:             "Active " + activeID,
			RegistrationDate: domain.NewFlexTime(testNow.AddDate(0, 0, -100)),
			Region:           "north",
		}))
		must(t, f.riders.Insert(ctx, &domain.RiderRecord{
			RiderID:          churnedID,
			Name:             "Churned " + churnedID,
			RegistrationDate: domain.NewFlexTime(testNow.AddDate(0, 0, -100)),
			Region:           "south",
		}))

		for d := 2; d <= 10; d += 2 {
			must(t, f.swaps.Insert(ctx, &domain.SwapEvent{
				RiderID:  activeID,
				SwapDate: domain.NewFlexTime(testNow.AddDate(0, 0, -d)),
				Location: domain.SwapLocation{Name: "station-a"},
			}))
		}
		must(t, f.swaps.Insert(ctx, &domain.SwapEvent{
			RiderID:  churnedID,
			SwapDate: domain.NewFlexTime(testNow.AddDate(0, 0, -60)),
			Location: domain.SwapLocation{Name: "station-a"},
		}))

		must(t, f.payments.Insert(ctx, &domain.PaymentRecord{
			RiderID:   activeID,
			Status:    domain.PaymentStatusCompleted,
			CreatedAt: domain.NewFlexTime(testNow.AddDate(0, 0, -3)),
		}))
		must(t, f.payments.Insert(ctx, &domain.PaymentRecord{
			RiderID:   churnedID,
			Status:    domain.PaymentStatusFailed,
			CreatedAt: domain.NewFlexTime(testNow.AddDate(0, 0, -3)),
		}))
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestSummary_EmptyCollections(t *testing.T) {
	f := newFixture()

	summary, err := f.svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.TotalRiders != 0 {
		t.Errorf("expected 0 riders, got %d", summary.TotalRiders)
	}
	if summary.ChurnRisk != (RiskBreakdown{}) {
		t.Errorf("expected zero risk breakdown, got %+v", summary.ChurnRisk)
	}
	if summary.RecentActivity.TotalSwaps != 0 || summary.RecentActivity.DailyAverage != 0 {
		t.Errorf("expected zero activity, got %+v", summary.RecentActivity)
	}
	// Zero payments: the max(total,1) guard yields 0%, not a division fault
	if summary.PaymentStats.SuccessRate != 0 {
		t.Errorf("expected success rate 0, got %v", summary.PaymentStats.SuccessRate)
	}
}

func TestSummary_Populated(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seed(t, 10)

	if _, err := f.churn.Train(ctx); err != nil {
		t.Fatalf("train: %v", err)
	}

	summary, err := f.svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.TotalRiders != 20 {
		t.Errorf("expected 20 riders, got %d", summary.TotalRiders)
	}

	breakdown := summary.ChurnRisk
	if breakdown.High+breakdown.Medium+breakdown.Low != 20 {
		t.Errorf("risk breakdown does not cover all riders: %+v", breakdown)
	}
	if breakdown.High < 10 {
		t.Errorf("expected at least the 10 churned riders tiered high, got %d", breakdown.High)
	}

	// 10 active riders x 5 swaps each fall inside the window; the
	// churned swaps are 60 days old
	if summary.RecentActivity.TotalSwaps != 50 {
		t.Errorf("expected 50 recent swaps, got %d", summary.RecentActivity.TotalSwaps)
	}
	if summary.RecentActivity.DailyAverage != 1.67 {
		t.Errorf("expected daily average 1.67, got %v", summary.RecentActivity.DailyAverage)
	}

	if summary.PaymentStats.TotalPayments != 20 || summary.PaymentStats.FailedPayments != 10 {
		t.Errorf("unexpected payment stats: %+v", summary.PaymentStats)
	}
	if summary.PaymentStats.SuccessRate != 50 {
		t.Errorf("expected success rate 50, got %v", summary.PaymentStats.SuccessRate)
	}
}

func TestSummary_UntrainedModelZeroesRiskOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seed(t, 5)

	summary, err := f.svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.ChurnRisk != (RiskBreakdown{}) {
		t.Errorf("expected zero risk breakdown without a model, got %+v", summary.ChurnRisk)
	}
	// The rest of the summary still reflects the collections
	if summary.TotalRiders != 10 {
		t.Errorf("expected 10 riders, got %d", summary.TotalRiders)
	}
}

func TestTrends_GroupsByDayAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	day := testNow.AddDate(0, 0, -2)
	must(t, f.swaps.Insert(ctx, &domain.SwapEvent{
		RiderID: "r1", SwapDate: domain.NewFlexTime(day), Location: domain.SwapLocation{Name: "a"},
	}))
	must(t, f.swaps.Insert(ctx, &domain.SwapEvent{
		RiderID: "r2", SwapDate: domain.NewFlexTime(day.Add(time.Hour)), Location: domain.SwapLocation{Name: "b"},
	}))
	must(t, f.payments.Insert(ctx, &domain.PaymentRecord{
		RiderID: "r1", Status: domain.PaymentStatusCompleted, CreatedAt: domain.NewFlexTime(day),
	}))
	must(t, f.payments.Insert(ctx, &domain.PaymentRecord{
		RiderID: "r2", Status: domain.PaymentStatusFailed, CreatedAt: domain.NewFlexTime(day),
	}))
	must(t, f.payments.Insert(ctx, &domain.PaymentRecord{
		RiderID: "r1", Status: domain.PaymentStatusCompleted, CreatedAt: domain.NewFlexTime(day.Add(2 * time.Hour)),
	}))

	trends, err := f.svc.Trends(ctx, 30)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}

	if len(trends.DailySwaps) != 1 || trends.DailySwaps[0].Count != 2 {
		t.Errorf("unexpected daily swaps: %+v", trends.DailySwaps)
	}

	if len(trends.PaymentTrends) != 2 {
		t.Fatalf("expected 2 payment trend rows, got %d", len(trends.PaymentTrends))
	}
	// Sorted by date then status: completed before failed
	if trends.PaymentTrends[0].Status != domain.PaymentStatusCompleted || trends.PaymentTrends[0].Count != 2 {
		t.Errorf("unexpected completed row: %+v", trends.PaymentTrends[0])
	}
	if trends.PaymentTrends[1].Status != domain.PaymentStatusFailed || trends.PaymentTrends[1].Count != 1 {
		t.Errorf("unexpected failed row: %+v", trends.PaymentTrends[1])
	}
}

func TestTrends_WindowExcludesOldEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	must(t, f.swaps.Insert(ctx, &domain.SwapEvent{
		RiderID:  "r1",
		SwapDate: domain.NewFlexTime(testNow.AddDate(0, 0, -40)),
		Location: domain.SwapLocation{Name: "a"},
	}))

	trends, err := f.svc.Trends(ctx, 30)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if len(trends.DailySwaps) != 0 {
		t.Errorf("40-day-old swap leaked into a 30-day window: %+v", trends.DailySwaps)
	}
}

func TestTrends_EmptySeriesNotNil(t *testing.T) {
	f := newFixture()

	trends, err := f.svc.Trends(context.Background(), 0)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if trends.DailySwaps == nil || trends.PaymentTrends == nil {
		t.Error("expected empty slices, got nil")
	}
}

func TestRetentionRecommendations_TopTenHighRisk(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seed(t, 15) // 15 churned riders, more than the cap

	if _, err := f.churn.Train(ctx); err != nil {
		t.Fatalf("train: %v", err)
	}

	recs, err := f.svc.RetentionRecommendations(ctx)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}

	if len(recs) != 10 {
		t.Fatalf("expected 10 recommendations, got %d", len(recs))
	}
	for i, rec := range recs {
		if rec.RiderName == "" {
			t.Errorf("recommendation %d missing rider name", i)
		}
		if len(rec.RecommendedActions) != len(retentionActions) {
			t.Errorf("recommendation %d has %d actions, want %d",
				i, len(rec.RecommendedActions), len(retentionActions))
		}
		if i > 0 && recs[i-1].RiskProbability < rec.RiskProbability {
			t.Errorf("recommendations not sorted by risk at %d", i)
		}
	}
}

// vanishingRiderStore hides one rider id behind ErrNotFound, emulating
// a record deleted after the model scored it.
type vanishingRiderStore struct {
	*memory.RiderStore
	hidden string
}

func (s *vanishingRiderStore) GetByRiderID(ctx context.Context, riderID string) (*domain.RiderRecord, error) {
	if riderID == s.hidden {
		return nil, storage.ErrNotFound
	}
	return s.RiderStore.GetByRiderID(ctx, riderID)
}

func TestRetentionRecommendations_MissingAndUnnamedRiders(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seed(t, 5)

	// Two more churned riders: one with no name on record, one whose
	// record disappears before the lookup.
	for _, id := range []string{"churned-blank", "churned-ghost"} {
		name := ""
		if id == "churned-ghost" {
			name = "Ghost"
		}
		must(t, f.riders.Insert(ctx, &domain.RiderRecord{
			RiderID:          id,
			Name:             name,
			RegistrationDate: domain.NewFlexTime(testNow.AddDate(0, 0, -100)),
			Region:           "south",
		}))
		must(t, f.swaps.Insert(ctx, &domain.SwapEvent{
			RiderID:  id,
			SwapDate: domain.NewFlexTime(testNow.AddDate(0, 0, -60)),
			Location: domain.SwapLocation{Name: "station-a"},
		}))
		must(t, f.payments.Insert(ctx, &domain.PaymentRecord{
			RiderID:   id,
			Status:    domain.PaymentStatusFailed,
			CreatedAt: domain.NewFlexTime(testNow.AddDate(0, 0, -3)),
		}))
	}

	if _, err := f.churn.Train(ctx); err != nil {
		t.Fatalf("train: %v", err)
	}

	clock := func() time.Time { return testNow }
	svc := NewService(
		&vanishingRiderStore{RiderStore: f.riders, hidden: "churned-ghost"},
		f.swaps, f.payments, f.churn, log.New(io.Discard, "", 0),
	).WithClock(clock)

	recs, err := svc.RetentionRecommendations(ctx)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}

	var sawBlank bool
	for _, rec := range recs {
		if rec.RiderID == "churned-ghost" {
			t.Errorf("deleted rider %s should be skipped", rec.RiderID)
		}
		if rec.RiderID == "churned-blank" {
			sawBlank = true
			if rec.RiderName != "Unknown" {
				t.Errorf("unnamed rider got name %q, want Unknown", rec.RiderName)
			}
		}
	}
	if !sawBlank {
		t.Error("expected the unnamed high-risk rider in the recommendations")
	}
}

func TestRetentionRecommendations_NoModel(t *testing.T) {
	f := newFixture()
	f.seed(t, 3)

	recs, err := f.svc.RetentionRecommendations(context.Background())
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected empty list without a model, got %d", len(recs))
	}
}
