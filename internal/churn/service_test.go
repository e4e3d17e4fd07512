package churn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/storage"
	"rider-analytics-lab/internal/storage/memory"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testStores struct {
	riders    *memory.RiderStore
	swaps     *memory.SwapStore
	payments  *memory.PaymentStore
	artifacts *memory.ArtifactStore
}

func newTestStores() *testStores {
	return &testStores{
		riders:    memory.NewRiderStore(),
		swaps:     memory.NewSwapStore(),
		payments:  memory.NewPaymentStore(),
		artifacts: memory.NewArtifactStore(),
	}
}

func newTestService(s *testStores) *Service {
	logger := log.New(io.Discard, "", 0)
	return NewService(s.riders, s.swaps, s.payments, s.artifacts, logger).
		WithClock(func() time.Time { return testNow })
}

// seedRiders inserts perClass active riders (swapped 2 days ago) and
// perClass churned riders (swapped 60 days ago).
func seedRiders(t *testing.T, s *testStores, perClass int) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < perClass; i++ {
		activeID := fmt.Sprintf("active-%d", i)
		churnedID := fmt.Sprintf("churned-%d", i)

		for _, r := range []*domain.RiderRecord{
			{RiderID: activeID, Name: "Active " + activeID, RegistrationDate: domain.NewFlexTime(testNow.AddDate(0, 0, -100)), Region: "north"},
			{RiderID: churnedID, Name: "Churned " + churnedID, RegistrationDate: domain.NewFlexTime(testNow.AddDate(0, 0, -100)), Region: "south"},
		} {
			if err := s.riders.Insert(ctx, r); err != nil {
				t.Fatalf("insert rider: %v", err)
			}
		}

		// Active riders swap often and recently
		for d := 2; d <= 10; d += 2 {
			if err := s.swaps.Insert(ctx, &domain.SwapEvent{
				RiderID:  activeID,
				SwapDate: domain.NewFlexTime(testNow.AddDate(0, 0, -d)),
				Location: domain.SwapLocation{Name: "station-a"},
			}); err != nil {
				t.Fatalf("insert swap: %v", err)
			}
		}
		// Churned riders swapped once, long ago
		if err := s.swaps.Insert(ctx, &domain.SwapEvent{
			RiderID:  churnedID,
			SwapDate: domain.NewFlexTime(testNow.AddDate(0, 0, -60)),
			Location: domain.SwapLocation{Name: "station-a"},
		}); err != nil {
			t.Fatalf("insert swap: %v", err)
		}

		if err := s.payments.Insert(ctx, &domain.PaymentRecord{
			RiderID:   activeID,
			Status:    domain.PaymentStatusCompleted,
			CreatedAt: domain.NewFlexTime(testNow.AddDate(0, 0, -3)),
		}); err != nil {
			t.Fatalf("insert payment: %v", err)
		}
		if err := s.payments.Insert(ctx, &domain.PaymentRecord{
			RiderID:   churnedID,
			Status:    domain.PaymentStatusFailed,
			CreatedAt: domain.NewFlexTime(testNow.AddDate(0, 0, -50)),
		}); err != nil {
			t.Fatalf("insert payment: %v", err)
		}
	}
}

func TestService_TrainEmptyCollections(t *testing.T) {
	svc := newTestService(newTestStores())

	_, err := svc.Train(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if svc.Ready() {
		t.Error("service ready after failed training")
	}
}

func TestService_PredictBeforeTraining(t *testing.T) {
	stores := newTestStores()
	seedRiders(t, stores, 10)
	svc := newTestService(stores)

	if _, err := svc.PredictAll(context.Background()); !errors.Is(err, ErrModelNotReady) {
		t.Fatalf("expected ErrModelNotReady, got %v", err)
	}
}

func TestService_TrainAndPredict(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	seedRiders(t, stores, 10)
	svc := newTestService(stores)

	result, err := svc.Train(ctx)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if result.Riders != 20 {
		t.Errorf("expected 20 riders trained, got %d", result.Riders)
	}
	if result.TestSize != 4 {
		t.Errorf("expected held-out size 4, got %d", result.TestSize)
	}
	if result.Accuracy < 0 || result.Accuracy > 1 {
		t.Errorf("accuracy out of range: %v", result.Accuracy)
	}
	if !svc.Ready() {
		t.Fatal("service not ready after training")
	}

	predictions, err := svc.PredictAll(ctx)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(predictions) != 20 {
		t.Fatalf("expected 20 predictions, got %d", len(predictions))
	}

	for _, p := range predictions {
		if p.Probability < 0 || p.Probability > 1 {
			t.Errorf("%s: probability out of range: %v", p.RiderID, p.Probability)
		}
		// Tier must follow the pure policy regardless of the score
		if p.Risk == domain.RiskLow && p.Probability > domain.MediumRiskThreshold {
			t.Errorf("%s: probability %v must not tier low", p.RiderID, p.Probability)
		}
	}

	// The two clusters are cleanly separable on recency, so the
	// ensemble must tier them apart
	byID := make(map[string]*domain.ChurnPrediction, len(predictions))
	for _, p := range predictions {
		byID[p.RiderID] = p
	}
	if p := byID["churned-0"]; p.Risk != domain.RiskHigh {
		t.Errorf("churned rider tiered %s (p=%v), want high", p.Risk, p.Probability)
	}
	if p := byID["active-0"]; p.Risk == domain.RiskHigh {
		t.Errorf("active rider tiered high (p=%v)", p.Probability)
	}
}

func TestService_TrainPersistsArtifacts(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	seedRiders(t, stores, 10)

	if _, err := newTestService(stores).Train(ctx); err != nil {
		t.Fatalf("train: %v", err)
	}

	modelBlob, scalerBlob, err := stores.artifacts.LoadModel(ctx)
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	if _, err := UnmarshalModel(modelBlob, scalerBlob); err != nil {
		t.Fatalf("persisted artifacts do not reassemble: %v", err)
	}
}

func TestService_BootstrapFromPersistedArtifacts(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	seedRiders(t, stores, 10)

	if _, err := newTestService(stores).Train(ctx); err != nil {
		t.Fatalf("train: %v", err)
	}

	// A fresh service over the same stores must come up from the
	// persisted artifact pair
	restarted := newTestService(stores)
	if err := restarted.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !restarted.Ready() {
		t.Fatal("service not ready after bootstrap")
	}

	predictions, err := restarted.PredictAll(ctx)
	if err != nil {
		t.Fatalf("predict after bootstrap: %v", err)
	}
	if len(predictions) != 20 {
		t.Errorf("expected 20 predictions, got %d", len(predictions))
	}
}

func TestService_BootstrapTrainsWhenNoArtifacts(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	seedRiders(t, stores, 10)
	svc := newTestService(stores)

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !svc.Ready() {
		t.Fatal("service not ready after bootstrap-trained model")
	}
}

func TestService_BootstrapEmptyEverything(t *testing.T) {
	svc := newTestService(newTestStores())

	if err := svc.Bootstrap(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if svc.Ready() {
		t.Error("service ready with no artifacts and no data")
	}
}

func TestService_BootstrapCorruptArtifactsRetrains(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	seedRiders(t, stores, 10)

	if err := stores.artifacts.SaveModel(ctx, []byte("{"), []byte("junk")); err != nil {
		t.Fatalf("save corrupt artifacts: %v", err)
	}

	svc := newTestService(stores)
	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap with corrupt artifacts: %v", err)
	}
	if !svc.Ready() {
		t.Fatal("service did not retrain past corrupt artifacts")
	}
}

func TestService_PredictRider(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	seedRiders(t, stores, 10)
	svc := newTestService(stores)

	if _, err := svc.Train(ctx); err != nil {
		t.Fatalf("train: %v", err)
	}

	p, err := svc.PredictRider(ctx, "churned-3")
	if err != nil {
		t.Fatalf("predict rider: %v", err)
	}
	if p.RiderID != "churned-3" {
		t.Errorf("expected churned-3, got %s", p.RiderID)
	}

	if _, err := svc.PredictRider(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown rider, got %v", err)
	}
}

func TestService_RetrainReplacesModel(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	seedRiders(t, stores, 10)
	svc := newTestService(stores)

	if _, err := svc.Train(ctx); err != nil {
		t.Fatalf("first train: %v", err)
	}

	// New rider arriving between runs changes the feature table
	if err := stores.riders.Insert(ctx, &domain.RiderRecord{
		RiderID:          "late-joiner",
		Name:             "Late Joiner",
		RegistrationDate: domain.NewFlexTime(testNow.AddDate(0, 0, -1)),
		Region:           "east",
	}); err != nil {
		t.Fatalf("insert rider: %v", err)
	}

	result, err := svc.Train(ctx)
	if err != nil {
		t.Fatalf("second train: %v", err)
	}
	if result.Riders != 21 {
		t.Errorf("expected retrain over 21 riders, got %d", result.Riders)
	}

	predictions, err := svc.PredictAll(ctx)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(predictions) != 21 {
		t.Errorf("expected 21 predictions after retrain, got %d", len(predictions))
	}
}
