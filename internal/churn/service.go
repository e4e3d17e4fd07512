// Package churn trains and serves the rider churn classifier: a bagged
// ensemble of decision trees over the standardized per-rider feature
// table, with risk tiering on top of the predicted churn probability.
package churn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"rider-analytics-lab/internal/domain"
	"rider-analytics-lab/internal/features"
	"rider-analytics-lab/internal/observability"
	"rider-analytics-lab/internal/storage"
)

// Service errors. Both degrade to empty/false responses at the HTTP
// boundary; they exist so tests and callers can tell the failure modes
// apart.
var (
	// ErrNoData means the rider collection is empty: nothing to train
	// on and nothing to predict for.
	ErrNoData = errors.New("no rider data available")

	// ErrModelNotReady means no trained model is resident. Bootstrap or
	// Train must succeed before predictions are served.
	ErrModelNotReady = errors.New("churn model not ready")
)

// TrainResult summarizes one training run for observability.
type TrainResult struct {
	Riders   int     `json:"riders"`
	TestSize int     `json:"test_size"`
	Accuracy float64 `json:"accuracy"` // held-out accuracy; 1 when the test partition is empty
}

// Service owns the resident churn model generation. The model and its
// transform are replaced as one value under the lock, so concurrent
// readers see either the old generation or the new one, never a mix.
type Service struct {
	riders    storage.RiderStore
	swaps     storage.SwapStore
	payments  storage.PaymentStore
	artifacts storage.ModelArtifactStore

	logger  *log.Logger
	metrics *observability.Metrics
	clock   func() time.Time

	mu    sync.RWMutex
	model *Model
}

// NewService creates a churn service. No model is resident until
// Bootstrap or Train succeeds.
func NewService(
	riders storage.RiderStore,
	swaps storage.SwapStore,
	payments storage.PaymentStore,
	artifacts storage.ModelArtifactStore,
	logger *log.Logger,
) *Service {
	return &Service{
		riders:    riders,
		swaps:     swaps,
		payments:  payments,
		artifacts: artifacts,
		logger:    logger,
		clock:     time.Now,
	}
}

// WithMetrics attaches prometheus metrics.
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// WithClock overrides the wall clock, for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Ready reports whether a model is resident.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Bootstrap makes the service ready: it loads the persisted artifact
// pair if one exists, otherwise trains from the current collections.
// Returns ErrNoData when there are no artifacts and no riders to train
// on; the service stays unready and predictions return ErrModelNotReady.
func (s *Service) Bootstrap(ctx context.Context) error {
	modelBlob, scalerBlob, err := s.artifacts.LoadModel(ctx)
	if err == nil {
		model, uerr := UnmarshalModel(modelBlob, scalerBlob)
		if uerr == nil {
			s.mu.Lock()
			s.model = model
			s.mu.Unlock()
			s.logger.Printf("churn model loaded from persisted artifacts")
			return nil
		}
		// Corrupt artifacts: fall through to retraining.
		s.logger.Printf("persisted churn artifacts unusable, retraining: %v", uerr)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load churn artifacts: %w", err)
	}

	_, err = s.Train(ctx)
	return err
}

// Train fits a new model generation from the current collections,
// persists both artifact blobs and swaps the resident model.
func (s *Service) Train(ctx context.Context) (*TrainResult, error) {
	start := s.clock()

	result, err := s.train(ctx)
	if err != nil {
		s.observeTraining("failure", start, 0)
		return nil, err
	}

	s.observeTraining("success", start, result.Accuracy)
	s.logger.Printf("churn model trained: riders=%d test=%d accuracy=%.2f",
		result.Riders, result.TestSize, result.Accuracy)
	return result, nil
}

func (s *Service) train(ctx context.Context) (*TrainResult, error) {
	riders, swaps, payments, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	extractor := features.NewExtractor()
	table := extractor.Extract(riders, swaps, payments, s.clock())
	if table == nil {
		return nil, ErrNoData
	}

	matrix := table.Matrix()
	labels := table.Labels()

	trainIdx, testIdx := trainTestSplit(len(matrix))
	trainX := selectRows(matrix, trainIdx)
	trainY := selectLabels(labels, trainIdx)
	testX := selectRows(matrix, testIdx)
	testY := selectLabels(labels, testIdx)

	// Standardize on the training partition only; the held-out rows get
	// the same transform so no statistics leak across the split.
	scaler := NewStandardScaler()
	scaler.Fit(trainX)

	forest := FitForest(scaler.Transform(trainX), trainY)
	acc := forest.accuracy(scaler.Transform(testX), testY)

	model := &Model{Forest: forest, Scaler: scaler, Regions: extractor.Encoder()}

	modelBlob, scalerBlob, err := model.Marshal()
	if err != nil {
		return nil, err
	}
	if err := s.artifacts.SaveModel(ctx, modelBlob, scalerBlob); err != nil {
		return nil, fmt.Errorf("persist churn artifacts: %w", err)
	}

	s.mu.Lock()
	s.model = model
	s.mu.Unlock()

	return &TrainResult{Riders: len(matrix), TestSize: len(testY), Accuracy: acc}, nil
}

// PredictAll scores every rider against the resident model. Output order
// follows the rider collection scan order. Returns ErrModelNotReady when
// the service has not been bootstrapped and ErrNoData when the rider
// collection is empty.
func (s *Service) PredictAll(ctx context.Context) ([]*domain.ChurnPrediction, error) {
	s.mu.RLock()
	model := s.model
	s.mu.RUnlock()
	if model == nil {
		return nil, ErrModelNotReady
	}

	riders, swaps, payments, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	table := features.NewExtractorWithEncoder(model.Regions).Extract(riders, swaps, payments, s.clock())
	if table == nil {
		return nil, ErrNoData
	}

	scaled := model.Scaler.Transform(table.Matrix())

	predictions := make([]*domain.ChurnPrediction, len(table.Rows))
	for i, row := range table.Rows {
		p := model.Forest.PredictProba(scaled[i])
		predictions[i] = &domain.ChurnPrediction{
			RiderID:     row.RiderID,
			Risk:        domain.TierRisk(model.Forest.Predict(scaled[i]), p),
			Probability: p,
		}
	}

	if s.metrics != nil {
		s.metrics.PredictionsServed.Add(float64(len(predictions)))
	}
	return predictions, nil
}

// PredictRider scores a single rider. Returns storage.ErrNotFound when
// the rider has no prediction; that is a normal outcome, not a fault.
func (s *Service) PredictRider(ctx context.Context, riderID string) (*domain.ChurnPrediction, error) {
	predictions, err := s.PredictAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range predictions {
		if p.RiderID == riderID {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Service) fetch(ctx context.Context) ([]*domain.RiderRecord, []*domain.SwapEvent, []*domain.PaymentRecord, error) {
	riders, err := s.riders.GetAll(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch riders: %w", err)
	}
	swaps, err := s.swaps.GetAll(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch swap history: %w", err)
	}
	payments, err := s.payments.GetAll(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch payments: %w", err)
	}
	return riders, swaps, payments, nil
}

func (s *Service) observeTraining(status string, start time.Time, accuracy float64) {
	if s.metrics == nil {
		return
	}
	s.metrics.TrainingRuns.WithLabelValues(status).Inc()
	s.metrics.TrainingDuration.Observe(s.clock().Sub(start).Seconds())
	if status == "success" {
		s.metrics.ModelAccuracy.Set(accuracy)
	}
}
