// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Churn model metrics
	TrainingRuns      *prometheus.CounterVec
	TrainingDuration  prometheus.Histogram
	ModelAccuracy     prometheus.Gauge
	PredictionsServed prometheus.Counter

	// Demand forecast metrics
	ForecastsGenerated prometheus.Counter
	ForecastHorizon    prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rider_analytics"
	}

	return &Metrics{
		// Churn model metrics
		TrainingRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "churn",
			Name:      "training_runs_total",
			Help:      "Total number of churn training runs by status",
		}, []string{"status"}),
		TrainingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "churn",
			Name:      "training_duration_seconds",
			Help:      "Churn training duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ModelAccuracy: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "churn",
			Name:      "model_accuracy",
			Help:      "Held-out accuracy of the resident churn model",
		}),
		PredictionsServed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "churn",
			Name:      "predictions_served_total",
			Help:      "Total number of churn predictions served",
		}),

		// Demand forecast metrics
		ForecastsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "demand",
			Name:      "forecasts_generated_total",
			Help:      "Total number of demand forecasts generated",
		}),
		ForecastHorizon: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "demand",
			Name:      "forecast_horizon_days",
			Help:      "Requested forecast horizon in days",
			Buckets:   []float64{1, 3, 7, 14, 30},
		}),
	}
}

// Handler returns the standard prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
