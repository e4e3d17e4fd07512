// Package main provides the unified analytics server:
// - Churn scoring: bootstrap on start, on-demand retraining, per-rider scores
// - Demand forecasting: daily swap series projected per location
// - Analytics: summary, trends, retention recommendations
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"rider-analytics-lab/internal/analytics"
	"rider-analytics-lab/internal/churn"
	"rider-analytics-lab/internal/demand"
	"rider-analytics-lab/internal/observability"
	"rider-analytics-lab/internal/storage"
	chstore "rider-analytics-lab/internal/storage/clickhouse"
	fsstore "rider-analytics-lab/internal/storage/fs"
	"rider-analytics-lab/internal/storage/memory"
	"rider-analytics-lab/internal/storage/migrations"
	mongostore "rider-analytics-lab/internal/storage/mongo"
)

// Server holds all components of the analytics service.
type Server struct {
	churnSvc     *churn.Service
	forecaster   *demand.Forecaster
	analyticsSvc *analytics.Service
	logger       *log.Logger

	mu           sync.Mutex
	started      time.Time
	lastTrainRun time.Time
	trainRuns    int
	trainRunning bool
}

// allStores holds all storage implementations.
type allStores struct {
	riderStore    storage.RiderStore
	swapStore     storage.SwapStore
	paymentStore  storage.PaymentStore
	demandStore   storage.DemandTimeseriesStore
	artifactStore storage.ModelArtifactStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	mongoURI := flag.String("mongo-uri", os.Getenv("MONGO_URI"), "MongoDB connection URI")
	mongoDB := flag.String("mongo-db", envOr("MONGO_DB", "battery_swap"), "MongoDB database name")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the demand series mirror (optional)")
	modelDir := flag.String("model-dir", envOr("MODEL_DIR", "models"), "Directory for churn model artifacts")
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "API HTTP address")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	retrainInterval := flag.Duration("retrain-interval", 24*time.Hour, "Automatic churn retraining interval (0 to disable)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of MongoDB")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && *mongoURI == "" {
		logger.Fatal("--mongo-uri is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *mongoURI, *mongoDB, *clickhouseDSN, *modelDir, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Wire services
	metrics := observability.NewMetrics("")

	churnSvc := churn.NewService(
		stores.riderStore,
		stores.swapStore,
		stores.paymentStore,
		stores.artifactStore,
		log.New(os.Stdout, "[churn] ", log.LstdFlags|log.Lshortfile),
	).WithMetrics(metrics)

	forecaster := demand.NewForecaster(
		stores.swapStore,
		log.New(os.Stdout, "[demand] ", log.LstdFlags|log.Lshortfile),
	).WithMetrics(metrics)
	if stores.demandStore != nil {
		forecaster = forecaster.WithMirror(stores.demandStore)
	}

	analyticsSvc := analytics.NewService(
		stores.riderStore,
		stores.swapStore,
		stores.paymentStore,
		churnSvc,
		log.New(os.Stdout, "[analytics] ", log.LstdFlags|log.Lshortfile),
	)

	server := &Server{
		churnSvc:     churnSvc,
		forecaster:   forecaster,
		analyticsSvc: analyticsSvc,
		logger:       logger,
		started:      time.Now(),
	}

	// Load persisted model or train from whatever data exists. An empty
	// database is fine: the server starts without a resident model and
	// serves empty predictions until POST /train/churn.
	if err := churnSvc.Bootstrap(ctx); err != nil {
		if errors.Is(err, churn.ErrNoData) {
			logger.Println("No rider data yet, starting without a churn model")
		} else {
			logger.Fatalf("Churn model bootstrap failed: %v", err)
		}
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start metrics server
	go server.startMetricsServer(*metricsAddr)

	// Start retrain scheduler
	if *retrainInterval > 0 {
		go server.runRetrainScheduler(ctx, *retrainInterval)
	}

	// Run the API server
	err = server.serveAPI(ctx, *httpAddr)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, mongoURI, mongoDB, clickhouseDSN, modelDir string, useMemory bool, logger *log.Logger) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			riderStore:    memory.NewRiderStore(),
			swapStore:     memory.NewSwapStore(),
			paymentStore:  memory.NewPaymentStore(),
			demandStore:   memory.NewDemandTimeseriesStore(),
			artifactStore: memory.NewArtifactStore(),
		}
		return stores, func() {}, nil
	}

	db, err := mongostore.NewDB(ctx, mongoURI, mongoDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		db.Close(context.Background())
		return nil, nil, fmt.Errorf("ensure mongodb indexes: %w", err)
	}

	artifacts, err := fsstore.NewArtifactStore(modelDir)
	if err != nil {
		db.Close(context.Background())
		return nil, nil, fmt.Errorf("open model artifact store: %w", err)
	}

	stores := &allStores{
		riderStore:    mongostore.NewRiderStore(db),
		swapStore:     mongostore.NewSwapStore(db),
		paymentStore:  mongostore.NewPaymentStore(db),
		artifactStore: artifacts,
	}

	// The ClickHouse mirror is optional; without it forecasts still work
	// from the document store alone.
	var chConn *chstore.Conn
	if clickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			db.Close(context.Background())
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.demandStore = chstore.NewDemandTimeseriesStore(chConn)
		logger.Println("ClickHouse demand series mirror enabled")
	}

	cleanup := func() {
		if chConn != nil {
			chConn.Close()
		}
		db.Close(context.Background())
	}

	return stores, cleanup, nil
}

// runRetrainScheduler retrains the churn model on schedule so scores
// track fresh swap and payment activity.
func (s *Server) runRetrainScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Printf("Starting retrain scheduler (interval: %v)...", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.train(ctx); err != nil && !errors.Is(err, churn.ErrNoData) {
				s.logger.Printf("Scheduled retraining failed: %v", err)
			}
		}
	}
}

// train serializes training runs and tracks run stats.
func (s *Server) train(ctx context.Context) (*churn.TrainResult, error) {
	s.mu.Lock()
	if s.trainRunning {
		s.mu.Unlock()
		return nil, errTrainBusy
	}
	s.trainRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.trainRunning = false
		s.lastTrainRun = time.Now()
		s.trainRuns++
		s.mu.Unlock()
	}()

	return s.churnSvc.Train(ctx)
}

var errTrainBusy = errors.New("training already in progress")

// serveAPI runs the JSON API until the context is canceled.
func (s *Server) serveAPI(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /train/churn", s.handleTrainChurn)
	mux.HandleFunc("GET /predict/churn", s.handlePredictAll)
	mux.HandleFunc("GET /predict/churn/{riderId}", s.handlePredictRider)
	mux.HandleFunc("GET /forecast/demand", s.handleForecastDemand)
	mux.HandleFunc("GET /analytics/summary", s.handleSummary)
	mux.HandleFunc("GET /analytics/trends", s.handleTrends)
	mux.HandleFunc("GET /recommendations/retention", s.handleRetention)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Printf("Starting API server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

// startMetricsServer serves prometheus metrics and a health check.
func (s *Server) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("Metrics server error: %v", err)
	}
}

func (s *Server) handleTrainChurn(w http.ResponseWriter, r *http.Request) {
	result, err := s.train(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"message":        "Churn model trained successfully",
			"riders_trained": result.Riders,
			"test_size":      result.TestSize,
			"accuracy":       result.Accuracy,
		})
	case errors.Is(err, churn.ErrNoData):
		writeError(w, http.StatusBadRequest, "no rider data available for training")
	case errors.Is(err, errTrainBusy):
		writeError(w, http.StatusConflict, "training already in progress")
	default:
		s.logger.Printf("Training failed: %v", err)
		writeError(w, http.StatusInternalServerError, "training failed")
	}
}

func (s *Server) handlePredictAll(w http.ResponseWriter, r *http.Request) {
	predictions, err := s.churnSvc.PredictAll(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"model_ready": true,
			"predictions": predictions,
		})
	case errors.Is(err, churn.ErrModelNotReady), errors.Is(err, churn.ErrNoData):
		writeJSON(w, http.StatusOK, map[string]any{
			"model_ready": s.churnSvc.Ready(),
			"predictions": []any{},
		})
	default:
		s.logger.Printf("Prediction failed: %v", err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}

func (s *Server) handlePredictRider(w http.ResponseWriter, r *http.Request) {
	riderID := r.PathValue("riderId")

	prediction, err := s.churnSvc.PredictRider(r.Context(), riderID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, prediction)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "rider not found")
	case errors.Is(err, churn.ErrModelNotReady), errors.Is(err, churn.ErrNoData):
		writeError(w, http.StatusServiceUnavailable, "churn model not trained yet")
	default:
		s.logger.Printf("Prediction failed for rider %s: %v", riderID, err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}

func (s *Server) handleForecastDemand(w http.ResponseWriter, r *http.Request) {
	// Empty location forecasts aggregate demand across all locations.
	location := r.URL.Query().Get("location")

	days := demand.DefaultHorizonDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	forecast, err := s.forecaster.Forecast(r.Context(), location, days)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"location": location,
			"forecast": forecast,
		})
	case errors.Is(err, demand.ErrInsufficientHistory):
		writeJSON(w, http.StatusOK, map[string]any{
			"location": location,
			"forecast": []any{},
			"message":  "not enough historical data for forecast",
		})
	default:
		s.logger.Printf("Forecast failed for %s: %v", location, err)
		writeError(w, http.StatusInternalServerError, "forecast failed")
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.analyticsSvc.Summary(r.Context())
	if err != nil {
		s.logger.Printf("Summary failed: %v", err)
		writeError(w, http.StatusInternalServerError, "summary failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	days := analytics.DefaultTrendWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	trends, err := s.analyticsSvc.Trends(r.Context(), days)
	if err != nil {
		s.logger.Printf("Trends failed: %v", err)
		writeError(w, http.StatusInternalServerError, "trends failed")
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) handleRetention(w http.ResponseWriter, r *http.Request) {
	recommendations, err := s.analyticsSvc.RetentionRecommendations(r.Context())
	if err != nil {
		s.logger.Printf("Retention recommendations failed: %v", err)
		writeError(w, http.StatusInternalServerError, "recommendations failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations": recommendations,
	})
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	ModelReady   bool      `json:"model_ready"`
	LastTrainRun time.Time `json:"last_train_run,omitempty"`
	TrainRuns    int       `json:"train_runs"`
	TrainRunning bool      `json:"train_running"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		ModelReady:   s.churnSvc.Ready(),
		LastTrainRun: s.lastTrainRun,
		TrainRuns:    s.trainRuns,
		TrainRunning: s.trainRunning,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
