// Package main provides a one-shot churn model trainer. It reads the
// rider, swap and payment collections, fits the model and writes the
// artifacts, then exits. Useful for seeding a model before the server
// starts or for cron-driven retraining.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"rider-analytics-lab/internal/churn"
	fsstore "rider-analytics-lab/internal/storage/fs"
	mongostore "rider-analytics-lab/internal/storage/mongo"
)

func main() {
	loadEnvFile()

	mongoURI := flag.String("mongo-uri", os.Getenv("MONGO_URI"), "MongoDB connection URI")
	mongoDB := flag.String("mongo-db", envOr("MONGO_DB", "battery_swap"), "MongoDB database name")
	modelDir := flag.String("model-dir", envOr("MODEL_DIR", "models"), "Directory for churn model artifacts")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall training timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[train] ", log.LstdFlags|log.Lshortfile)

	if *mongoURI == "" {
		logger.Fatal("--mongo-uri is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := mongostore.NewDB(ctx, *mongoURI, *mongoDB)
	if err != nil {
		logger.Fatalf("Failed to connect to mongodb: %v", err)
	}
	defer db.Close(context.Background())

	artifacts, err := fsstore.NewArtifactStore(*modelDir)
	if err != nil {
		logger.Fatalf("Failed to open model artifact store: %v", err)
	}

	svc := churn.NewService(
		mongostore.NewRiderStore(db),
		mongostore.NewSwapStore(db),
		mongostore.NewPaymentStore(db),
		artifacts,
		logger,
	)

	result, err := svc.Train(ctx)
	if err != nil {
		if errors.Is(err, churn.ErrNoData) {
			logger.Fatal("No rider data available for training")
		}
		logger.Fatalf("Training failed: %v", err)
	}

	logger.Printf("Model written to %s: riders=%d test=%d accuracy=%.2f",
		*modelDir, result.Riders, result.TestSize, result.Accuracy)
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
		return
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

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
