package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rider-analytics-lab/internal/storage"
)

func TestArtifactStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, _, err := store.LoadModel(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}

	if err := store.SaveModel(ctx, []byte(`{"trees":[]}`), []byte(`{"scaler":{}}`)); err != nil {
		t.Fatalf("save: %v", err)
	}

	model, scaler, err := store.LoadModel(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(model) != `{"trees":[]}` || string(scaler) != `{"scaler":{}}` {
		t.Errorf("unexpected blobs: %q %q", model, scaler)
	}
}

func TestArtifactStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.SaveModel(ctx, []byte("m1"), []byte("s1")); err != nil {
		t.Fatalf("save v1: %v", err)
	}
	if err := store.SaveModel(ctx, []byte("m2"), []byte("s2")); err != nil {
		t.Fatalf("save v2: %v", err)
	}

	model, scaler, err := store.LoadModel(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(model) != "m2" || string(scaler) != "s2" {
		t.Errorf("stale generation: %q %q", model, scaler)
	}
}

func TestArtifactStore_MissingScalerBlob(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewArtifactStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.SaveModel(ctx, []byte("m1"), []byte("s1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "churn_scaler.json")); err != nil {
		t.Fatalf("remove scaler blob: %v", err)
	}

	// A half-present pair must read as absent, not as a mixed load
	if _, _, err := store.LoadModel(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound with one blob missing, got %v", err)
	}
}

func TestArtifactStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "models")
	if _, err := NewArtifactStore(dir); err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("model directory not created: %v", err)
	}
}

func TestArtifactStore_RejectsEmptyInput(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.SaveModel(context.Background(), nil, []byte("s")); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewArtifactStore(""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty dir, got %v", err)
	}
}
