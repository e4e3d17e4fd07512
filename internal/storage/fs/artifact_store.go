// Package fs implements the model artifact store on the local filesystem,
// mirroring the models/ directory layout of the original service.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rider-analytics-lab/internal/storage"
)

// Artifact file names inside the model directory.
const (
	modelFile  = "churn_model.json"
	scalerFile = "churn_scaler.json"
)

// ArtifactStore implements storage.ModelArtifactStore on a directory.
// Each blob is written to a temp file and renamed into place; a lock
// orders writers and readers so a load never observes a half-replaced
// generation.
type ArtifactStore struct {
	mu  sync.RWMutex
	dir string
}

// NewArtifactStore creates the model directory if needed.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if dir == "" {
		return nil, storage.ErrInvalidInput
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Compile-time interface check.
var _ storage.ModelArtifactStore = (*ArtifactStore)(nil)

// SaveModel durably replaces both artifact blobs.
func (s *ArtifactStore) SaveModel(_ context.Context, model, scaler []byte) error {
	if len(model) == 0 || len(scaler) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeBlob(modelFile, model); err != nil {
		return err
	}
	return s.writeBlob(scalerFile, scaler)
}

// LoadModel retrieves both artifact blobs. Returns ErrNotFound when
// either blob is missing.
func (s *ArtifactStore) LoadModel(_ context.Context) ([]byte, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	model, err := s.readBlob(modelFile)
	if err != nil {
		return nil, nil, err
	}
	scaler, err := s.readBlob(scalerFile)
	if err != nil {
		return nil, nil, err
	}
	return model, scaler, nil
}

func (s *ArtifactStore) writeBlob(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace artifact %s: %w", name, err)
	}
	return nil
}

func (s *ArtifactStore) readBlob(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}
	return data, nil
}
