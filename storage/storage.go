// Package storage persists imported album art assets.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ArtStorage stores immutable album art renditions by object name.
type ArtStorage interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// LocalStorage keeps art assets as plain files under one directory.
// It is the default backend.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates the directory if needed and returns the store.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create art directory %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Put writes an art asset. Assets are never overwritten in practice since
// names embed a fresh UUID.
func (s *LocalStorage) Put(_ context.Context, name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write art asset %s: %w", name, err)
	}
	return nil
}

// Get reads an art asset by name.
func (s *LocalStorage) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read art asset %s: %w", name, err)
	}
	return data, nil
}
