package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore stores blobs under a directory on the local filesystem.
// Used by the process command and in tests.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir, creating it if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{root: dir}, nil
}

func (s *LocalStore) fullPath(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object path: %s", path)
	}
	return filepath.Join(s.root, cleaned), nil
}

// Upload writes content to a file under the root
func (s *LocalStore) Upload(_ context.Context, path string, content []byte) error {
	full, err := s.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return fmt.Errorf("failed to write object %s: %w", path, err)
	}
	return nil
}

// Download reads a file under the root
func (s *LocalStore) Download(_ context.Context, path string) ([]byte, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", path, err)
	}
	return content, nil
}

// Delete removes a file under the root
func (s *LocalStore) Delete(_ context.Context, path string) error {
	full, err := s.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", path, err)
	}
	return nil
}

// PublicURL returns a file URL for the object
func (s *LocalStore) PublicURL(path string) string {
	return "file://" + filepath.Join(s.root, filepath.Clean(path))
}
