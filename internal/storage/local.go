package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore keeps blobs on the local filesystem under root. It is meant for
// development; files are served by the HTTP server under publicURL.
type LocalStore struct {
	root      string
	publicURL string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{root: root, publicURL: publicURL}, nil
}

// Root returns the directory served as static files.
func (s *LocalStore) Root() string { return s.root }

// Store writes data under folder and returns its relative path.
func (s *LocalStore) Store(ctx context.Context, data []byte, folder, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := objectPath(folder, filename, data)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return p, nil
}

// Delete removes path. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(p))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether path is stored.
func (s *LocalStore) Exists(ctx context.Context, path string) (bool, error) {
	p, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(s.root, filepath.FromSlash(p)))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// PublicURL returns the URL the static route serves path under.
func (s *LocalStore) PublicURL(path string) string {
	return joinURL(s.publicURL, path)
}
