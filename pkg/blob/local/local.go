// Package local stores attachments on the local filesystem, served under a
// configurable base URL.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/memoirhq/memoir/pkg/blob"
)

// Store implements blob.Store backed by a directory on disk.
type Store struct {
	dir     string
	baseURL string
}

// NewStore creates a local blob store rooted at dir. Returned URLs are
// baseURL joined with the object key.
func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	return &Store{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload writes the attachment to disk under a fresh key.
func (s *Store) Upload(_ context.Context, filename string, r io.Reader) (string, error) {
	key := blob.NewKey(filename)

	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close blob: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

// Delete removes the attachment behind url. Missing files are a no-op.
func (s *Store) Delete(_ context.Context, url string) error {
	key, err := s.key(url)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// key extracts the object key from a URL this store issued.
func (s *Store) key(url string) (string, error) {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return "", fmt.Errorf("url %s: %w", url, blob.ErrNotFound)
	}
	key := path.Base(strings.TrimPrefix(url, s.baseURL+"/"))
	if key == "" || key == "." || key == "/" {
		return "", fmt.Errorf("url %s: %w", url, blob.ErrNotFound)
	}
	return key, nil
}
