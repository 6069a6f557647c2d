// Package minio stores attachments in an S3-compatible object store.
package minio

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/memoirhq/memoir/pkg/blob"
)

// Config holds connection settings for the MinIO blob store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// PublicBaseURL is the externally reachable prefix attachments are
	// served under. Defaults to the endpoint itself.
	PublicBaseURL string
}

// Store implements blob.Store backed by a MinIO (or any S3-compatible)
// bucket.
type Store struct {
	client  *miniogo.Client
	bucket  string
	baseURL string
}

// NewStore creates a MinIO-backed blob store, creating the bucket when it
// does not exist yet.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = scheme + "://" + cfg.Endpoint
	}

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
	}, nil
}

// Upload streams the attachment into the bucket under a fresh key.
func (s *Store) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	key := blob.NewKey(filename)

	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, r, -1, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	return s.baseURL + "/" + s.bucket + "/" + key, nil
}

// Delete removes the attachment behind url. Removing a missing object is a
// no-op on the server side.
func (s *Store) Delete(ctx context.Context, url string) error {
	key, err := s.key(url)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// key extracts the object key from a URL this store issued.
func (s *Store) key(url string) (string, error) {
	prefix := s.baseURL + "/" + s.bucket + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("url %s: %w", url, blob.ErrNotFound)
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", fmt.Errorf("url %s: %w", url, blob.ErrNotFound)
	}
	return key, nil
}
