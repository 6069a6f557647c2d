// Package blob stores uploaded attachments and hands back stable URLs.
// Object keys are random; the original filename only contributes its
// extension.
package blob

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/google/uuid"
)

// ErrNotFound indicates the URL does not belong to this store.
var ErrNotFound = errors.New("blob not found")

// Store uploads and deletes attachments by URL.
type Store interface {
	// Upload stores the reader's contents under a fresh key and returns
	// the URL the attachment is reachable at.
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)

	// Delete removes the attachment behind a URL previously returned by
	// Upload. Deleting a missing attachment is a no-op.
	Delete(ctx context.Context, url string) error
}

// NewKey allocates a random object key, keeping the filename's extension.
func NewKey(filename string) string {
	return uuid.NewString() + path.Ext(filename)
}
