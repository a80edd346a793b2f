// Package objectstore stores regulatory documents in S3-compatible storage.
package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// DefaultPresignExpiry is how long presigned download URLs stay valid.
const DefaultPresignExpiry = time.Hour

// ErrNotFound is returned for a missing object.
var ErrNotFound = errors.New("objectstore: not found")

// Store defines the document operations.
type Store interface {
	// Put uploads size bytes from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// PresignedGet returns a time-limited download URL for key.
	PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
