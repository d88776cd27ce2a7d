package gcs

import (
	"context"
	"io"
)

// ObjectStore provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type ObjectStore interface {
	// Upload writes r to bucket/object with the given content type.
	Upload(ctx context.Context, bucket, object string, r io.Reader, contentType string) error

	// Download reads bucket/object fully.
	Download(ctx context.Context, bucket, object string) ([]byte, error)
}
