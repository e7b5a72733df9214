// Package blobclient is the storage client used by the WOPI handlers.
// Every operation addresses exactly one blob by (container, blob name) and
// is a single round trip to the backing store. Nothing is retried.
package blobclient

import (
	"context"
	"errors"
)

// Errors returned by BlobClient implementations. Callers match them with
// errors.Is; the original cause stays wrapped underneath.
var (
	// ErrNotFound means the container or blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrUnauthorized means the store rejected our credential.
	ErrUnauthorized = errors.New("storage credential rejected")
	// ErrConflict means a create collided with an existing blob.
	ErrConflict = errors.New("blob already exists")
	// ErrTransient means the store could not be reached or failed server side.
	ErrTransient = errors.New("storage unavailable")
)

// BlobClient defines the storage operations the service needs.
type BlobClient interface {
	// ReadBlob downloads the full content of a blob.
	ReadBlob(ctx context.Context, container, blobName string) ([]byte, error)

	// ReadBlobMetadata returns the user metadata stored on a blob.
	ReadBlobMetadata(ctx context.Context, container, blobName string) (map[string]string, error)

	// CreateBlob uploads data as a new blob. It fails with ErrConflict if
	// the blob already exists and leaves that blob untouched.
	CreateBlob(ctx context.Context, container, blobName string, data []byte) error

	// UpdateBlob uploads data, overwriting any existing blob.
	UpdateBlob(ctx context.Context, container, blobName string, data []byte) error

	// DeleteBlob removes a blob.
	DeleteBlob(ctx context.Context, container, blobName string) error
}
