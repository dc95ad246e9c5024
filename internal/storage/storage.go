// Package storage provides object storage abstractions for archival uploads.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the object store used for archival.
// Implementations include S3-compatible stores (AWS S3, MinIO) and the
// local filesystem for testing.
//
// No implementation retries internally; a failed call is reported as-is and
// resilience is an operational concern of whoever schedules the batch.
type ObjectStorage interface {
	// Upload uploads a local file to object storage with the given
	// content type.
	// localPath is the path to the local file to upload.
	// objectPath is the destination key in object storage.
	Upload(ctx context.Context, localPath, objectPath, contentType string) error

	// Exists checks if an object exists in storage.
	// Returns true if the object exists, false otherwise.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// Delete removes an object from storage.
	// objectPath is the key of the object to delete.
	Delete(ctx context.Context, objectPath string) error

	// ListObjects returns all object keys under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
