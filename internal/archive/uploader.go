package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	apperrors "github.com/playlog/playlog/internal/errors"
	"github.com/playlog/playlog/internal/manifest"
	"github.com/playlog/playlog/internal/storage"
)

// sideCarSuffix marks normalized copies written next to their source file.
// It deliberately does not end in .json so the event store never lists
// side-cars as raw events.
const sideCarSuffix = ".normalized"

const contentTypeJSON = "application/json"

// Status is the per-file outcome of an archival attempt.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Result reports the outcome of archiving one file.
type Result struct {
	File   string
	Key    string
	Status Status
	Err    error
}

// Uploader archives normalized play events to the object store at most
// once per destination key. The upload is gated on both the local catalog
// and a remote existence check.
type Uploader struct {
	store      storage.ObjectStorage
	catalog    *manifest.Catalog
	normalizer *Normalizer
	prefix     string
}

// NewUploader creates an Uploader.
func NewUploader(store storage.ObjectStorage, catalog *manifest.Catalog, normalizer *Normalizer, prefix string) *Uploader {
	return &Uploader{
		store:      store,
		catalog:    catalog,
		normalizer: normalizer,
		prefix:     prefix,
	}
}

// Archive normalizes one cached event file and uploads it. Files whose
// destination key is already archived are skipped.
func (u *Uploader) Archive(ctx context.Context, filePath string) Result {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return Result{File: filePath, Status: StatusFailed,
			Err: apperrors.NewArchiveError(apperrors.CodeMalformedInput, "failed to read file", err)}
	}

	doc, local, err := u.normalizer.Normalize(raw)
	if err != nil {
		return Result{File: filePath, Status: StatusFailed, Err: err}
	}

	key := DestinationKey(u.prefix, local)

	known, err := u.catalog.IsUploaded(ctx, key)
	if err != nil {
		return Result{File: filePath, Key: key, Status: StatusFailed,
			Err: apperrors.NewArchiveError(apperrors.CodeExistsCheckFailed, "catalog lookup failed", err)}
	}
	if known {
		return Result{File: filePath, Key: key, Status: StatusSkipped}
	}

	exists, err := u.store.Exists(ctx, key)
	if err != nil {
		return Result{File: filePath, Key: key, Status: StatusFailed,
			Err: apperrors.NewStorageError(apperrors.CodeExistsCheckFailed, "existence check failed", err)}
	}
	if exists {
		// Uploaded by an earlier run before the catalog existed; backfill
		if err := u.catalog.RecordUpload(ctx, key, filePath); err != nil {
			log.Printf("Failed to backfill catalog for %s: %v", key, err)
		}
		return Result{File: filePath, Key: key, Status: StatusSkipped}
	}

	sideCar := filePath + sideCarSuffix
	normalized, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Result{File: filePath, Key: key, Status: StatusFailed,
			Err: apperrors.NewArchiveError(apperrors.CodeMalformedInput, "failed to marshal normalized document", err)}
	}
	if err := os.WriteFile(sideCar, normalized, 0644); err != nil {
		return Result{File: filePath, Key: key, Status: StatusFailed,
			Err: apperrors.NewArchiveError(apperrors.CodeMalformedInput, "failed to write side-car file", err)}
	}

	if err := u.store.Upload(ctx, sideCar, key, contentTypeJSON); err != nil {
		return Result{File: filePath, Key: key, Status: StatusFailed,
			Err: apperrors.NewStorageError(apperrors.CodeStorageWriteFailed, "upload failed", err)}
	}

	if err := u.catalog.RecordUpload(ctx, key, filePath); err != nil {
		// The object is in the store; next run's existence check backfills
		log.Printf("Uploaded %s but failed to record it: %v", key, err)
	}

	return Result{File: filePath, Key: key, Status: StatusUploaded}
}

// ArchiveAll archives a batch of files. One bad file never aborts the
// batch; every failure is reported in its own result.
func (u *Uploader) ArchiveAll(ctx context.Context, files []string) []Result {
	results := make([]Result, 0, len(files))
	for _, filePath := range files {
		result := u.Archive(ctx, filePath)
		switch result.Status {
		case StatusUploaded:
			log.Printf("Uploaded: %s -> %s", result.File, result.Key)
		case StatusSkipped:
			log.Printf("Skipped (already archived): %s", result.File)
		case StatusFailed:
			log.Printf("Error processing %s: %v", result.File, result.Err)
		}
		results = append(results, result)
	}
	return results
}

// Summarize counts results by status.
func Summarize(results []Result) (uploaded, skipped, failed int) {
	for _, r := range results {
		switch r.Status {
		case StatusUploaded:
			uploaded++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// String implements fmt.Stringer for logging.
func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", r.File, r.Status, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.File, r.Status)
}
