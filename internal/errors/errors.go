// Package errors provides structured error types for the playlog pipeline.
// All errors include a category, code, message, and fatal flag so the
// orchestrator can decide between aborting the run and skipping a record.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by pipeline stage.
type ErrorCategory string

const (
	ErrCategoryConfig  ErrorCategory = "CONFIG"
	ErrCategoryIngest  ErrorCategory = "INGEST"
	ErrCategoryMerge   ErrorCategory = "MERGE"
	ErrCategoryArchive ErrorCategory = "ARCHIVE"
	ErrCategoryStorage ErrorCategory = "STORAGE"
	ErrCategoryNotify  ErrorCategory = "NOTIFY"
)

// Error codes for each category.
const (
	// Config codes
	CodeMissingSetting = "MISSING_SETTING"
	CodeInvalidSetting = "INVALID_SETTING"

	// Ingest codes
	CodeUpstreamCallFailed = "UPSTREAM_CALL_FAILED"
	CodeCacheWriteFailed   = "CACHE_WRITE_FAILED"

	// Merge codes
	CodeLogReadFailed   = "LOG_READ_FAILED"
	CodeLogAppendFailed = "LOG_APPEND_FAILED"

	// Archive codes
	CodeMalformedInput = "MALFORMED_INPUT"
	CodeBadTimestamp   = "BAD_TIMESTAMP"

	// Storage codes
	CodeStorageWriteFailed = "STORAGE_WRITE_FAILED"
	CodeExistsCheckFailed  = "EXISTS_CHECK_FAILED"

	// Notify codes
	CodeNotificationFailed = "NOTIFICATION_FAILED"
)

// PipelineError is the structured error type used throughout the pipeline.
type PipelineError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
	// Fatal errors abort the whole run; non-fatal errors are reported
	// per record and the batch continues.
	Fatal bool
}

// Error returns a formatted error string.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *PipelineError) Is(target error) bool {
	var t *PipelineError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new PipelineError.
func New(category ErrorCategory, code, message string) *PipelineError {
	return &PipelineError{
		Category: category,
		Code:     code,
		Message:  message,
		Fatal:    isFatal(category, code),
	}
}

// Wrap creates a new PipelineError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *PipelineError {
	return &PipelineError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
		Fatal:    isFatal(category, code),
	}
}

// IsFatal checks whether an error (or its chain) aborts the run.
func IsFatal(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Fatal
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a PipelineError.
func GetCategory(err error) ErrorCategory {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a PipelineError.
func GetCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// isFatal encodes the propagation policy: configuration and fetch/merge
// failures abort the run, per-record archive and notification failures
// do not.
func isFatal(category ErrorCategory, code string) bool {
	switch category {
	case ErrCategoryConfig, ErrCategoryIngest, ErrCategoryMerge:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewConfigError(code, message string) *PipelineError {
	return New(ErrCategoryConfig, code, message)
}

func NewIngestError(code, message string, cause error) *PipelineError {
	return Wrap(ErrCategoryIngest, code, message, cause)
}

func NewMergeError(code, message string, cause error) *PipelineError {
	return Wrap(ErrCategoryMerge, code, message, cause)
}

func NewArchiveError(code, message string, cause error) *PipelineError {
	return Wrap(ErrCategoryArchive, code, message, cause)
}

func NewStorageError(code, message string, cause error) *PipelineError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewNotifyError(message string, cause error) *PipelineError {
	return Wrap(ErrCategoryNotify, CodeNotificationFailed, message, cause)
}
