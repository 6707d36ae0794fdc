package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error Kinds
// ============================================================================

// Every failure surfaced by the client wraps exactly one of these kinds.
var (
	ErrAuth         = errors.New("authentication failed")
	ErrExpiredToken = errors.New("access token expired")
	ErrNetwork      = errors.New("transient network failure")
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrTimeout      = errors.New("operation timed out")
)

// IsRetryable reports whether err is worth another attempt.
// Only transient network failures are.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// RemoteError describes a failed call against the platform.
type RemoteError struct {
	Kind       error  // one of the Err* kinds above
	Op         string // client operation, e.g. "media.upload"
	StatusCode int    // 0 when no response was received
	Message    string
	Detail     string
	Payload    any // offending request payload, set for validation failures
	Err        error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind.Error())
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Detail != "" {
		msg += " [" + e.Detail + "]"
	}
	return msg
}

// Unwrap exposes both the kind and the transport cause to errors.Is/As.
func (e *RemoteError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NewValidationError builds a validation failure raised before any request is sent.
func NewValidationError(op, message string, payload any) error {
	return &RemoteError{Kind: ErrValidation, Op: op, Message: message, Payload: payload}
}

// ============================================================================
// Project Errors
// ============================================================================

var (
	ErrProjectNotFound     = fmt.Errorf("project %w", ErrNotFound)
	ErrInvalidProjectName  = fmt.Errorf("project name is required: %w", ErrValidation)
	ErrEmptyPipeline       = fmt.Errorf("project needs at least one task: %w", ErrValidation)
	ErrInvalidTaskType     = fmt.Errorf("unsupported task type: %w", ErrValidation)
	ErrDuplicateLabel      = fmt.Errorf("duplicate label name in project: %w", ErrValidation)
	ErrTaskNotFound        = fmt.Errorf("task %w", ErrNotFound)
	ErrTaskNotTrainable    = fmt.Errorf("task is not trainable: %w", ErrValidation)
	ErrMissingProjectID    = fmt.Errorf("project ID is required: %w", ErrValidation)
	ErrProjectNameConflict = fmt.Errorf("project with this name already exists: %w", ErrValidation)
)

// ============================================================================
// Media & Annotation Errors
// ============================================================================

var (
	ErrMediaNotFound         = fmt.Errorf("media item %w", ErrNotFound)
	ErrMissingMediaID        = fmt.Errorf("media ID is required: %w", ErrValidation)
	ErrEmptyMedia            = fmt.Errorf("media payload is empty: %w", ErrValidation)
	ErrInvalidMediaName      = fmt.Errorf("media name is required: %w", ErrValidation)
	ErrAnnotationNotFound    = fmt.Errorf("annotation %w", ErrNotFound)
	ErrMissingAnnotationID   = fmt.Errorf("annotation ID is required: %w", ErrValidation)
	ErrEmptyAnnotation       = fmt.Errorf("annotation has no shapes: %w", ErrValidation)
	ErrUnknownLabel          = fmt.Errorf("annotation references a label outside the project: %w", ErrValidation)
	ErrSchemaVersionMismatch = fmt.Errorf("annotation label schema does not match the project: %w", ErrValidation)
	ErrInvalidShape          = fmt.Errorf("invalid annotation shape: %w", ErrValidation)
)

// ============================================================================
// Job & Model Errors
// ============================================================================

var (
	ErrJobNotFound          = fmt.Errorf("job %w", ErrNotFound)
	ErrMissingJobID         = fmt.Errorf("job ID is required: %w", ErrValidation)
	ErrInvalidTransition    = fmt.Errorf("invalid job state transition: %w", ErrValidation)
	ErrJobAlreadyTerminal   = fmt.Errorf("job already finished: %w", ErrValidation)
	ErrNoTrainingData       = fmt.Errorf("task has no annotated media to train on: %w", ErrValidation)
	ErrModelNotFound        = fmt.Errorf("model %w", ErrNotFound)
	ErrMissingModelID       = fmt.Errorf("model ID is required: %w", ErrValidation)
	ErrInvalidModelName     = fmt.Errorf("model name is required: %w", ErrValidation)
	ErrJobFailed            = errors.New("training job did not succeed")
	ErrModelNotDeployable   = fmt.Errorf("model is not deployable: %w", ErrValidation)
	ErrNoDeployableModel    = fmt.Errorf("no deployable model for task: %w", ErrValidation)
	ErrDuplicateTaskModel   = fmt.Errorf("more than one model selected for a task: %w", ErrValidation)
	ErrServingNotConfigured = errors.New("serving publisher is not configured")
)

// ============================================================================
// Archive Errors
// ============================================================================

var (
	ErrArchiveNotFound    = fmt.Errorf("archive %w", ErrNotFound)
	ErrArchiveCorrupt     = fmt.Errorf("archive is corrupt: %w", ErrValidation)
	ErrUnsupportedArchive = fmt.Errorf("unsupported archive format version: %w", ErrValidation)
	ErrChecksumMismatch   = fmt.Errorf("archive checksum does not match its name: %w", ErrValidation)

	ErrArchiveStoreNotConfigured = errors.New("archive store is not configured")
)
