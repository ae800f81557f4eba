package reconcile

import (
	"errors"
	"fmt"
)

// RunError represents an error detected during a reconciliation run.
//
// Run errors include:
//   - Snapshot load: storage unreachable or malformed (fatal)
//   - Normalize: the feed kind has no normalizer (fatal)
//   - Fingerprint: an entity cannot be serialized (per entity)
//   - Write: a storage write failed (per entity)
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Source is the SoR source of the run.
	Source string

	// NaturalID identifies the affected entity for per-entity errors.
	NaturalID string

	// Err is the underlying cause.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeSnapshotLoad indicates the active snapshot could not be loaded.
	ErrCodeSnapshotLoad RunErrorCode = "SNAPSHOT_LOAD"

	// ErrCodeNormalize indicates the feed could not be normalized.
	ErrCodeNormalize RunErrorCode = "NORMALIZE_FAILED"

	// ErrCodeFingerprint indicates an entity could not be fingerprinted.
	ErrCodeFingerprint RunErrorCode = "FINGERPRINT_FAILED"

	// ErrCodeWrite indicates a storage write failed.
	ErrCodeWrite RunErrorCode = "WRITE_FAILED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.NaturalID != "" {
		return fmt.Sprintf("%s: %v (source=%s, natural_id=%s)", e.Code, e.Err, e.Source, e.NaturalID)
	}
	return fmt.Sprintf("%s: %v (source=%s)", e.Code, e.Err, e.Source)
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error aborts a run before any write.
// Uses errors.As to handle wrapped errors.
func IsFatal(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeSnapshotLoad || re.Code == ErrCodeNormalize
	}
	return false
}

// IsWriteError returns true if the error is a per-entity write failure.
func IsWriteError(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeWrite
	}
	return false
}

// NewSnapshotError creates a RunError for a failed snapshot load.
func NewSnapshotError(source string, err error) *RunError {
	return &RunError{Code: ErrCodeSnapshotLoad, Source: source, Err: err}
}

// NewWriteError creates a RunError for a failed write of one entity.
func NewWriteError(source, naturalID string, err error) *RunError {
	return &RunError{Code: ErrCodeWrite, Source: source, NaturalID: naturalID, Err: err}
}
