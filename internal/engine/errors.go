package engine

import (
	"errors"
	"fmt"
)

// RunError represents an error that ended a run early or prevented it from
// starting.
//
// Skipped deliveries are not errors: they are counted in the Report.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, if one was started.
	RunID string

	// Err is the underlying cause.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeCancelled indicates the run's context was cancelled.
	ErrCodeCancelled RunErrorCode = "CANCELLED"

	// ErrCodeUnknownAlgorithm indicates a lookup for an unregistered algorithm.
	ErrCodeUnknownAlgorithm RunErrorCode = "UNKNOWN_ALGORITHM"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// IsCancelled returns true if err is a cancellation RunError.
// Uses errors.As to handle wrapped errors.
func IsCancelled(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCancelled
	}
	return false
}

// IsUnknownAlgorithm returns true if err reports an unregistered algorithm.
func IsUnknownAlgorithm(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownAlgorithm
	}
	return false
}

// NewCancelledError creates a RunError for a cancelled run.
func NewCancelledError(runID string, cause error) *RunError {
	return &RunError{
		Code:    ErrCodeCancelled,
		Message: "run cancelled before completion",
		RunID:   runID,
		Err:     cause,
	}
}

// NewUnknownAlgorithmError creates a RunError for a failed lookup.
func NewUnknownAlgorithmError(name string) *RunError {
	return &RunError{
		Code:    ErrCodeUnknownAlgorithm,
		Message: fmt.Sprintf("no algorithm named %q", name),
	}
}
