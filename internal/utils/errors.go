package utils

import (
	"errors"
	"fmt"
)

// ErrKind classifies failures the pipeline knows how to handle.
type ErrKind string

const (
	// KindUnavailable covers network, auth, and timeout failures of an
	// external connector. Always recoverable via that connector's fallback.
	KindUnavailable ErrKind = "unavailable"
	// KindInvalid covers malformed reasoning output (schema violation,
	// missing field). Treated identically to unavailability.
	KindInvalid ErrKind = "invalid"
	// KindInput covers caller input rejected before the pipeline starts.
	KindInput ErrKind = "input"
	// KindInternal covers unexpected faults caught at the orchestrator
	// boundary.
	KindInternal ErrKind = "internal"
)

// AppError wraps an operation, failure kind, human-facing message, and
// underlying error.
type AppError struct {
	Op   string
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op string, kind ErrKind, msg string, err error) error {
	return &AppError{Op: op, Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the failure kind from err, defaulting to KindInternal.
func KindOf(err error) ErrKind {
	var app *AppError
	if errors.As(err, &app) {
		return app.Kind
	}
	return KindInternal
}
