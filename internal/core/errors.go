package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNotFound         = errors.New("log not found")
	ErrNoCurrentLog     = errors.New("no current log: create or select a log first")
	ErrPersistence      = errors.New("persistence failed")
	ErrConflict         = errors.New("another operation is in flight for this log")
	ErrNoSession        = errors.New("no signed-in user")

	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyTitle       = errors.New("empty title")
)

// ValidationError rejects malformed input before any state is touched.
// It matches ErrValidation and, when set, the more specific cause in Err.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

func invalid(field string, cause error, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: cause}
}

// PersistenceError wraps a failed call to the document store.
type PersistenceError struct {
	Op    string
	LogID string
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.LogID == "" {
		return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persist %s log %s: %v", e.Op, e.LogID, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPersistence}
	}
	return []error{ErrPersistence, e.Err}
}
