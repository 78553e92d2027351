/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return these (or wrap them) so callers can branch with
  errors.Is / errors.As without importing every package.

ERROR CATEGORIES:
  1. Validation errors - Bad WageConfig / CertificationPlan input
  2. Lifecycle errors - Start while working, end while idle
  3. Lookup errors - Unknown certification plan id
  4. Persistence errors - Store read/write or decode failures
  5. Notification errors - Never fatal, logged and swallowed

USAGE:
  if errors.Is(err, generic.ErrAlreadyWorking) {
      // keep showing the running session
  }

  var verr *generic.ValidationError
  if errors.As(err, &verr) {
      fmt.Println(verr.Field)
  }

SEE ALSO:
  - api/handlers.go: Maps categories to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when an input field is outside its documented range.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyWorking is returned by StartWork when a session is already active.
	ErrAlreadyWorking = errors.New("already working")

	// ErrNotWorking is returned by EndWork when no session is active.
	ErrNotWorking = errors.New("not working")

	// ErrNotFound is returned when an update or remove references a missing id.
	ErrNotFound = errors.New("not found")

	// ErrPersistence is returned when the store fails or holds an invalid record.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotificationDispatch is returned by notifiers. The engine logs it and continues.
	ErrNotificationDispatch = errors.New("notification dispatch failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // e.g. "certification plan"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError wraps a store failure with the operation and key involved.
type PersistenceError struct {
	Op  string // "get", "set", "remove", "clear", "encode", "decode"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// NotificationDispatchError records which event category failed to deliver.
type NotificationDispatchError struct {
	Category string
	Err      error
}

func (e *NotificationDispatchError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Category, e.Err)
}

func (e *NotificationDispatchError) Unwrap() []error {
	return []error{ErrNotificationDispatch, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict returns true for lifecycle precondition violations.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyWorking) || errors.Is(err, ErrNotWorking)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
