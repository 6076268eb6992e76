/*
errors.go - Centralized error taxonomy for the loyalty engine

PURPOSE:
  All error types in one place. Callers must react differently to business
  failures (reject definitively) and storage failures (retry), so the
  service never masks one as the other, and control flow never branches on
  message substrings.

ERROR CATEGORIES:
  1. Validation errors  - malformed input, rejected before any storage access
  2. Business errors    - insufficient points; user-visible, non-retryable
  3. Storage errors     - persistence unreachable or write failed; retryable
  4. Conflict errors    - optimistic-concurrency retry budget exhausted

USAGE:
  if errors.Is(err, loyalty.ErrInsufficientPoints) {
      var ipe *loyalty.InsufficientPointsError
      errors.As(err, &ipe)
      // ipe.Shortfall ...
  }

SEE ALSO:
  - service.go: Produces these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package loyalty

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the category for malformed or out-of-range input.
	ErrValidation = errors.New("invalid input")

	// ErrInsufficientPoints is returned when a redemption or negative
	// adjustment would drive the balance below zero.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrStorage is the category for persistence failures. Retryable;
	// no partial mutation is left visible.
	ErrStorage = errors.New("storage failure")

	// ErrConflict is returned when the optimistic-concurrency retry
	// budget is exhausted. Retryable with backoff.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrUnknownTier is returned for tier names outside the configured table.
	ErrUnknownTier = errors.New("unknown tier")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a specific invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientPointsError provides details about a balance shortfall.
type InsufficientPointsError struct {
	UserID    UserID
	Available int64
	Requested int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientPointsError) Shortfall() int64 { return e.Requested - e.Available }

func (e *InsufficientPointsError) Unwrap() error { return ErrInsufficientPoints }

// StorageError wraps a persistence failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match while Unwrap exposes the cause.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ConflictError reports an exhausted compare-and-swap retry budget.
type ConflictError struct {
	UserID   UserID
	Attempts int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("write conflict for %s after %d attempts", e.UserID, e.Attempts)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to the caller's input or
// state and retrying the same call will not help.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrUnknownTier)
}
