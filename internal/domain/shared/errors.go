// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Configuration errors
	ErrInvariantViolation = errors.New("invariant violation")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "ledger", "belt", "ranking"
	Op      string // Operation that failed, e.g., "Record", "Rank"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Ledger domain errors
var (
	// ErrInvalidEvent - the point event is malformed (zero points, unknown reason,
	// missing identifiers). Never retryable: the same input will fail again.
	ErrInvalidEvent = NewDomainError("ledger", "Record", ErrValidation, "invalid point event")

	// ErrDuplicateSource - a point event with the same sourceRef was already
	// recorded for this student. Expected under client retries; callers should
	// treat it as success (the points are already on the books).
	ErrDuplicateSource = NewDomainError("ledger", "Record", ErrAlreadyExists, "source ref already recorded for student")

	// ErrEventNotFound - point event not found.
	ErrEventNotFound = NewDomainError("ledger", "Find", ErrNotFound, "point event not found")
)

// Belt domain errors
var (
	// ErrMalformedTierTable - the static tier table has a gap, overlap or
	// non-increasing minimum. A deploy-time configuration bug: fail fast at
	// startup, never per-request.
	ErrMalformedTierTable = NewDomainError("belt", "Validate", ErrInvariantViolation, "tier table has gaps or overlaps")

	// ErrUnknownTier - tier name not present in the table.
	ErrUnknownTier = NewDomainError("belt", "Lookup", ErrNotFound, "unknown belt tier")
)

// Badge domain errors
var (
	// ErrBadgeNotFound - badge id not present in the catalog.
	ErrBadgeNotFound = NewDomainError("badge", "Find", ErrNotFound, "badge not found in catalog")

	// ErrBadgeAlreadyAwarded - the (student, badge) pair already exists.
	// Concurrent evaluators hit this; it is a no-op, not a failure.
	ErrBadgeAlreadyAwarded = NewDomainError("badge", "Award", ErrAlreadyExists, "badge already awarded to student")
)

// Ranking domain errors
var (
	// ErrNotEnrolled - position query for a student who is not a ranking
	// participant in the subject.
	ErrNotEnrolled = NewDomainError("ranking", "Position", ErrNotFound, "student is not enrolled in subject")

	// ErrInvalidWindow - windowEnd precedes windowStart.
	ErrInvalidWindow = NewDomainError("ranking", "Validate", ErrInvalidInput, "ranking window end precedes start")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsDuplicateSource reports whether recording failed only because the
// triggering action was already counted. Most callers treat this as success.
func IsDuplicateSource(err error) bool {
	return errors.Is(err, ErrDuplicateSource)
}

// IsInvariantViolation checks for configuration-level invariant failures.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
