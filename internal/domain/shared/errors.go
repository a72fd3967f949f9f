// Package shared contains the error taxonomy and small value types used by
// every domain package. It has no dependencies outside the standard library.
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
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Document errors
	ErrRendering = errors.New("rendering failure")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrCanceled           = errors.New("operation canceled")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "student", "grading", "transcript"
	Op      string // Operation that failed, e.g. "Register", "Recompute"
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

// Is implements errors.Is() matching against both the kind and the cause.
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

// Student domain errors
var (
	ErrStudentNotFound       = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrEmailAlreadyExists    = NewDomainError("student", "Register", ErrAlreadyExists, "email already registered")
	ErrRegistrationNumTaken  = NewDomainError("student", "Register", ErrAlreadyExists, "registration number already issued")
	ErrRegistrationExhausted = NewDomainError("student", "Register", ErrValueOutOfRange, "registration numbers for this year are exhausted")
	ErrNoApplicableUpdates   = NewDomainError("student", "RecomputeGrades", ErrValidation, "no valid course updates")
)

// Enrollment domain errors
var (
	ErrEnrollmentNotFound     = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrAlreadyEnrolled        = NewDomainError("enrollment", "Enroll", ErrAlreadyExists, "already enrolled for this semester")
	ErrInvalidRegistrationNum = NewDomainError("enrollment", "Validate", ErrInvalidID, "invalid registration number")
)

// Grading domain errors
var (
	ErrUnknownCourse   = NewDomainError("grading", "Lookup", ErrInvalidInput, "unknown course code")
	ErrUnknownLetter   = NewDomainError("grading", "Lookup", ErrInvalidInput, "letter is not on the grading table")
	ErrInvalidSemester = NewDomainError("grading", "ParseSemester", ErrInvalidInput, "semester must be I, II or all")
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
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsRendering checks if a document or archive primitive failed.
func IsRendering(err error) bool {
	return errors.Is(err, ErrRendering)
}

// IsAuth checks if the error is an authentication or authorization failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// ValidationErrors collects per-field problems found while checking input.
type ValidationErrors struct {
	Domain string
	Op     string
	Fields map[string]string
}

// NewValidationErrors creates an empty collector.
func NewValidationErrors(domain, op string) *ValidationErrors {
	return &ValidationErrors{Domain: domain, Op: op, Fields: make(map[string]string)}
}

// Add records a problem for field. The first message for a field wins.
func (v *ValidationErrors) Add(field, message string) {
	if _, exists := v.Fields[field]; !exists {
		v.Fields[field] = message
	}
}

// HasErrors reports whether anything was recorded.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Fields) > 0
}

// Err returns nil when nothing was recorded, otherwise v itself.
func (v *ValidationErrors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("%s.%s: %d invalid field(s)", v.Domain, v.Op, len(v.Fields))
}

// Is makes ValidationErrors match ErrValidation.
func (v *ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}
