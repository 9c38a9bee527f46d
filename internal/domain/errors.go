package domain

import (
	"context"
	"errors"
	"fmt"
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// Authorization errors
var (
	ErrForbidden = errors.New("access denied")
)

// Lookup and validation errors
var (
	ErrEventNotFound          = errors.New("event not found")
	ErrAccountNotFound        = errors.New("account not found")
	ErrIdentifierTaken        = errors.New("email already registered")
	ErrInvalidRole            = errors.New("invalid role")
	ErrValidation             = errors.New("validation failed")
	ErrCapacityBelowAttendees = errors.New("capacity cannot be lower than current attendee count")
)

// Infrastructure errors
var (
	ErrUnavailable         = errors.New("storage unavailable")
	ErrRegistrationTimeout = errors.New("registration outcome unknown: operation timed out")
)

// ErrorKind classifies an error for the request boundary
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindValidation
	KindConflict
	KindInfrastructure
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Kind classifies err into the error taxonomy
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired):
		return KindAuthentication
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRole):
		return KindValidation
	case errors.Is(err, ErrIdentifierTaken), errors.Is(err, ErrCapacityBelowAttendees):
		return KindConflict
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrRegistrationTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return KindInfrastructure
	default:
		return KindUnknown
	}
}

// Retryable reports whether the caller may retry err with backoff
func Retryable(err error) bool {
	return Kind(err) == KindInfrastructure
}

// ValidationError describes malformed input on a single field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InfraError wraps a storage or transport failure with the identifiers needed
// to diagnose it. It matches ErrUnavailable as well as its cause.
type InfraError struct {
	Op        string
	EventID   string
	AccountID string
	Err       error
}

// NewInfraError wraps err, returning nil for a nil err
func NewInfraError(op, eventID, accountID string, err error) error {
	if err == nil {
		return nil
	}
	return &InfraError{Op: op, EventID: eventID, AccountID: accountID, Err: err}
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s failed (event=%s account=%s): %v", e.Op, e.EventID, e.AccountID, e.Err)
}

func (e *InfraError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}
