package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"invalid credentials", ErrInvalidCredentials, KindAuthentication},
		{"expired token", fmt.Errorf("validate: %w", ErrTokenExpired), KindAuthentication},
		{"forbidden", ErrForbidden, KindAuthorization},
		{"event not found", ErrEventNotFound, KindNotFound},
		{"account not found", ErrAccountNotFound, KindNotFound},
		{"validation error", NewValidationError("capacity", "must be positive"), KindValidation},
		{"invalid role", ErrInvalidRole, KindValidation},
		{"identifier taken", ErrIdentifierTaken, KindConflict},
		{"capacity below attendees", ErrCapacityBelowAttendees, KindConflict},
		{"infra", NewInfraError("join", "e1", "a1", cause), KindInfrastructure},
		{"timeout", ErrRegistrationTimeout, KindInfrastructure},
		{"deadline", context.DeadlineExceeded, KindInfrastructure},
		{"other", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestInfraError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInfraError("join", "event-1", "account-1", cause)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Retryable(err))
	assert.Contains(t, err.Error(), "event-1")
	assert.Contains(t, err.Error(), "account-1")

	var infra *InfraError
	assert.ErrorAs(t, err, &infra)
	assert.Equal(t, "join", infra.Op)

	assert.NoError(t, NewInfraError("join", "e", "a", nil))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("email", "invalid email format")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "email: invalid email format", err.Error())
	assert.False(t, Retryable(err))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("Alice <alice@example.com>"))
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestValidateSecret(t *testing.T) {
	assert.Error(t, ValidateSecret("short"))
	assert.NoError(t, ValidateSecret("long-enough"))
	assert.Error(t, ValidateSecret(string(make([]byte, MaxSecretLength+1))))
}

func TestEvent_Remaining(t *testing.T) {
	e := &Event{Capacity: 3, AttendeeCount: 1}
	assert.Equal(t, 2, e.Remaining())
	assert.False(t, e.IsFull())

	e.AttendeeCount = 3
	assert.Equal(t, 0, e.Remaining())
	assert.True(t, e.IsFull())

	assert.Error(t, ValidateCapacity(0))
	assert.Error(t, ValidateCapacity(-5))
	assert.NoError(t, ValidateCapacity(1))
}
