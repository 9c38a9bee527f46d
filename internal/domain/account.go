package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Account represents a registered identity
type Account struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	DisplayName   string     `json:"display_name"`
	Role          Role       `json:"role"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// Credential limits. bcrypt ignores input past 72 bytes.
const (
	MinSecretLength      = 8
	MaxSecretLength      = 72
	MaxDisplayNameLength = 100
)

// NormalizeEmail trims and lower-cases an identifier so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that the normalized identifier is a bare address
func ValidateEmail(email string) error {
	if email == "" {
		return NewValidationError("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewValidationError("email", "invalid email format")
	}
	return nil
}

// ValidateSecret checks password length bounds
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return NewValidationError("password", "password must be at least 8 characters")
	}
	if len(secret) > MaxSecretLength {
		return NewValidationError("password", "password must be at most 72 bytes")
	}
	return nil
}

// ValidateDisplayName checks the display name
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("display_name", "display name is required")
	}
	if len(name) > MaxDisplayNameLength {
		return NewValidationError("display_name", "display name is too long")
	}
	return nil
}

// CanAuthenticate reports whether the account may log in or act on a token
func (a *Account) CanAuthenticate() bool {
	return a != nil && a.IsActive && a.DeactivatedAt == nil
}
