package dto

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,max=254"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"required,max=100"`
	Role        string `json:"role" binding:"omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ClientInfo describes where a login came from. It feeds the audit trail only.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	ExpiresAt   string          `json:"expires_at"`
	Account     AccountResponse `json:"account"`
}

// AccountResponse represents account data in responses
type AccountResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}
