package dto

// ChangeRoleRequest represents an administrator changing an account's role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateProfileRequest represents a profile update
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required,max=100"`
}
