package auth

import "github.com/identsvc/go-user-accounts/internal/types"

// RegisterRequest represents the register request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest represents the login request body. Identifier matches either
// username or email.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// ChangePasswordRequest represents the change password request body.
// OldPassword is optional; when present it is verified before the change.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password,omitempty"`
	NewPassword string `json:"new_password"`
}

// ChangeRoleRequest represents the role change request body. The role is an
// explicit target value, never a toggle.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// SessionResponse is the payload returned on successful register and login.
type SessionResponse struct {
	Token string          `json:"token"`
	User  *types.UserView `json:"user"`
}
