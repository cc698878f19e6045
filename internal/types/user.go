package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRole reports whether s is one of the enumerated roles.
func ValidRole(s string) bool {
	return s == string(RoleUser) || s == string(RoleAdmin)
}

// ParseRole validates s against the enumerated set. An empty string defaults
// to RoleUser. Every write path (registration, update, role change) goes
// through this single validator.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleUser, nil
	}
	if !ValidRole(s) {
		return "", fmt.Errorf("%w: invalid role %q", ErrValidation, s)
	}
	return Role(s), nil
}

// User represents the core user entity in the domain.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Hashed password (never exposed).
	Salt         string    `json:"-"` // Per-record hashing salt (never exposed).
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserView is the sanitized representation of a user that is allowed to
// leave the service boundary. It carries no credential material at all.
type UserView struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sanitized strips PasswordHash and Salt from the record.
func (u *User) Sanitized() UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UpdateUserParams defines the fields allowed for partial updates.
// Pointers distinguish "not provided" from an empty value.
type UpdateUserParams struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// CreateUserParams carries already-hashed credential material for a new
// record. Plaintext passwords never reach the store adapter.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Salt         string
	Role         Role
}
