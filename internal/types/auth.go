package types

import "github.com/golang-jwt/jwt/v5"

// Claims carried by the session token. The token is self-contained: user id
// and role are enough to re-identify the caller without a store lookup.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Response is the envelope returned on every success and error path.
// Status mirrors the transport status code.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
