package types

import "errors"

// Sentinel errors shared across repositories, services and handlers.
// Handlers translate these into envelope responses with errors.Is.
var (
	ErrValidation       = errors.New("invalid input")
	ErrNotFound         = errors.New("requested item not found")
	ErrConflict         = errors.New("item already exists or conflict")
	ErrUnauthenticated  = errors.New("authentication required or invalid credentials")
	ErrForbidden        = errors.New("action forbidden")
	ErrHashing          = errors.New("password hashing failed")
	ErrSigning          = errors.New("token signing failed")
	ErrStoreUnavailable = errors.New("backing store unavailable")
)
