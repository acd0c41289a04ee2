package service

import "errors"

// Common service errors. The API layer maps them to HTTP status codes.
var (
	// ErrDuplicateClub indicates a club with the same id or name exists.
	// API layer should map this to HTTP 409 Conflict.
	ErrDuplicateClub = errors.New("a club with this id or name already exists")

	// ErrClubNotFound indicates the requested club does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrClubNotFound = errors.New("club not found")

	// ErrAccountNotFound indicates the caller's account no longer exists.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrAccountNotFound = errors.New("account not found")
)
