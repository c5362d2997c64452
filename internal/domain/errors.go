package domain

import "errors"

// Error taxonomy shared by all core services. Handlers map these to HTTP
// status codes with errors.Is; services wrap them with %w for context.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage error")
)
