package services

import "errors"

// Service failure taxonomy. Services wrap these with context; controllers map
// them to HTTP statuses with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrLimitExceeded     = errors.New("limit exceeded")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrExternalService   = errors.New("external service failure")
	ErrUnauthorized      = errors.New("unauthorized")
)
