package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Identity
	ErrUnauthenticated = errors.New("user is not signed in")
	ErrForbidden       = errors.New("user id mismatch")
	ErrInvalidToken    = errors.New("invalid token")

	// Generation
	ErrEmptyPrompt         = errors.New("prompt is empty")
	ErrGenerationInFlight  = errors.New("a generation is already in progress")
	ErrGenerationAbandoned = errors.New("generation abandoned")
	ErrGenerationCancelled = errors.New("generation cancelled")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrLocked              = errors.New("resource is locked")
)
