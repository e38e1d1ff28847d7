// Package apperror defines the typed errors the service layer returns.
//
// Every failure a caller can act on has its own sentinel, so the HTTP layer
// (and tests) can distinguish "code expired" from "wrong code" from "no code
// issued" with errors.Is — and render a precise message for each. Anything
// that is NOT one of these sentinels is treated as an internal fault and
// surfaced to clients as an opaque 500.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")

	// Authentication.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProvider           = errors.New("identity provider error")

	// Email verification.
	ErrNoCodeIssued = errors.New("no verification code issued")
	ErrCodeExpired  = errors.New("verification code expired")
	ErrCodeMismatch = errors.New("verification code mismatch")

	// Social graph.
	ErrSelfRequest      = errors.New("cannot friend yourself")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrDuplicatePending = errors.New("friend request already pending")

	// Public ID allocation.
	ErrAllocatorExhausted = errors.New("public id space exhausted")
)

// AppError pairs a sentinel with a human-readable message.
//
// The sentinel (Err) is for machines: errors.Is(err, ErrCodeExpired).
// The Message is for humans: it goes straight into the JSON error response.
// Field optionally names the input field that caused a validation failure.
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps any sentinel with a message. Most call sites use the named
// constructors below; New covers the one-off cases.
func New(sentinel error, message string) *AppError {
	return &AppError{Err: sentinel, Message: message}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

// InvalidCredentials returns the deliberately vague login failure.
// The same message covers "no such user" and "wrong password" so the
// response doesn't leak which usernames exist.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid credentials",
	}
}

// SocialLoginOnly is the one login failure that IS specific: the account
// exists but has no password, so telling the user to use Google/Apple is
// more helpful than a dead-end "invalid credentials".
func SocialLoginOnly() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "This account uses social login. Please sign in with Google or Apple.",
	}
}

func ProviderFailure(provider string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrProvider, err),
		Message: fmt.Sprintf("%s authentication failed", provider),
	}
}
