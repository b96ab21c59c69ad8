package errors

import (
	"errors"
	"fmt"
)

// Common error types for the metrics dashboard
var (
	// Upstream API errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrUpstream     = errors.New("upstream error")

	// OAuth flow errors
	ErrInvalidState        = errors.New("invalid state")
	ErrAuthFlowExpired     = errors.New("authorization flow expired")
	ErrInvalidSessionToken = errors.New("invalid session token")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
