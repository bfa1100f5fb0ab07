package platform

import (
	"errors"
	"fmt"
)

// The error taxonomy decides retry behavior: auth and posting failures are
// transient and retryable, validation and rate-limit failures are not.

// ValidationError reports bad input before any network call: missing
// credentials, over-limit content, unsupported media.
type ValidationError struct {
	Platform Name
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed: %s", e.Platform, e.Reason)
}

// AuthError reports a failed authentication attempt.
type AuthError struct {
	Platform Name
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Platform, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// PostError reports a transient network or platform failure during the post
// itself.
type PostError struct {
	Platform Name
	Err      error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("%s: post failed: %v", e.Platform, e.Err)
}

func (e *PostError) Unwrap() error { return e.Err }

// RateLimitError reports a rate-limiter rejection. Never retried.
type RateLimitError struct {
	Platform Name
	Reason   string
}

func (e *RateLimitError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: rate limit exceeded: %s", e.Platform, e.Reason)
	}
	return fmt.Sprintf("%s: rate limit exceeded", e.Platform)
}

// IsTransient reports whether err is worth retrying. Only authentication and
// posting failures qualify.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var authErr *AuthError
	var postErr *PostError
	return errors.As(err, &authErr) || errors.As(err, &postErr)
}
