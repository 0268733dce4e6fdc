package goSession

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthorized means the request carries no usable token: missing, malformed,
	// badly signed, expired, or for the wrong issuer or audience.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the token is valid but lacks a required role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned by login for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityNotFound is returned when the identity inside a token no longer exists.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityMismatch is returned by renewal when the request names a different
	// identity than the token being renewed.
	ErrIdentityMismatch = errors.New("identity does not match token")
	// ErrIdentityExists is returned by registration for an email already in use.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrRenewalLimitExceeded is returned client-side once a session used every renewal.
	ErrRenewalLimitExceeded = errors.New("renewal limit exceeded")
	// ErrSessionExpired is returned client-side after the session was destroyed and the
	// caller must log in again.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetworkFailure wraps transport errors other than timeouts.
	ErrNetworkFailure = errors.New("network failure")
	// ErrTimeout wraps requests that exceeded their deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrLoginRateLimited is returned when the login throttle denies an attempt.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRenewRateLimited is returned when the renewal throttle denies an attempt.
	ErrRenewRateLimited = errors.New("renew rate limited")
	// ErrInvalidRequest is returned for structurally invalid input such as a missing email.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPasswordPolicy is returned by registration when the password breaks the policy.
	ErrPasswordPolicy = errors.New("password does not satisfy policy")
	// ErrInvalidRole is returned when a role set cannot be issued.
	ErrInvalidRole = errors.New("invalid role")
	// ErrAccountCreationDisabled is returned by registration when it is switched off.
	ErrAccountCreationDisabled = errors.New("account creation disabled")
	// ErrMissingSigningKey is returned by configuration validation when no key is set.
	ErrMissingSigningKey = errors.New("token signing key is not configured")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrProviderUnavailable wraps identity provider failures other than not-found.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// ValidationError carries every message of a rejected request. Kind is
// [ErrInvalidRequest] or [ErrPasswordPolicy] and is matched by errors.Is.
type ValidationError struct {
	Kind     error
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}
