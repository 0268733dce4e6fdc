package jwt

import "errors"

var (
	// ErrInvalidSignature is returned when the signature or algorithm does not verify.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired is returned when the current time is at or past the token expiry.
	ErrExpired = errors.New("token expired")
	// ErrIssuerMismatch is returned when the iss claim differs from the configured issuer.
	ErrIssuerMismatch = errors.New("token issuer mismatch")
	// ErrAudienceMismatch is returned when the aud claim lacks the configured audience.
	ErrAudienceMismatch = errors.New("token audience mismatch")
	// ErrMalformed is returned for tokens that cannot be decoded or lack required claims.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSubject is returned by the issuer for an empty subject.
	ErrInvalidSubject = errors.New("token subject is empty")
	// ErrInvalidRoles is returned by the issuer for empty or unknown role sets.
	ErrInvalidRoles = errors.New("token roles invalid")
)
