package goSession

import (
	"context"
	"time"
)

// IdentityRecord is what an [IdentityProvider] stores for one account. Roles are
// re-read on every login and renewal, so role changes apply at the next issuance.
type IdentityRecord struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// CreateIdentityInput is passed to [IdentityProvider.CreateIdentity] by registration.
type CreateIdentityInput struct {
	Email        string
	FullName     string
	PasswordHash string
	Roles        []string
}

// IdentityProvider is the directory of accounts. Implementations return
// [ErrIdentityNotFound] for unknown lookups and [ErrIdentityExists] for duplicate
// emails; any other error is treated as the provider being unavailable.
type IdentityProvider interface {
	GetIdentityByEmail(ctx context.Context, email string) (IdentityRecord, error)
	GetIdentityByID(ctx context.Context, id string) (IdentityRecord, error)
	CreateIdentity(ctx context.Context, input CreateIdentityInput) (IdentityRecord, error)
}

// AuthResult is the verified identity of a request, produced by [Engine.Validate].
type AuthResult struct {
	Subject   string
	Roles     []string
	TokenID   string
	ExpiresAt time.Time
}

// IssuedToken is the result of a successful login or renewal.
type IssuedToken struct {
	Token     string
	Subject   string
	TokenID   string
	Roles     []string
	ExpiresAt time.Time
}

// RegisterRequest is the input of [Engine.Register].
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
}

// IdentityView is the public projection of an account.
type IdentityView struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}
