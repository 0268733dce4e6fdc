package flows

import (
	"context"

	"github.com/MrEthical07/goSession/jwt"
)

// Deps groups flow dependency sets. The root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Renew    RenewDeps
	Validate ValidateDeps
	Register RegisterDeps
}

// Identity is the flow-local account model.
type Identity struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Roles        []string
}

// IssueFunc signs a fresh token for subject with roles.
type IssueFunc func(subject string, roles []string) (jwt.Token, error)

// IdentityErrors carries host-level sentinels that providers return, so flows can
// classify provider failures without importing the host package.
type IdentityErrors struct {
	NotFound error
	Exists   error
}

func clientIP(ctx context.Context, f func(context.Context) string) string {
	if f == nil {
		return ""
	}
	return f(ctx)
}
