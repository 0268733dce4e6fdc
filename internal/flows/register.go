package flows

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

// RegisterFailureKind classifies registration failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalidInput
	RegisterFailurePolicy
	RegisterFailureHash
	RegisterFailureDuplicate
	RegisterFailureProvider
)

// RegisterInput is the flow-local registration request.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// RegisterResult carries the created identity or failure metadata. Messages lists
// every input problem for RegisterFailureInvalidInput and RegisterFailurePolicy.
type RegisterResult struct {
	Failure  RegisterFailureKind
	Err      error
	Messages []string
	Identity Identity
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	CheckPolicy    func(password string) []string
	HashPassword   func(password string) (string, error)
	CreateIdentity func(ctx context.Context, in Identity) (Identity, error)
	DefaultRole    string
	Errors         IdentityErrors
}

// RunRegister validates input, hashes the password and creates an identity holding
// only the default role.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) RegisterResult {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)

	var messages []string
	if in.Email == "" {
		messages = append(messages, "Email is required")
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		messages = append(messages, "Email is not a valid address")
	}
	if in.FullName == "" {
		messages = append(messages, "Full name is required")
	}
	if in.Password == "" {
		messages = append(messages, "Password is required")
	}
	if len(messages) > 0 {
		return RegisterResult{Failure: RegisterFailureInvalidInput, Messages: messages}
	}

	if deps.CheckPolicy != nil {
		if violations := deps.CheckPolicy(in.Password); len(violations) > 0 {
			return RegisterResult{Failure: RegisterFailurePolicy, Messages: violations}
		}
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureHash, Err: err}
	}

	created, err := deps.CreateIdentity(ctx, Identity{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		Roles:        []string{deps.DefaultRole},
	})
	if err != nil {
		if deps.Errors.Exists != nil && errors.Is(err, deps.Errors.Exists) {
			return RegisterResult{Failure: RegisterFailureDuplicate, Err: err}
		}
		return RegisterResult{Failure: RegisterFailureProvider, Err: err}
	}

	return RegisterResult{Identity: created}
}
