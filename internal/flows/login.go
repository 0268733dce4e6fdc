package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goSession/jwt"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidInput
	LoginFailureRateLimited
	LoginFailureLimiterUnavailable
	LoginFailureInvalidCredentials
	LoginFailureProvider
	LoginFailureIssue
)

// LoginResult carries the issued token or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Email   string
	IP      string
	Subject string
	Token   jwt.Token
}

// LoginRateLimiter is the subset of the throttle used by login.
type LoginRateLimiter interface {
	CheckLogin(ctx context.Context, email, ip string) error
	IncrementLogin(ctx context.Context, email, ip string) error
	ResetLogin(ctx context.Context, email string) error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string
	RateLimiter         LoginRateLimiter
	RateLimited         error

	GetIdentityByEmail func(context.Context, string) (Identity, error)
	VerifyPassword     func(password, hash string) (bool, error)
	Issue              IssueFunc

	// DummyHash is verified against when the email is unknown, so both failure
	// paths cost one hash computation.
	DummyHash string

	Errors IdentityErrors
	Warn   func(string, ...any)
}

// RunLogin verifies credentials and issues a token carrying the identity's roles.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	email = strings.TrimSpace(email)
	ip := clientIP(ctx, deps.ClientIPFromContext)
	res := LoginResult{Email: email, IP: ip}

	if email == "" || password == "" {
		res.Failure = LoginFailureInvalidInput
		return res
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckLogin(ctx, email, ip); err != nil {
			res.Err = err
			res.Failure = LoginFailureLimiterUnavailable
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				res.Failure = LoginFailureRateLimited
			}
			return res
		}
	}

	identity, err := deps.GetIdentityByEmail(ctx, email)
	if err != nil {
		if deps.Errors.NotFound == nil || !errors.Is(err, deps.Errors.NotFound) {
			res.Failure = LoginFailureProvider
			res.Err = err
			return res
		}
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return recordLoginFailure(ctx, res, deps)
	}
	res.Subject = identity.ID

	ok, err := deps.VerifyPassword(password, identity.PasswordHash)
	if err != nil || !ok {
		res.Err = err
		return recordLoginFailure(ctx, res, deps)
	}

	tok, err := deps.Issue(identity.ID, identity.Roles)
	if err != nil {
		res.Failure = LoginFailureIssue
		res.Err = err
		return res
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.ResetLogin(ctx, email); err != nil && deps.Warn != nil {
			deps.Warn("goSession: login throttle reset failed", "error", err)
		}
	}

	res.Token = tok
	return res
}

func recordLoginFailure(ctx context.Context, res LoginResult, deps LoginDeps) LoginResult {
	res.Failure = LoginFailureInvalidCredentials
	if deps.RateLimiter == nil {
		return res
	}

	if err := deps.RateLimiter.IncrementLogin(ctx, res.Email, res.IP); err != nil {
		if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
			res.Failure = LoginFailureRateLimited
			res.Err = err
			return res
		}
		if deps.Warn != nil {
			deps.Warn("goSession: login throttle increment failed", "error", err)
		}
	}
	return res
}
