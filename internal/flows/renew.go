package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// RenewFailureKind classifies renewal failures for root-level mapping.
type RenewFailureKind int

const (
	RenewFailureNone RenewFailureKind = iota
	RenewFailureToken
	RenewFailureRateLimited
	RenewFailureLimiterUnavailable
	RenewFailureIdentityNotFound
	RenewFailureProvider
	RenewFailureIdentityMismatch
	RenewFailureIssue
)

// RenewResult carries the re-issued token or failure metadata.
type RenewResult struct {
	Failure     RenewFailureKind
	Err         error
	Subject     string
	PrevTokenID string
	Token       jwt.Token
}

// RenewRateLimiter is the subset of the throttle used by renewal.
type RenewRateLimiter interface {
	CheckRenew(ctx context.Context, subject string) error
}

// RenewDeps captures renewal dependencies.
type RenewDeps struct {
	// VerifyExpired accepts tokens past expiry within window; every other check applies.
	VerifyExpired func(raw string, window time.Duration) (jwt.Token, error)
	RenewWindow   time.Duration

	RateLimiter RenewRateLimiter
	RateLimited error

	GetIdentityByID func(context.Context, string) (Identity, error)
	Issue           IssueFunc

	Errors IdentityErrors
}

// RunRenew re-issues a token for the identity embedded in raw. The token may have
// expired; its signature, issuer and audience must still verify. claimedEmail, when
// non-empty, must name that same identity.
func RunRenew(ctx context.Context, raw, claimedEmail string, deps RenewDeps) RenewResult {
	prev, err := deps.VerifyExpired(raw, deps.RenewWindow)
	if err != nil {
		return RenewResult{Failure: RenewFailureToken, Err: err}
	}

	res := RenewResult{Subject: prev.Claims.Subject, PrevTokenID: prev.Claims.TokenID}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRenew(ctx, res.Subject); err != nil {
			res.Err = err
			res.Failure = RenewFailureLimiterUnavailable
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				res.Failure = RenewFailureRateLimited
			}
			return res
		}
	}

	identity, err := deps.GetIdentityByID(ctx, res.Subject)
	if err != nil {
		res.Err = err
		res.Failure = RenewFailureProvider
		if deps.Errors.NotFound != nil && errors.Is(err, deps.Errors.NotFound) {
			res.Failure = RenewFailureIdentityNotFound
		}
		return res
	}

	claimedEmail = strings.TrimSpace(claimedEmail)
	if claimedEmail != "" && !strings.EqualFold(claimedEmail, identity.Email) {
		res.Failure = RenewFailureIdentityMismatch
		return res
	}

	tok, err := deps.Issue(identity.ID, identity.Roles)
	if err != nil {
		res.Failure = RenewFailureIssue
		res.Err = err
		return res
	}

	res.Token = tok
	return res
}
