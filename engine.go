package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/permission"
)

// Engine is the server side of the session protocol: login, registration,
// renewal and per-request validation. It is read-only after [Builder.Build] and
// safe for concurrent use.
type Engine struct {
	config       Config
	registry     *permission.Registry
	jwtManager   *jwt.Manager
	issuer       *jwt.Issuer
	passwordHash *password.Argon2
	policy       password.Policy
	dummyHash    string
	provider     IdentityProvider
	rateLimiter  *rate.Limiter
	audit        *audit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
	flows        flows.Deps
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports, per event type, how many audit events never reached
// the sink because the buffer was full or the emitting request ended first.
func (e *Engine) AuditDropped() map[string]uint64 {
	if e == nil || e.audit == nil {
		return map[string]uint64{}
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// TokenTTL returns the lifetime of issued tokens.
func (e *Engine) TokenTTL() time.Duration {
	if e == nil || e.issuer == nil {
		return 0
	}
	return e.issuer.TTL()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.issuer != nil && e.provider != nil
}

/*
====================================
LOGIN
====================================
*/

// Login verifies email and password and issues a token carrying the identity's
// current roles. Unknown emails and wrong passwords both yield
// [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, password string) (IssuedToken, error) {
	if !e.ready() {
		return IssuedToken{}, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, email, password, e.flows.Login)

	switch res.Failure {
	case flows.LoginFailureNone:
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, AuditLoginSuccess, true, res.Subject, res.Token.Claims.TokenID, nil, nil)
		return issuedToken(res.Token), nil
	case flows.LoginFailureInvalidInput:
		e.metricInc(MetricLoginFailure)
		return IssuedToken{}, &ValidationError{
			Kind:     ErrInvalidRequest,
			Messages: []string{"Email and password are required"},
		}
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, AuditLoginRateLimited, false, res.Subject, "", ErrLoginRateLimited, map[string]string{"identifier": res.Email})
		e.emitRateLimit(ctx, "login", res.Email)
		return IssuedToken{}, ErrLoginRateLimited
	case flows.LoginFailureLimiterUnavailable:
		e.metricInc(MetricLoginFailure)
		e.logger.Error("goSession: login throttle unavailable", "error", res.Err)
		return IssuedToken{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, res.Err)
	case flows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, res.Subject, "", ErrInvalidCredentials, map[string]string{"identifier": res.Email})
		return IssuedToken{}, ErrInvalidCredentials
	case flows.LoginFailureProvider:
		e.metricInc(MetricLoginFailure)
		e.logger.Error("goSession: identity lookup failed", "error", res.Err)
		return IssuedToken{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		e.logger.Error("goSession: token issuance failed", "subject", res.Subject, "error", res.Err)
		return IssuedToken{}, issueError(res.Err)
	}
}

/*
====================================
RENEWAL
====================================
*/

// Renew re-issues a token for the identity embedded in bearer, which may have
// expired within the configured renew window. claimedEmail, when non-empty, must
// belong to that identity or [ErrIdentityMismatch] is returned.
func (e *Engine) Renew(ctx context.Context, bearer, claimedEmail string) (IssuedToken, error) {
	if !e.ready() {
		return IssuedToken{}, ErrEngineNotReady
	}

	res := flows.RunRenew(ctx, bearer, claimedEmail, e.flows.Renew)

	switch res.Failure {
	case flows.RenewFailureNone:
		e.metricInc(MetricRenewSuccess)
		e.emitAudit(ctx, AuditRenewSuccess, true, res.Subject, res.Token.Claims.TokenID,
			nil, map[string]string{"previous_token_id": res.PrevTokenID})
		return issuedToken(res.Token), nil
	case flows.RenewFailureToken:
		e.metricInc(MetricRenewFailure)
		e.emitAudit(ctx, AuditRenewFailure, false, "", "", res.Err, nil)
		return IssuedToken{}, fmt.Errorf("%w: %w", ErrUnauthorized, res.Err)
	case flows.RenewFailureRateLimited:
		e.metricInc(MetricRenewRateLimited)
		e.emitAudit(ctx, AuditRenewRateLimited, false, res.Subject, res.PrevTokenID, ErrRenewRateLimited, nil)
		e.emitRateLimit(ctx, "renew", res.Subject)
		return IssuedToken{}, ErrRenewRateLimited
	case flows.RenewFailureIdentityNotFound:
		e.metricInc(MetricRenewFailure)
		e.metricInc(MetricRenewIdentityNotFound)
		e.emitAudit(ctx, AuditRenewFailure, false, res.Subject, res.PrevTokenID, ErrIdentityNotFound, nil)
		return IssuedToken{}, ErrIdentityNotFound
	case flows.RenewFailureIdentityMismatch:
		e.metricInc(MetricRenewFailure)
		e.metricInc(MetricRenewIdentityMismatch)
		e.emitAudit(ctx, AuditRenewIdentityMismatch, false, res.Subject, res.PrevTokenID, ErrIdentityMismatch, nil)
		return IssuedToken{}, ErrIdentityMismatch
	case flows.RenewFailureLimiterUnavailable, flows.RenewFailureProvider:
		e.metricInc(MetricRenewFailure)
		e.logger.Error("goSession: renewal dependency failed", "subject", res.Subject, "error", res.Err)
		return IssuedToken{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, res.Err)
	default:
		e.metricInc(MetricRenewFailure)
		e.emitAudit(ctx, AuditRenewFailure, false, res.Subject, res.PrevTokenID, res.Err, nil)
		return IssuedToken{}, issueError(res.Err)
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate verifies a bearer token and returns the identity it carries. Every
// failure wraps [ErrUnauthorized]; expired tokens additionally wrap
// [jwt.ErrExpired]. The identity provider is not consulted.
func (e *Engine) Validate(ctx context.Context, token string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	res := flows.RunValidate(token, e.flows.Validate)
	if res.Failure != flows.ValidateFailureNone {
		e.metricInc(MetricValidateFailure)
		if res.Err == nil {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, res.Err)
	}

	return &AuthResult{
		Subject:   res.Token.Claims.Subject,
		Roles:     append([]string(nil), res.Token.Claims.Roles...),
		TokenID:   res.Token.Claims.TokenID,
		ExpiresAt: res.Token.ExpiresAt,
	}, nil
}

// Authorize returns nil when result holds at least one of roles, and
// [ErrForbidden] otherwise. An empty roles list admits any authenticated caller.
func (e *Engine) Authorize(ctx context.Context, result *AuthResult, roles ...permission.Role) error {
	if result == nil {
		return ErrUnauthorized
	}
	if len(roles) == 0 || permission.HasAny(result.Roles, roles...) {
		return nil
	}

	e.metricInc(MetricAccessForbidden)
	required := make([]string, 0, len(roles))
	for _, r := range roles {
		required = append(required, r.String())
	}
	e.emitAudit(ctx, AuditAccessForbidden, false, result.Subject, result.TokenID, ErrForbidden,
		map[string]string{"required": fmt.Sprint(required)})
	return ErrForbidden
}

/*
====================================
REGISTRATION
====================================
*/

// Register creates an identity holding the default role. Input and policy problems
// are returned together in a *[ValidationError].
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (IdentityView, error) {
	if !e.ready() {
		return IdentityView{}, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return IdentityView{}, ErrAccountCreationDisabled
	}

	res := flows.RunRegister(ctx, flows.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	}, e.flows.Register)

	switch res.Failure {
	case flows.RegisterFailureNone:
		e.metricInc(MetricAccountCreationSuccess)
		e.emitAudit(ctx, AuditAccountCreated, true, res.Identity.ID, "", nil, nil)
		return IdentityView{Email: res.Identity.Email, FullName: res.Identity.FullName}, nil
	case flows.RegisterFailureInvalidInput:
		e.metricInc(MetricAccountCreationRejected)
		return IdentityView{}, &ValidationError{Kind: ErrInvalidRequest, Messages: res.Messages}
	case flows.RegisterFailurePolicy:
		e.metricInc(MetricAccountCreationRejected)
		e.emitAudit(ctx, AuditAccountCreationFailure, false, "", "", ErrPasswordPolicy, nil)
		return IdentityView{}, &ValidationError{Kind: ErrPasswordPolicy, Messages: res.Messages}
	case flows.RegisterFailureDuplicate:
		e.metricInc(MetricAccountCreationDuplicate)
		e.emitAudit(ctx, AuditAccountCreationFailure, false, "", "", ErrIdentityExists, nil)
		return IdentityView{}, ErrIdentityExists
	case flows.RegisterFailureHash:
		e.metricInc(MetricAccountCreationRejected)
		if errors.Is(res.Err, password.ErrPasswordTooLong) {
			return IdentityView{}, &ValidationError{Kind: ErrPasswordPolicy, Messages: []string{"Password is too long"}}
		}
		return IdentityView{}, res.Err
	default:
		e.emitAudit(ctx, AuditAccountCreationFailure, false, "", "", res.Err, nil)
		e.logger.Error("goSession: identity creation failed", "error", res.Err)
		return IdentityView{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, res.Err)
	}
}

/*
====================================
WIRING
====================================
*/

func (e *Engine) buildFlowDeps() flows.Deps {
	identityErrs := flows.IdentityErrors{NotFound: ErrIdentityNotFound, Exists: ErrIdentityExists}

	deps := flows.Deps{
		Login: flows.LoginDeps{
			ClientIPFromContext: clientIPFromContext,
			RateLimited:         rate.ErrRateLimited,
			GetIdentityByEmail: func(ctx context.Context, email string) (flows.Identity, error) {
				rec, err := e.provider.GetIdentityByEmail(ctx, email)
				return toFlowIdentity(rec), err
			},
			VerifyPassword: e.passwordHash.Verify,
			Issue:          e.issuer.Issue,
			DummyHash:      e.dummyHash,
			Errors:         identityErrs,
			Warn:           e.logger.Warn,
		},
		Renew: flows.RenewDeps{
			VerifyExpired: e.jwtManager.VerifyAllowExpired,
			RenewWindow:   e.config.Token.RenewWindow,
			RateLimited:   rate.ErrRateLimited,
			GetIdentityByID: func(ctx context.Context, id string) (flows.Identity, error) {
				rec, err := e.provider.GetIdentityByID(ctx, id)
				return toFlowIdentity(rec), err
			},
			Issue:  e.issuer.Issue,
			Errors: identityErrs,
		},
		Validate: flows.ValidateDeps{
			Verify:  e.jwtManager.VerifyToken,
			Expired: jwt.ErrExpired,
		},
		Register: flows.RegisterDeps{
			CheckPolicy: func(candidate string) []string {
				var pe *password.PolicyError
				if err := e.policy.Check(candidate); errors.As(err, &pe) {
					return pe.Violations
				}
				return nil
			},
			HashPassword: e.passwordHash.Hash,
			CreateIdentity: func(ctx context.Context, in flows.Identity) (flows.Identity, error) {
				rec, err := e.provider.CreateIdentity(ctx, CreateIdentityInput{
					Email:        in.Email,
					FullName:     in.FullName,
					PasswordHash: in.PasswordHash,
					Roles:        in.Roles,
				})
				return toFlowIdentity(rec), err
			},
			DefaultRole: e.config.Account.DefaultRole,
			Errors:      identityErrs,
		},
	}

	// A nil *rate.Limiter must stay a nil interface.
	if e.rateLimiter != nil {
		deps.Login.RateLimiter = e.rateLimiter
		deps.Renew.RateLimiter = e.rateLimiter
	}

	return deps
}

func toFlowIdentity(rec IdentityRecord) flows.Identity {
	return flows.Identity{
		ID:           rec.ID,
		Email:        rec.Email,
		FullName:     rec.FullName,
		PasswordHash: rec.PasswordHash,
		Roles:        rec.Roles,
	}
}

func issuedToken(tok jwt.Token) IssuedToken {
	return IssuedToken{
		Token:     tok.Raw,
		Subject:   tok.Claims.Subject,
		TokenID:   tok.Claims.TokenID,
		Roles:     tok.Claims.Roles,
		ExpiresAt: tok.ExpiresAt,
	}
}

func issueError(err error) error {
	if errors.Is(err, jwt.ErrInvalidRoles) {
		return fmt.Errorf("%w: %w", ErrInvalidRole, err)
	}
	return err
}
