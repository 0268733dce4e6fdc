package goSession

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/permission"
	"github.com/redis/go-redis/v9"
)

// dummyPassword is hashed once at build time. Logins for unknown emails verify
// against it so both failure paths cost one Argon2 computation.
const dummyPassword = "gosession-timing-equalizer"

// Builder assembles an [Engine]. Configure it during initialization, call Build
// once, and discard it.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	provider IdentityProvider
	sink     AuditSink
	logger   *slog.Logger
	now      func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig]. The signing key has no
// default, so WithConfig is always required.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. The value is cloned.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis enables the login and renewal throttles. Without Redis the Engine
// runs unthrottled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityProvider sets the account directory. Required.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink sets where audit events go when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the logger for operational warnings. Nil discards.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for issuing and verifying tokens.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validate-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. A Builder can be
// built only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.provider == nil {
		return nil, errors.New("identity provider required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- ROLE REGISTRY --------
	registry, err := permission.NewRegistryFromNames(cfg.Account.Roles)
	if err != nil {
		return nil, err
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		SigningKey: []byte(cfg.Token.SigningKey),
		Issuer:     cfg.Token.Issuer,
		Audience:   cfg.Token.Audience,
		Now:        b.now,
	})
	if err != nil {
		return nil, err
	}
	issuer, err := jwt.NewIssuer(jm, registry, cfg.Token.TTL)
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	dummyHash, err := ph.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		registry:     registry,
		jwtManager:   jm,
		issuer:       issuer,
		passwordHash: ph,
		policy: password.Policy{
			MinLength: cfg.Password.MinLength,
			MaxLength: cfg.Password.MaxLength,
			Specials:  cfg.Password.Specials,
		},
		dummyHash: dummyHash,
		provider:  b.provider,
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Critical:   criticalAuditEvents,
		}, b.sink),
	}

	// -------- THROTTLES --------
	if b.redis != nil {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Security.RedisPrefix,
			EnableLoginThrottle:   cfg.Security.EnableLoginThrottle,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
			EnableRenewThrottle:   cfg.Security.EnableRenewThrottle,
			MaxRenewAttempts:      cfg.Security.MaxRenewAttempts,
			RenewCooldownDuration: cfg.Security.RenewCooldownDuration,
		})
	} else if cfg.Security.EnableLoginThrottle || cfg.Security.EnableRenewThrottle {
		logger.Warn("goSession: throttles configured without redis; running unthrottled")
	}

	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}
