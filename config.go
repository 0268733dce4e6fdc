package goSession

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/permission"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override read by [LoadConfig].
const EnvPrefix = "GOSESSION_"

// Config is the complete engine configuration. Build clones it, so later mutation
// by the caller has no effect on a running Engine.
type Config struct {
	Token    TokenConfig    `yaml:"token" envPrefix:"TOKEN_"`
	Password PasswordConfig `yaml:"password" envPrefix:"PASSWORD_"`
	Security SecurityConfig `yaml:"security" envPrefix:"SECURITY_"`
	Account  AccountConfig  `yaml:"account" envPrefix:"ACCOUNT_"`
	Audit    AuditConfig    `yaml:"audit" envPrefix:"AUDIT_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig fixes the signing key and claim expectations of issued tokens.
type TokenConfig struct {
	SigningKey string        `yaml:"signing_key" env:"SIGNING_KEY"`
	Issuer     string        `yaml:"issuer" env:"ISSUER"`
	Audience   string        `yaml:"audience" env:"AUDIENCE"`
	TTL        time.Duration `yaml:"ttl" env:"TTL"`
	// RenewWindow bounds how long after expiry a token may still be renewed.
	// Zero removes the bound.
	RenewWindow time.Duration `yaml:"renew_window" env:"RENEW_WINDOW"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds hashing cost and the registration policy.
type PasswordConfig struct {
	Memory      uint32 `yaml:"memory_kb" env:"MEMORY_KB"`
	Time        uint32 `yaml:"time" env:"TIME"`
	Parallelism uint8  `yaml:"parallelism" env:"PARALLELISM"`
	SaltLength  uint32 `yaml:"salt_length" env:"SALT_LENGTH"`
	KeyLength   uint32 `yaml:"key_length" env:"KEY_LENGTH"`
	MinLength   int    `yaml:"min_length" env:"MIN_LENGTH"`
	MaxLength   int    `yaml:"max_length" env:"MAX_LENGTH"`
	Specials    string `yaml:"special_characters" env:"SPECIAL_CHARACTERS"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls the Redis-backed throttles. They are inert when the
// Engine is built without Redis.
type SecurityConfig struct {
	EnableLoginThrottle   bool          `yaml:"enable_login_throttle" env:"ENABLE_LOGIN_THROTTLE"`
	EnableIPThrottle      bool          `yaml:"enable_ip_throttle" env:"ENABLE_IP_THROTTLE"`
	MaxLoginAttempts      int           `yaml:"max_login_attempts" env:"MAX_LOGIN_ATTEMPTS"`
	LoginCooldownDuration time.Duration `yaml:"login_cooldown" env:"LOGIN_COOLDOWN"`
	EnableRenewThrottle   bool          `yaml:"enable_renew_throttle" env:"ENABLE_RENEW_THROTTLE"`
	MaxRenewAttempts      int           `yaml:"max_renew_attempts" env:"MAX_RENEW_ATTEMPTS"`
	RenewCooldownDuration time.Duration `yaml:"renew_cooldown" env:"RENEW_COOLDOWN"`
	RedisPrefix           string        `yaml:"redis_prefix" env:"REDIS_PREFIX"`
}

// AccountConfig controls registration and the enabled role set.
type AccountConfig struct {
	Enabled     bool     `yaml:"enabled" env:"ENABLED"`
	Roles       []string `yaml:"roles" env:"ROLES" envSeparator:","`
	DefaultRole string   `yaml:"default_role" env:"DEFAULT_ROLE"`
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled" env:"ENABLED"`
	BufferSize int  `yaml:"buffer_size" env:"BUFFER_SIZE"`
	DropIfFull bool `yaml:"drop_if_full" env:"DROP_IF_FULL"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"ENABLED"`
	EnableLatencyHistograms bool `yaml:"latency_histograms" env:"LATENCY_HISTOGRAMS"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns every default except the signing key, which has none.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:      "gosession",
			Audience:    "gosession-api",
			TTL:         15 * time.Minute,
			RenewWindow: time.Hour,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   6,
			MaxLength:   16,
			Specials:    "@$!%*?&",
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableRenewThrottle:   true,
			MaxRenewAttempts:      20,
			RenewCooldownDuration: time.Minute,
			RedisPrefix:           "gs",
		},
		Account: AccountConfig{
			Enabled:     true,
			Roles:       []string{string(permission.RoleAdmin), string(permission.RoleCustomer)},
			DefaultRole: string(permission.RoleCustomer),
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Account.Roles = append([]string(nil), cfg.Account.Roles...)
	return out
}

/*
====================================
LOADING
====================================
*/

// LoadConfig starts from [DefaultConfig], overlays the YAML file at path when path is
// non-empty, applies GOSESSION_* environment overrides, and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Engine cannot run with. A missing signing key
// yields [ErrMissingSigningKey].
func (c *Config) Validate() error {
	// Token
	if strings.TrimSpace(c.Token.SigningKey) == "" {
		return ErrMissingSigningKey
	}
	if len(c.Token.SigningKey) < 32 {
		return errors.New("Token SigningKey must be at least 32 bytes")
	}
	if strings.TrimSpace(c.Token.Issuer) == "" {
		return errors.New("Token Issuer is required")
	}
	if strings.TrimSpace(c.Token.Audience) == "" {
		return errors.New("Token Audience is required")
	}
	if c.Token.TTL < time.Second {
		return errors.New("Token TTL must be >= 1s")
	}
	if c.Token.RenewWindow < 0 {
		return errors.New("Token RenewWindow must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength != 0 && c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// Security
	if c.Security.EnableLoginThrottle || c.Security.EnableIPThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0 when login throttle is enabled")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0 when login throttle is enabled")
		}
	}
	if c.Security.EnableRenewThrottle {
		if c.Security.MaxRenewAttempts <= 0 {
			return errors.New("MaxRenewAttempts must be > 0 when renew throttle is enabled")
		}
		if c.Security.RenewCooldownDuration <= 0 {
			return errors.New("RenewCooldownDuration must be > 0 when renew throttle is enabled")
		}
	}

	// Account
	if len(c.Account.Roles) == 0 {
		return errors.New("Account Roles must name at least one role")
	}
	registry, err := permission.NewRegistryFromNames(c.Account.Roles)
	if err != nil {
		return fmt.Errorf("Account Roles: %w", err)
	}
	if c.Account.Enabled {
		role, err := permission.ParseRole(c.Account.DefaultRole)
		if err != nil || !registry.Allows(role) {
			return errors.New("Account DefaultRole must be one of Account Roles")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
