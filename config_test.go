package goSession

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults with key", mutate: func(c *Config) {}, wantValid: true},
		{name: "short key", mutate: func(c *Config) { c.Token.SigningKey = "short" }, wantValid: false},
		{name: "blank issuer", mutate: func(c *Config) { c.Token.Issuer = "  " }, wantValid: false},
		{name: "blank audience", mutate: func(c *Config) { c.Token.Audience = "" }, wantValid: false},
		{name: "sub-second ttl", mutate: func(c *Config) { c.Token.TTL = 500 * time.Millisecond }, wantValid: false},
		{name: "negative renew window", mutate: func(c *Config) { c.Token.RenewWindow = -time.Second }, wantValid: false},
		{name: "unbounded renew window", mutate: func(c *Config) { c.Token.RenewWindow = 0 }, wantValid: true},
		{name: "weak argon memory", mutate: func(c *Config) { c.Password.Memory = 1024 }, wantValid: false},
		{name: "max below min length", mutate: func(c *Config) { c.Password.MaxLength = 4 }, wantValid: false},
		{name: "login throttle without attempts", mutate: func(c *Config) { c.Security.MaxLoginAttempts = 0 }, wantValid: false},
		{name: "renew throttle without cooldown", mutate: func(c *Config) { c.Security.RenewCooldownDuration = 0 }, wantValid: false},
		{name: "throttles off ignore limits", mutate: func(c *Config) {
			c.Security.EnableLoginThrottle = false
			c.Security.EnableRenewThrottle = false
			c.Security.MaxLoginAttempts = 0
			c.Security.MaxRenewAttempts = 0
		}, wantValid: true},
		{name: "unknown role", mutate: func(c *Config) { c.Account.Roles = []string{"Admin", "Root"} }, wantValid: false},
		{name: "no roles", mutate: func(c *Config) { c.Account.Roles = nil }, wantValid: false},
		{name: "default role outside set", mutate: func(c *Config) { c.Account.Roles = []string{"Admin"} }, wantValid: false},
		{name: "default role ignored when registration disabled", mutate: func(c *Config) {
			c.Account.Enabled = false
			c.Account.Roles = []string{"Admin"}
		}, wantValid: true},
		{name: "audit without buffer", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigValidateMissingKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("expected ErrMissingSigningKey, got %v", err)
	}
}

func TestLoadConfigYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gosession.yaml")
	yaml := []byte(`
token:
  signing_key: "yaml-key-yaml-key-yaml-key-yaml-key"
  ttl: 5m
  renew_window: 30m
security:
  max_login_attempts: 3
account:
  roles: [Admin, Customer]
  default_role: Customer
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("GOSESSION_TOKEN_ISSUER", "env-issuer")
	t.Setenv("GOSESSION_SECURITY_MAX_RENEW_ATTEMPTS", "7")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Token.TTL != 5*time.Minute || cfg.Token.RenewWindow != 30*time.Minute {
		t.Fatalf("unexpected token durations: %+v", cfg.Token)
	}
	if cfg.Token.Issuer != "env-issuer" {
		t.Fatalf("expected env issuer override, got %q", cfg.Token.Issuer)
	}
	if cfg.Security.MaxLoginAttempts != 3 || cfg.Security.MaxRenewAttempts != 7 {
		t.Fatalf("unexpected security config: %+v", cfg.Security)
	}
	if cfg.Token.Audience != "gosession-api" {
		t.Fatalf("expected default audience kept, got %q", cfg.Token.Audience)
	}
}

func TestLoadConfigEnvOnly(t *testing.T) {
	t.Setenv("GOSESSION_TOKEN_SIGNING_KEY", testSigningKey)
	t.Setenv("GOSESSION_ACCOUNT_ROLES", "Customer")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !slices.Equal(cfg.Account.Roles, []string{"Customer"}) {
		t.Fatalf("expected roles from env, got %v", cfg.Account.Roles)
	}
}

func TestLoadConfigMissingKeyFails(t *testing.T) {
	if _, err := LoadConfig(""); !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("expected ErrMissingSigningKey, got %v", err)
	}
}

func TestBuildClonesConfig(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg).WithIdentityProvider(newMockProvider())
	cfg.Account.Roles[0] = "Root"

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("expected builder to hold its own copy, got %v", err)
	}
	engine.Close()
}

func TestConfigLint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.SigningKey = testSigningKey
	codes := cfg.Lint().Codes()
	if !slices.Contains(codes, "ip_throttle_disabled") || !slices.Contains(codes, "audit_disabled") {
		t.Fatalf("unexpected default lint codes: %v", codes)
	}
	if slices.Contains(codes, "password_cost_low") {
		t.Fatalf("defaults should not flag password cost: %v", codes)
	}

	cfg.Token.TTL = 2 * time.Hour
	cfg.Token.RenewWindow = 0
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableRenewThrottle = false
	codes = cfg.Lint().Codes()
	for _, want := range []string{"token_ttl_long", "renew_window_unbounded", "rate_limits_disabled"} {
		if !slices.Contains(codes, want) {
			t.Fatalf("expected lint code %s in %v", want, codes)
		}
	}
}
