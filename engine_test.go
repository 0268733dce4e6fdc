package goSession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/permission"
)

func TestBuildRequiresSigningKey(t *testing.T) {
	cfg := testConfig()
	cfg.Token.SigningKey = ""

	_, err := New().WithConfig(cfg).WithIdentityProvider(newMockProvider()).Build()
	if !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("expected ErrMissingSigningKey, got %v", err)
	}
}

func TestBuildRequiresProvider(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without identity provider")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithIdentityProvider(newMockProvider())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "a@b.c", "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Validate(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestLoginIssuesTokenWithRoles(t *testing.T) {
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Admin")
	engine := buildTestEngine(t, testConfig(), p, testEngineOptions{})

	tok, err := engine.Login(context.Background(), "Alice@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if tok.Token == "" || tok.Subject != "u1" || tok.TokenID == "" {
		t.Fatalf("unexpected issued token: %+v", tok)
	}
	if len(tok.Roles) != 1 || tok.Roles[0] != "Admin" {
		t.Fatalf("expected Admin role, got %v", tok.Roles)
	}

	res, err := engine.Validate(context.Background(), tok.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if res.Subject != "u1" || res.TokenID != tok.TokenID {
		t.Fatalf("unexpected auth result: %+v", res)
	}
	if got := engine.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("expected login success metric 1, got %d", got)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	engine := buildTestEngine(t, testConfig(), p, testEngineOptions{})

	if _, err := engine.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "nobody@example.com", "Secret1!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLoginMissingFields(t *testing.T) {
	engine := buildTestEngine(t, testConfig(), newMockProvider(), testEngineOptions{})

	_, err := engine.Login(context.Background(), "", "")
	var verr *ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ValidationError wrapping ErrInvalidRequest, got %v", err)
	}
}

func TestLoginProviderFailure(t *testing.T) {
	p := newMockProvider()
	p.getErr = errors.New("db down")
	engine := buildTestEngine(t, testConfig(), p, testEngineOptions{})

	if _, err := engine.Login(context.Background(), "a@example.com", "x"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	engine := buildTestEngine(t, cfg, p, testEngineOptions{redis: rdb})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := engine.Login(ctx, "alice@example.com", "wrong")
		if err == nil {
			t.Fatal("expected failure for wrong password")
		}
	}

	if _, err := engine.Login(ctx, "alice@example.com", "Secret1!"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricRateLimitHit]; got == 0 {
		t.Fatal("expected rate limit metric to be recorded")
	}
}

func TestLoginSuccessResetsThrottle(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	engine := buildTestEngine(t, cfg, p, testEngineOptions{redis: rdb})

	ctx := context.Background()
	_, _ = engine.Login(ctx, "alice@example.com", "wrong")
	if _, err := engine.Login(ctx, "alice@example.com", "Secret1!"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	_, _ = engine.Login(ctx, "alice@example.com", "wrong")
	if _, err := engine.Login(ctx, "alice@example.com", "Secret1!"); err != nil {
		t.Fatalf("expected throttle reset after success, got %v", err)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	clock := newTestClock()
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	cfg := testConfig()
	cfg.Token.TTL = time.Minute
	engine := buildTestEngine(t, cfg, p, testEngineOptions{clock: clock})

	tok, err := engine.Login(context.Background(), "alice@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	clock.Advance(time.Minute - time.Second)
	if _, err := engine.Validate(context.Background(), tok.Token); err != nil {
		t.Fatalf("expected token valid one second before expiry, got %v", err)
	}

	clock.Advance(time.Second)
	_, err = engine.Validate(context.Background(), tok.Token)
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, jwt.ErrExpired) {
		t.Fatalf("expected expired token at expires-at, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	engine := buildTestEngine(t, testConfig(), newMockProvider(), testEngineOptions{})

	for _, raw := range []string{"", "abc", "a.b.c"} {
		if _, err := engine.Validate(context.Background(), raw); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for %q, got %v", raw, err)
		}
	}
	if got := engine.MetricsSnapshot().Counters[MetricValidateFailure]; got != 3 {
		t.Fatalf("expected 3 validate failures, got %d", got)
	}
}

func TestValidateRejectsOtherKey(t *testing.T) {
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	engine := buildTestEngine(t, testConfig(), p, testEngineOptions{})

	otherCfg := testConfig()
	otherCfg.Token.SigningKey = "ffffffffffffffffffffffffffffffff"
	other := buildTestEngine(t, otherCfg, p, testEngineOptions{})

	tok, err := other.Login(context.Background(), "alice@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Validate(context.Background(), tok.Token); !errors.Is(err, jwt.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestRenewExpiredTokenIssuesFreshToken(t *testing.T) {
	clock := newTestClock()
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	cfg := testConfig()
	cfg.Token.TTL = time.Minute
	engine := buildTestEngine(t, cfg, p, testEngineOptions{clock: clock})

	tok, err := engine.Login(context.Background(), "alice@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	clock.Advance(2 * time.Minute)
	p.add(IdentityRecord{ID: "u1", Email: "alice@example.com", PasswordHash: "x", Roles: []string{"Admin"}})

	renewed, err := engine.Renew(context.Background(), tok.Token, "ALICE@example.com")
	if err != nil {
		t.Fatalf("Renew failed: %v", err)
	}
	if renewed.TokenID == tok.TokenID {
		t.Fatal("expected renewal to mint a new token id")
	}
	if renewed.Subject != "u1" {
		t.Fatalf("expected subject u1, got %s", renewed.Subject)
	}
	if len(renewed.Roles) != 1 || renewed.Roles[0] != "Admin" {
		t.Fatalf("expected roles re-derived from provider, got %v", renewed.Roles)
	}
	if _, err := engine.Validate(context.Background(), renewed.Token); err != nil {
		t.Fatalf("renewed token should validate: %v", err)
	}
}

func TestRenewBoundToEmbeddedIdentity(t *testing.T) {
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	seedIdentity(t, p, "u2", "mallory@example.com", "Secret2!", "Admin")
	engine := buildTestEngine(t, testConfig(), p, testEngineOptions{})

	tok, err := engine.Login(context.Background(), "alice@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err = engine.Renew(context.Background(), tok.Token, "mallory@example.com")
	if !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("expected ErrIdentityMismatch, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricRenewIdentityMismatch]; got != 1 {
		t.Fatalf("expected mismatch metric 1, got %d", got)
	}
}

func TestRenewFailures(t *testing.T) {
	clock := newTestClock()
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	cfg := testConfig()
	cfg.Token.TTL = time.Minute
	cfg.Token.RenewWindow = 10 * time.Minute
	engine := buildTestEngine(t, cfg, p, testEngineOptions{clock: clock})

	tok, err := engine.Login(context.Background(), "alice@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := engine.Renew(context.Background(), "garbage", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage, got %v", err)
	}

	p.remove("u1")
	if _, err := engine.Renew(context.Background(), tok.Token, ""); !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}

	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	clock.Advance(time.Minute + 10*time.Minute)
	if _, err := engine.Renew(context.Background(), tok.Token, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized past renew window, got %v", err)
	}
}

func TestRenewRateLimited(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.Security.MaxRenewAttempts = 2
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	engine := buildTestEngine(t, cfg, p, testEngineOptions{redis: rdb})

	tok, err := engine.Login(context.Background(), "alice@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := engine.Renew(context.Background(), tok.Token, ""); err != nil {
			t.Fatalf("Renew %d failed: %v", i, err)
		}
	}
	if _, err := engine.Renew(context.Background(), tok.Token, ""); !errors.Is(err, ErrRenewRateLimited) {
		t.Fatalf("expected ErrRenewRateLimited, got %v", err)
	}
}

func TestConcurrentRenewalsMintDistinctTokenIDs(t *testing.T) {
	p := newMockProvider()
	seedIdentity(t, p, "u1", "alice@example.com", "Secret1!", "Customer")
	engine := buildTestEngine(t, testConfig(), p, testEngineOptions{})

	tok, err := engine.Login(context.Background(), "alice@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	const workers = 16
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]struct{}{tok.TokenID: {}}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			renewed, err := engine.Renew(context.Background(), tok.Token, "")
			if err != nil {
				t.Errorf("Renew failed: %v", err)
				return
			}
			mu.Lock()
			ids[renewed.TokenID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != workers+1 {
		t.Fatalf("expected %d distinct token ids, got %d", workers+1, len(ids))
	}
}

func TestAuthorize(t *testing.T) {
	engine := buildTestEngine(t, testConfig(), newMockProvider(), testEngineOptions{})
	res := &AuthResult{Subject: "u1", Roles: []string{"Customer"}}

	if err := engine.Authorize(context.Background(), res); err != nil {
		t.Fatalf("expected no roles required to pass, got %v", err)
	}
	if err := engine.Authorize(context.Background(), res, permission.RoleCustomer); err != nil {
		t.Fatalf("expected Customer to pass, got %v", err)
	}
	if err := engine.Authorize(context.Background(), res, permission.RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := engine.Authorize(context.Background(), nil, permission.RoleAdmin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for nil result, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricAccessForbidden]; got != 1 {
		t.Fatalf("expected forbidden metric 1, got %d", got)
	}
}

func TestRegisterCreatesCustomer(t *testing.T) {
	p := newMockProvider()
	engine := buildTestEngine(t, testConfig(), p, testEngineOptions{})

	view, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "new@example.com",
		Password: "abc12$",
		FullName: "New User",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if view.Email != "new@example.com" || view.FullName != "New User" {
		t.Fatalf("unexpected view: %+v", view)
	}

	tok, err := engine.Login(context.Background(), "new@example.com", "abc12$")
	if err != nil {
		t.Fatalf("Login after Register failed: %v", err)
	}
	if len(tok.Roles) != 1 || tok.Roles[0] != "Customer" {
		t.Fatalf("expected Customer role, got %v", tok.Roles)
	}
}

func TestRegisterRejections(t *testing.T) {
	p := newMockProvider()
	seedIdentity(t, p, "u1", "taken@example.com", "Secret1!", "Customer")
	engine := buildTestEngine(t, testConfig(), p, testEngineOptions{})
	ctx := context.Background()

	_, err := engine.Register(ctx, RegisterRequest{Email: "bad", Password: "", FullName: ""})
	var verr *ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if len(verr.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %v", verr.Messages)
	}

	_, err = engine.Register(ctx, RegisterRequest{Email: "x@example.com", Password: "abcdef", FullName: "X"})
	if !errors.As(err, &verr) || !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected policy error, got %v", err)
	}
	if len(verr.Messages) != 2 {
		t.Fatalf("expected digit and special violations, got %v", verr.Messages)
	}

	_, err = engine.Register(ctx, RegisterRequest{Email: "TAKEN@example.com", Password: "abc12$", FullName: "T"})
	if !errors.Is(err, ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}
}

func TestRegisterDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Account.Enabled = false
	engine := buildTestEngine(t, cfg, newMockProvider(), testEngineOptions{})

	_, err := engine.Register(context.Background(), RegisterRequest{Email: "a@example.com", Password: "abc12$", FullName: "A"})
	if !errors.Is(err, ErrAccountCreationDisabled) {
		t.Fatalf("expected ErrAccountCreationDisabled, got %v", err)
	}
}

func TestValidateLatencyHistogram(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.EnableLatencyHistograms = true
	engine := buildTestEngine(t, cfg, newMockProvider(), testEngineOptions{})

	_, _ = engine.Validate(context.Background(), "x")

	var total uint64
	for _, v := range engine.MetricsSnapshot().Histograms[MetricValidateLatency] {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}
