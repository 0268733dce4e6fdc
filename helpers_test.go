package goSession

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

type mockProvider struct {
	mu      sync.Mutex
	byID    map[string]IdentityRecord
	byEmail map[string]string

	getErr    error
	createErr error

	getByEmailCalls int
	getByIDCalls    int
	createCalls     int
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		byID:    map[string]IdentityRecord{},
		byEmail: map[string]string{},
	}
}

func (m *mockProvider) add(rec IdentityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[rec.ID] = rec
	m.byEmail[strings.ToLower(rec.Email)] = rec.ID
}

func (m *mockProvider) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.byID[id]
	delete(m.byEmail, strings.ToLower(rec.Email))
	delete(m.byID, id)
}

func (m *mockProvider) GetIdentityByEmail(_ context.Context, email string) (IdentityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByEmailCalls++

	if m.getErr != nil {
		return IdentityRecord{}, m.getErr
	}
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return IdentityRecord{}, ErrIdentityNotFound
	}
	return m.byID[id], nil
}

func (m *mockProvider) GetIdentityByID(_ context.Context, id string) (IdentityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIDCalls++

	if m.getErr != nil {
		return IdentityRecord{}, m.getErr
	}
	rec, ok := m.byID[id]
	if !ok {
		return IdentityRecord{}, ErrIdentityNotFound
	}
	return rec, nil
}

func (m *mockProvider) CreateIdentity(_ context.Context, in CreateIdentityInput) (IdentityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return IdentityRecord{}, m.createErr
	}
	if _, ok := m.byEmail[strings.ToLower(in.Email)]; ok {
		return IdentityRecord{}, ErrIdentityExists
	}
	rec := IdentityRecord{
		ID:           uuid.NewString(),
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
		Roles:        in.Roles,
		CreatedAt:    time.Now(),
	}
	m.byID[rec.ID] = rec
	m.byEmail[strings.ToLower(rec.Email)] = rec.ID
	return rec, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.SigningKey = testSigningKey
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()

	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// seedIdentity stores an account whose password is pw.
func seedIdentity(t *testing.T, p *mockProvider, id, email, pw string, roles ...string) IdentityRecord {
	t.Helper()

	hash, err := newTestHasher(t).Hash(pw)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	rec := IdentityRecord{ID: id, Email: email, FullName: "Test " + id, PasswordHash: hash, Roles: roles}
	p.add(rec)
	return rec
}

type testEngineOptions struct {
	redis *redis.Client
	sink  AuditSink
	clock *testClock
}

func buildTestEngine(t *testing.T, cfg Config, p IdentityProvider, opts testEngineOptions) *Engine {
	t.Helper()

	b := New().WithConfig(cfg).WithIdentityProvider(p)
	if opts.redis != nil {
		b.WithRedis(opts.redis)
	}
	if opts.sink != nil {
		b.WithAuditSink(opts.sink)
	}
	if opts.clock != nil {
		b.WithClock(opts.clock.Now)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
