package password

import (
	"errors"
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func newFastHasher(t *testing.T) *Argon2 {
	t.Helper()
	h, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(Config{Memory: 16 * 1024, Time: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("abc12$")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=16384,t=2,p=2$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("abc12$", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = hasher.Verify("abc12%", hash)
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail, ok=%v err=%v", ok, err)
	}
}

func TestHashesAreSalted(t *testing.T) {
	hasher := newFastHasher(t)

	a, err := hasher.Hash("same-input1$")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := hasher.Hash("same-input1$")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyAcceptsOtherCostParameters(t *testing.T) {
	old, err := NewArgon2(Config{Memory: 9 * 1024, Time: 2, Parallelism: 1, SaltLength: 24, KeyLength: 24})
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	hash, err := old.Hash("legacy1$")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := newFastHasher(t).Verify("legacy1$", hash)
	if err != nil || !ok {
		t.Fatalf("hash parameters must come from the encoded string, ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	hasher := newFastHasher(t)
	valid, err := hasher.Hash("version-test1$")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := map[string]string{
		"not phc":         "not-a-phc-hash",
		"wrong algorithm": strings.Replace(valid, "$argon2id$", "$argon2i$", 1),
		"wrong version":   strings.Replace(valid, "$v=19$", "$v=18$", 1),
		"missing field":   valid[:strings.LastIndex(valid, "$")],
		"weak memory":     strings.Replace(valid, "m=8192", "m=1024", 1),
		"extra params":    strings.Replace(valid, "p=1", "p=1,x=2", 1),
		"bad salt":        strings.Replace(valid, "$m=8192,t=1,p=1$", "$m=8192,t=1,p=1$!!!!", 1),
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := hasher.Verify("version-test1$", encoded)
			if ok || !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("expected ErrMalformedHash, ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestHashEmptyPassword(t *testing.T) {
	if _, err := newFastHasher(t).Hash(""); err == nil {
		t.Fatal("expected empty password hash to fail")
	}
}

func TestHashTooLongPasswordRejected(t *testing.T) {
	hasher := newFastHasher(t)

	if _, err := hasher.Hash(strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("b", MaxPasswordBytes)); err != nil {
		t.Fatalf("expected password of exactly %d bytes to be accepted: %v", MaxPasswordBytes, err)
	}
}

func TestVerifyTooLongPasswordFailsClosed(t *testing.T) {
	hasher := newFastHasher(t)
	hash, err := hasher.Hash("abc@123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := hasher.Verify(strings.Repeat("c", MaxPasswordBytes+1), hash)
	if err != nil || ok {
		t.Fatalf("expected oversized input to fail verification, ok=%v err=%v", ok, err)
	}
}

func TestShortPasswordsHashUnderPolicyOwnership(t *testing.T) {
	hasher := newFastHasher(t)

	hash, err := hasher.Hash("a1@")
	if err != nil {
		t.Fatalf("Hash should leave length rules to Policy: %v", err)
	}
	ok, err := hasher.Verify("a1@", hash)
	if err != nil || !ok {
		t.Fatalf("Verify failed: ok=%v err=%v", ok, err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	mutations := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
	}
	for name, mutate := range mutations {
		cfg := fastConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("expected weak %s to be rejected", name)
		}
	}
}
