package jwt

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the minimum HS256 key size accepted by [NewManager].
const MinKeyLength = 32

// Config fixes the key material and claim expectations of a [Manager].
type Config struct {
	SigningKey []byte
	Issuer     string
	Audience   string

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// ClaimSet is the identity and authorization payload of a session token.
type ClaimSet struct {
	Subject  string
	Roles    []string
	TokenID  string
	Issuer   string
	Audience string
}

// Token is a signed, encoded session token together with its decoded parts.
type Token struct {
	Claims    ClaimSet
	IssuedAt  time.Time
	ExpiresAt time.Time
	Signature string
	Raw       string
}

// Manager signs and verifies session tokens. It is immutable after construction
// and safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

type sessionClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a [Manager]. A missing or short key is an error.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("hs256 requires a signing key")
	}
	if len(cfg.SigningKey) < MinKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes", MinKeyLength)
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience is required")
	}

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)
	cfg.SigningKey = key

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// Sign encodes claims with expires-at = now + ttl. The configured issuer and audience
// always replace whatever the caller put in claims.
func (m *Manager) Sign(claims ClaimSet, ttl time.Duration) (Token, error) {
	if ttl < time.Second {
		return Token{}, errors.New("ttl must be at least one second")
	}
	if claims.Subject == "" {
		return Token{}, ErrInvalidSubject
	}

	now := m.now()
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(ttl))

	payload := sessionClaims{
		Roles: slices.Clone(claims.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        claims.TokenID,
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	raw, err := tok.SignedString(m.config.SigningKey)
	if err != nil {
		return Token{}, err
	}

	claims.Roles = payload.Roles
	claims.Issuer = m.config.Issuer
	claims.Audience = m.config.Audience

	return Token{
		Claims:    claims,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
		Signature: signaturePart(raw),
		Raw:       raw,
	}, nil
}

// Verify checks signature, issuer, audience and expiry, in that order of precedence.
// A token presented at exactly its expiry fails with [ErrExpired].
func (m *Manager) Verify(raw string) (ClaimSet, error) {
	tok, err := m.VerifyToken(raw)
	if err != nil {
		return ClaimSet{}, err
	}
	return tok.Claims, nil
}

// VerifyToken is [Manager.Verify] returning the full [Token].
func (m *Manager) VerifyToken(raw string) (Token, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &sessionClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, m.keyFunc); err != nil {
		return Token{}, classify(err)
	}
	return toToken(raw, claims)
}

// VerifyAllowExpired applies every check of [Manager.Verify] except expiry. A token
// whose expiry passed more than window ago is still rejected with [ErrExpired];
// window 0 removes that bound.
func (m *Manager) VerifyAllowExpired(raw string, window time.Duration) (Token, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &sessionClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, m.keyFunc); err != nil {
		return Token{}, classify(err)
	}
	if claims.Issuer != m.config.Issuer {
		return Token{}, ErrIssuerMismatch
	}
	if !slices.Contains(claims.Audience, m.config.Audience) {
		return Token{}, ErrAudienceMismatch
	}
	if claims.ExpiresAt == nil {
		return Token{}, ErrMalformed
	}
	if window > 0 && !m.now().Before(claims.ExpiresAt.Add(window)) {
		return Token{}, ErrExpired
	}
	return toToken(raw, claims)
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	return m.config.SigningKey, nil
}

// PeekClaims decodes a token without verifying it. Clients use it to read the roles
// of a token they were just handed; servers must never trust its result.
func PeekClaims(raw string) (ClaimSet, error) {
	claims := &sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return ClaimSet{}, ErrMalformed
	}
	return claimSetOf(claims), nil
}

func toToken(raw string, claims *sessionClaims) (Token, error) {
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Token{}, ErrMalformed
	}
	tok := Token{
		Claims:    claimSetOf(claims),
		ExpiresAt: claims.ExpiresAt.Time,
		Signature: signaturePart(raw),
		Raw:       raw,
	}
	if claims.IssuedAt != nil {
		tok.IssuedAt = claims.IssuedAt.Time
	}
	return tok, nil
}

func claimSetOf(claims *sessionClaims) ClaimSet {
	cs := ClaimSet{
		Subject: claims.Subject,
		Roles:   claims.Roles,
		TokenID: claims.ID,
		Issuer:  claims.Issuer,
	}
	if len(claims.Audience) > 0 {
		cs.Audience = claims.Audience[0]
	}
	return cs
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudienceMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}

func signaturePart(raw string) string {
	for i := len(raw) - 1; i >= 0; i-- {
		if raw[i] == '.' {
			return raw[i+1:]
		}
	}
	return ""
}
