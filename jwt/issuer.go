package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/permission"
	"github.com/google/uuid"
)

// Issuer builds fresh claim sets and signs them with a [Manager]. Every call to
// [Issuer.Issue] produces a new token id, so renewals never reuse one.
type Issuer struct {
	manager *Manager
	roles   *permission.Registry
	ttl     time.Duration
	newID   func() string
}

// NewIssuer returns an [Issuer] that signs tokens valid for ttl. roles must be frozen.
func NewIssuer(manager *Manager, roles *permission.Registry, ttl time.Duration) (*Issuer, error) {
	if manager == nil {
		return nil, errors.New("issuer requires a manager")
	}
	if roles == nil || !roles.Frozen() {
		return nil, errors.New("issuer requires a frozen role registry")
	}
	if ttl < time.Second {
		return nil, errors.New("invalid TTL configuration")
	}
	return &Issuer{manager: manager, roles: roles, ttl: ttl, newID: uuid.NewString}, nil
}

// Issue signs a token for subject carrying roles. roles must be non-empty and every
// entry must belong to the registry.
func (i *Issuer) Issue(subject string, roles []string) (Token, error) {
	if subject == "" {
		return Token{}, ErrInvalidSubject
	}
	normalized, err := i.roles.Normalize(roles)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrInvalidRoles, err)
	}

	return i.manager.Sign(ClaimSet{
		Subject: subject,
		Roles:   normalized,
		TokenID: i.newID(),
	}, i.ttl)
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
