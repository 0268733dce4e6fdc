package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/google/uuid"
)

// MemoryProvider is a concurrency-safe in-memory identity directory.
type MemoryProvider struct {
	mu      sync.RWMutex
	byID    map[string]goSession.IdentityRecord
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryProvider returns an empty directory.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		byID:    make(map[string]goSession.IdentityRecord),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// GetIdentityByEmail implements [goSession.IdentityProvider].
func (p *MemoryProvider) GetIdentityByEmail(_ context.Context, email string) (goSession.IdentityRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byEmail[emailKey(email)]
	if !ok {
		return goSession.IdentityRecord{}, goSession.ErrIdentityNotFound
	}
	return cloneRecord(p.byID[id]), nil
}

// GetIdentityByID implements [goSession.IdentityProvider].
func (p *MemoryProvider) GetIdentityByID(_ context.Context, id string) (goSession.IdentityRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.byID[id]
	if !ok {
		return goSession.IdentityRecord{}, goSession.ErrIdentityNotFound
	}
	return cloneRecord(rec), nil
}

// CreateIdentity implements [goSession.IdentityProvider].
func (p *MemoryProvider) CreateIdentity(_ context.Context, in goSession.CreateIdentityInput) (goSession.IdentityRecord, error) {
	key := emailKey(in.Email)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[key]; exists {
		return goSession.IdentityRecord{}, goSession.ErrIdentityExists
	}

	rec := goSession.IdentityRecord{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(in.Email),
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
		Roles:        append([]string(nil), in.Roles...),
		CreatedAt:    p.now().UTC(),
	}
	p.byID[rec.ID] = rec
	p.byEmail[key] = rec.ID

	return cloneRecord(rec), nil
}

// SetRoles replaces the roles of id. The change applies at the next login or renewal.
func (p *MemoryProvider) SetRoles(id string, roles ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.byID[id]
	if !ok {
		return goSession.ErrIdentityNotFound
	}
	rec.Roles = append([]string(nil), roles...)
	p.byID[id] = rec
	return nil
}

// Delete removes id. Tokens already issued for it stay valid until expiry but can
// no longer be renewed.
func (p *MemoryProvider) Delete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.byID[id]
	if !ok {
		return
	}
	delete(p.byEmail, emailKey(rec.Email))
	delete(p.byID, id)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneRecord(rec goSession.IdentityRecord) goSession.IdentityRecord {
	rec.Roles = append([]string(nil), rec.Roles...)
	return rec
}
