package client

import (
	"context"
	"sync"
)

// State is the persisted part of a session.
type State struct {
	Token        string
	Role         string
	RenewalCount int
	IdentityHint string
}

// Session is the single source of truth for the active token. Only Client.Login,
// Client.Logout and the Coordinator mutate it.
//
// Every login and every clear starts a new generation. Writes carrying an older
// generation are discarded, so a renewal that finishes after a logout cannot
// resurrect the session. Store writes happen under the session lock, so the
// persisted copy follows in-memory order.
type Session struct {
	mu         sync.RWMutex
	state      State
	active     bool
	generation uint64
	store      Store
}

// NewSession returns an empty session persisted to store. A nil store keeps state
// in memory only.
func NewSession(store Store) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{store: store}
}

// Restore loads a previously persisted session, if any.
func (s *Session) Restore(ctx context.Context) error {
	st, ok, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.state = State{}
	s.active = false
	if ok && st.Token != "" {
		s.state = st
		s.active = true
	}
	return nil
}

// Snapshot returns a copy of the current state, its generation, and whether a
// session is active.
func (s *Session) Snapshot() (State, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.generation, s.active
}

// Token returns the current token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Active reports whether a session exists.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Session) establish(ctx context.Context, token, role, identityHint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.state = State{Token: token, Role: role, IdentityHint: identityHint}
	s.active = true
	return s.store.Save(ctx, s.state)
}

// applyRenewal swaps prev for next, and the role for the one next carries, when
// the session is still the one the renewal started from.
func (s *Session) applyRenewal(ctx context.Context, generation uint64, prev, next, role string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.generation != generation || s.state.Token != prev {
		return false, nil
	}
	s.state.Token = next
	s.state.Role = role
	s.state.RenewalCount++
	return true, s.store.Save(ctx, s.state)
}

func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return s.store.Clear(ctx)
}

// clearIf clears the session only if generation is still current and active. It
// reports whether this call did the clearing.
func (s *Session) clearIf(ctx context.Context, generation uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.generation != generation {
		return false, nil
	}
	s.reset()
	return true, s.store.Clear(ctx)
}

// reset requires mu.
func (s *Session) reset() {
	s.generation++
	s.state = State{}
	s.active = false
}
