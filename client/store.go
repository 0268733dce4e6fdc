package client

import (
	"context"
	"sync"
)

// Store persists session state across process restarts. Token, role and renewal
// count live in a short-lived slot; the identity hint lives in a durable one.
// Clear must remove all of them atomically.
type Store interface {
	Save(ctx context.Context, st State) error
	Load(ctx context.Context) (State, bool, error)
	Clear(ctx context.Context) error
}

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	ok    bool
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	m.ok = true
	return nil
}

func (m *MemoryStore) Load(context.Context) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.ok, nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
	m.ok = false
	return nil
}
