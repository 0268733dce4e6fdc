package permission

import (
	"errors"
	"fmt"
	"sync"
)

// Registry is the set of roles a deployment allows in issued tokens.
// Register roles during initialization, then call [Registry.Freeze].
type Registry struct {
	mu      sync.RWMutex
	allowed map[Role]struct{}
	order   []Role
	frozen  bool
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{allowed: make(map[Role]struct{})}
}

// NewRegistryFromNames registers every name and freezes the result.
func NewRegistryFromNames(names []string) (*Registry, error) {
	r := NewRegistry()
	for _, name := range names {
		if err := r.Register(name); err != nil {
			return nil, err
		}
	}
	if r.Count() == 0 {
		return nil, errors.New("role registry is empty")
	}
	r.Freeze()
	return r, nil
}

// Register adds a role from the closed enumeration. Must be called before
// [Registry.Freeze].
func (r *Registry) Register(name string) error {
	role, err := ParseRole(name)
	if err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	if _, exists := r.allowed[role]; exists {
		return errors.New("role already registered")
	}

	r.allowed[role] = struct{}{}
	r.order = append(r.order, role)
	return nil
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether [Registry.Freeze] has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Allows reports whether role is registered.
func (r *Registry) Allows(role Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.allowed[role]
	return ok
}

// Count returns the number of registered roles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Roles returns the registered roles in registration order.
func (r *Registry) Roles() []Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Role, len(r.order))
	copy(out, r.order)
	return out
}

// Normalize validates a role set for issuance and returns canonical, de-duplicated
// names. An empty set or any unknown or unregistered name is rejected.
func (r *Registry) Normalize(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, errors.New("role set is empty")
	}

	seen := make(map[Role]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		role, err := ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, name)
		}
		if !r.Allows(role) {
			return nil, fmt.Errorf("%w: %q is not enabled", ErrUnknownRole, name)
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, string(role))
	}
	return out, nil
}
