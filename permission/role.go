package permission

import (
	"errors"
	"strings"
)

// Role is one member of the closed role enumeration.
type Role string

const (
	// RoleAdmin grants administrative access.
	RoleAdmin Role = "Admin"
	// RoleCustomer is assigned to every self-registered identity.
	RoleCustomer Role = "Customer"
)

// ErrUnknownRole is returned for names outside the closed enumeration.
var ErrUnknownRole = errors.New("unknown role")

var knownRoles = []Role{RoleAdmin, RoleCustomer}

// ParseRole maps a role name to its canonical [Role]. Matching ignores case and
// surrounding whitespace.
func ParseRole(name string) (Role, error) {
	trimmed := strings.TrimSpace(name)
	for _, r := range knownRoles {
		if strings.EqualFold(trimmed, string(r)) {
			return r, nil
		}
	}
	return "", ErrUnknownRole
}

// String returns the canonical role name.
func (r Role) String() string {
	return string(r)
}

// rank orders roles for Primary; lower is more privileged.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 0
	case RoleCustomer:
		return 1
	default:
		return len(knownRoles)
	}
}

// Primary returns the most privileged known role in names, or "" when none parse.
func Primary(names []string) Role {
	var best Role
	for _, name := range names {
		r, err := ParseRole(name)
		if err != nil {
			continue
		}
		if best == "" || r.rank() < best.rank() {
			best = r
		}
	}
	return best
}

// HasAny reports whether names contains at least one of want.
func HasAny(names []string, want ...Role) bool {
	for _, name := range names {
		r, err := ParseRole(name)
		if err != nil {
			continue
		}
		for _, w := range want {
			if r == w {
				return true
			}
		}
	}
	return false
}
