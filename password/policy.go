package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultSpecialCharacters is the set a password must draw at least one character from.
const DefaultSpecialCharacters = "@$!%*?&"

// Policy describes the composition rules a new password must satisfy.
type Policy struct {
	MinLength int
	MaxLength int
	Specials  string
}

// DefaultPolicy returns 6 to 16 characters with at least one letter, one digit and
// one character from [DefaultSpecialCharacters].
func DefaultPolicy() Policy {
	return Policy{MinLength: 6, MaxLength: 16, Specials: DefaultSpecialCharacters}
}

// ErrPolicy is wrapped by every [PolicyError].
var ErrPolicy = errors.New("password does not satisfy policy")

// PolicyError lists every rule a candidate password broke.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password policy: " + strings.Join(e.Violations, "; ")
}

func (e *PolicyError) Unwrap() error {
	return ErrPolicy
}

// Check returns nil or a *PolicyError describing every violated rule.
func (p Policy) Check(candidate string) error {
	var violations []string

	length := len([]rune(candidate))
	if p.MinLength > 0 && length < p.MinLength {
		violations = append(violations, fmt.Sprintf("Password must be at least %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && length > p.MaxLength {
		violations = append(violations, fmt.Sprintf("Password must be at most %d characters", p.MaxLength))
	}

	var letter, digit, special bool
	for _, r := range candidate {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(p.Specials, r):
			special = true
		}
	}
	if !letter {
		violations = append(violations, "Password must contain at least one letter")
	}
	if !digit {
		violations = append(violations, "Password must contain at least one digit")
	}
	if p.Specials != "" && !special {
		violations = append(violations, "Password must contain at least one special character ("+p.Specials+")")
	}

	if len(violations) == 0 {
		return nil
	}
	return &PolicyError{Violations: violations}
}
