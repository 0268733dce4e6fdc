package password

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultPolicyAcceptsCompliantPasswords(t *testing.T) {
	p := DefaultPolicy()
	for _, pw := range []string{"abc@12", "Pa$$w0rd", "x1!yyyyyyyyyyyyy"} {
		if err := p.Check(pw); err != nil {
			t.Fatalf("Check(%q) = %v", pw, err)
		}
	}
}

func TestDefaultPolicyReportsEveryViolation(t *testing.T) {
	err := DefaultPolicy().Check("abc")
	if !errors.Is(err, ErrPolicy) {
		t.Fatalf("expected ErrPolicy, got %v", err)
	}

	var pe *PolicyError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PolicyError, got %T", err)
	}
	if len(pe.Violations) != 3 {
		t.Fatalf("expected length, digit and special violations, got %v", pe.Violations)
	}
}

func TestDefaultPolicyBounds(t *testing.T) {
	p := DefaultPolicy()

	if err := p.Check("a1@" + strings.Repeat("z", 14)); err == nil {
		t.Fatal("17 characters should exceed the maximum")
	}
	if err := p.Check("a1@" + strings.Repeat("z", 13)); err != nil {
		t.Fatalf("16 characters should be accepted: %v", err)
	}
	if err := p.Check("abc123#"); err == nil {
		t.Fatal("'#' is not an accepted special character")
	}
}
