package permission

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseRoleIsCaseInsensitive(t *testing.T) {
	for _, in := range []string{"admin", "ADMIN", " Admin "} {
		r, err := ParseRole(in)
		if err != nil || r != RoleAdmin {
			t.Fatalf("ParseRole(%q) = %q, %v", in, r, err)
		}
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRegistryRejectsRegistrationAfterFreeze(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("Customer"); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.Freeze()
	if err := r.Register("Admin"); err == nil {
		t.Fatal("expected frozen registry to reject registration")
	}
	if err := r.Register("superuser"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRegistryNormalize(t *testing.T) {
	r, err := NewRegistryFromNames([]string{"Admin", "Customer"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	got, err := r.Normalize([]string{"customer", "Customer", "ADMIN"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if want := []string{"Customer", "Admin"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	if _, err := r.Normalize(nil); err == nil {
		t.Fatal("expected empty role set to fail")
	}
	if _, err := r.Normalize([]string{"Customer", "Owner"}); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRegistryNormalizeRejectsDisabledRole(t *testing.T) {
	r, err := NewRegistryFromNames([]string{"Customer"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if _, err := r.Normalize([]string{"Admin"}); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected disabled role to be rejected, got %v", err)
	}
}

func TestPrimaryAndHasAny(t *testing.T) {
	if got := Primary([]string{"Customer", "Admin"}); got != RoleAdmin {
		t.Fatalf("Primary = %q", got)
	}
	if got := Primary([]string{"nope"}); got != "" {
		t.Fatalf("Primary of unknown = %q", got)
	}
	if !HasAny([]string{"customer"}, RoleAdmin, RoleCustomer) {
		t.Fatal("expected customer to match")
	}
	if HasAny([]string{"Customer"}, RoleAdmin) {
		t.Fatal("customer must not satisfy admin")
	}
}
