package identity_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/identity"
)

func providers(t *testing.T) map[string]goSession.IdentityProvider {
	t.Helper()

	sq, err := identity.OpenSQLite(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]goSession.IdentityProvider{
		"memory": identity.NewMemoryProvider(),
		"sqlite": sq,
	}
}

func TestProviderCreateAndLookup(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := p.CreateIdentity(ctx, goSession.CreateIdentityInput{
				Email:        "Alice@Example.com",
				FullName:     "Alice",
				PasswordHash: "hash",
				Roles:        []string{"Customer"},
			})
			if err != nil {
				t.Fatalf("CreateIdentity failed: %v", err)
			}
			if created.ID == "" {
				t.Fatal("expected generated id")
			}

			byEmail, err := p.GetIdentityByEmail(ctx, "alice@example.COM")
			if err != nil {
				t.Fatalf("GetIdentityByEmail failed: %v", err)
			}
			if byEmail.ID != created.ID || byEmail.Email != "Alice@Example.com" {
				t.Fatalf("unexpected record: %+v", byEmail)
			}

			byID, err := p.GetIdentityByID(ctx, created.ID)
			if err != nil {
				t.Fatalf("GetIdentityByID failed: %v", err)
			}
			if byID.FullName != "Alice" || byID.PasswordHash != "hash" {
				t.Fatalf("unexpected record: %+v", byID)
			}
			if len(byID.Roles) != 1 || byID.Roles[0] != "Customer" {
				t.Fatalf("unexpected roles: %v", byID.Roles)
			}
		})
	}
}

func TestProviderDuplicateEmail(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := goSession.CreateIdentityInput{Email: "bob@example.com", FullName: "Bob", PasswordHash: "h", Roles: []string{"Customer"}}

			if _, err := p.CreateIdentity(ctx, in); err != nil {
				t.Fatalf("first CreateIdentity failed: %v", err)
			}
			in.Email = "BOB@example.com"
			if _, err := p.CreateIdentity(ctx, in); !errors.Is(err, goSession.ErrIdentityExists) {
				t.Fatalf("expected ErrIdentityExists, got %v", err)
			}
		})
	}
}

func TestProviderNotFound(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := p.GetIdentityByEmail(ctx, "nobody@example.com"); !errors.Is(err, goSession.ErrIdentityNotFound) {
				t.Fatalf("expected ErrIdentityNotFound by email, got %v", err)
			}
			if _, err := p.GetIdentityByID(ctx, "missing"); !errors.Is(err, goSession.ErrIdentityNotFound) {
				t.Fatalf("expected ErrIdentityNotFound by id, got %v", err)
			}
		})
	}
}

func TestMemoryProviderConcurrentCreateSameEmail(t *testing.T) {
	p := identity.NewMemoryProvider()
	ctx := context.Background()

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.CreateIdentity(ctx, goSession.CreateIdentityInput{Email: "race@example.com", FullName: "R", PasswordHash: "h", Roles: []string{"Customer"}})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly one successful create, got %d", success)
	}
}

func TestMemoryProviderSetRolesAndDelete(t *testing.T) {
	p := identity.NewMemoryProvider()
	ctx := context.Background()

	rec, err := p.CreateIdentity(ctx, goSession.CreateIdentityInput{Email: "c@example.com", FullName: "C", PasswordHash: "h", Roles: []string{"Customer"}})
	if err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}
	if err := p.SetRoles(rec.ID, "Admin"); err != nil {
		t.Fatalf("SetRoles failed: %v", err)
	}
	got, _ := p.GetIdentityByID(ctx, rec.ID)
	if len(got.Roles) != 1 || got.Roles[0] != "Admin" {
		t.Fatalf("expected Admin role, got %v", got.Roles)
	}

	p.Delete(rec.ID)
	if _, err := p.GetIdentityByEmail(ctx, "c@example.com"); !errors.Is(err, goSession.ErrIdentityNotFound) {
		t.Fatalf("expected deleted identity to be gone, got %v", err)
	}
}

func TestSQLiteProviderSetRoles(t *testing.T) {
	p, err := identity.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	rec, err := p.CreateIdentity(ctx, goSession.CreateIdentityInput{Email: "d@example.com", FullName: "D", PasswordHash: "h", Roles: []string{"Customer"}})
	if err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}
	if err := p.SetRoles(ctx, rec.ID, "Admin", "Customer"); err != nil {
		t.Fatalf("SetRoles failed: %v", err)
	}
	got, err := p.GetIdentityByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetIdentityByID failed: %v", err)
	}
	if len(got.Roles) != 2 {
		t.Fatalf("expected two roles, got %v", got.Roles)
	}
	if err := p.SetRoles(ctx, "missing", "Admin"); !errors.Is(err, goSession.ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}
