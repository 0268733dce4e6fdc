// Package identity provides [goSession.IdentityProvider] implementations: an
// in-memory directory for tests and tooling, and a SQLite directory for the
// server binary.
//
// Both treat emails case-insensitively and assign uuid identifiers on creation.
package identity
