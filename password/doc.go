// Package password implements Argon2id hashing and the composition policy applied to
// newly registered passwords.
//
// Verification reads cost parameters from the stored hash, so raising the
// configured cost does not invalidate existing accounts. [Policy] applies at
// registration only; login compares against stored hashes.
//
// This package never stores passwords and imports no other goSession package.
package password
