// Package jwt signs and verifies HS256 session tokens and issues fresh claim sets
// with unique token identifiers.
//
// # Architecture boundaries
//
// [Manager] is the codec: it owns the symmetric key, issuer and audience, and maps
// every golang-jwt failure onto one of this package's sentinel errors. [Issuer]
// builds claim sets on top of a Manager and validates roles against a
// permission.Registry.
//
// # What this package must NOT do
//
//   - Look up identities or touch storage.
//   - Apply clock-skew leeway. A token is valid strictly before its expiry.
//   - Import goSession or middleware.
package jwt
