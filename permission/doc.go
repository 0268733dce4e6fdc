// Package permission holds the closed role enumeration carried in session tokens and the
// registry that validates role sets at issuance time.
//
// # Roles
//
// Only [RoleAdmin] and [RoleCustomer] exist. A [Registry] may narrow the allowed set at
// startup; it can never widen it, and it is frozen before first use.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. The jwt issuer and the
// goSession engine consult it; HTTP middleware uses [Role] for route requirements.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import goSession, jwt, or middleware.
//   - Accept role names outside the closed enumeration.
package permission
