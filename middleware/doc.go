// Package middleware exposes the HTTP token validator: [Guard] authenticates the
// bearer token and [RequireRole] enforces a role set after it.
//
// # Responses
//
// Guard answers 401 and RequireRole answers 403, both with the standard
// {success, data, error} envelope. The wrapped handler is not called on failure.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself; every decision is delegated to Engine.Validate and
// Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Renew tokens. A 401 is the client's cue to call the renewal endpoint.
//   - Consult the identity directory. Roles come from the token.
package middleware
