// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRenew, RunValidate, RunRegister) accepts a typed
// dependency struct and returns a result carrying a failure kind. The Engine maps
// failure kinds onto sentinel errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate the token codec, identity provider, password hasher and
// throttle. They do NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
