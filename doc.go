// Package goSession issues, validates and renews short-lived HS256 session tokens.
//
// The package is designed for concurrent server workloads: Engine methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public server surface. It exposes [Engine], [Builder], [Config], the
// sentinel errors and the [Response] envelope. Flow orchestration, throttling and audit
// dispatch live under internal/. HTTP wiring lives in httpapi and middleware; the
// renewing HTTP client lives in client.
//
// # Renewal binding
//
// [Engine.Renew] re-issues a token only for the identity embedded in the token being
// renewed. An email in the request body is a consistency check, never a selector.
//
// # What this package must NOT do
//
//   - Expose Redis clients or internal stores in its public API.
//   - Keep per-token server state. Tokens are self-contained; Redis holds only
//     throttle counters.
//   - Import any sub-package that re-imports goSession (no import cycles).
package goSession
