// Package rate implements the Redis fixed-window counters behind login and renewal
// throttling.
//
// # Window semantics
//
// INCR + EXPIRE on first hit. Key layout under the configured prefix:
//   - <prefix>:al:<email>   failed logins per email
//   - <prefix>:ali:<ip>     failed logins per client IP
//   - <prefix>:ar:<subject> renewals per subject
//
// # What this package must NOT do
//
//   - Decide what a throttle denial means for the caller (the Engine maps it).
//   - Be imported outside the goSession module.
package rate
