// Package client is the consumer side of the session protocol.
//
// A [Client] owns one [Session] shared by every goroutine issuing requests.
// Requests go through [Transport], which attaches the bearer token and, on a 401,
// hands the failure to the [Coordinator]. The Coordinator runs at most one renewal
// at a time: the first 401 starts it, later ones queue behind it and are released
// in FIFO order with the renewed token. Each request is replayed at most once.
//
// A session may be renewed at most RenewalLimit times (default 1). When the limit
// is reached, or a renewal fails, the session is cleared and
// [Signals.SessionExpired] tells the host to send the user back to login.
//
// A 403 never triggers renewal; it raises [Signals.PermissionDenied] instead.
package client
