package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins that issued a token."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins rejected for bad credentials or input."},
	{ID: goSession.MetricLoginRateLimited, Name: "gosession_login_rate_limited_total", Help: "Logins denied by the throttle."},
	{ID: goSession.MetricRenewSuccess, Name: "gosession_renew_success_total", Help: "Renewals that issued a token."},
	{ID: goSession.MetricRenewFailure, Name: "gosession_renew_failure_total", Help: "Rejected renewals."},
	{ID: goSession.MetricRenewIdentityMismatch, Name: "gosession_renew_identity_mismatch_total", Help: "Renewals naming a different identity than the token."},
	{ID: goSession.MetricRenewIdentityNotFound, Name: "gosession_renew_identity_not_found_total", Help: "Renewals for identities that no longer exist."},
	{ID: goSession.MetricRenewRateLimited, Name: "gosession_renew_rate_limited_total", Help: "Renewals denied by the throttle."},
	{ID: goSession.MetricValidateFailure, Name: "gosession_validate_failure_total", Help: "Rejected bearer tokens."},
	{ID: goSession.MetricAccessForbidden, Name: "gosession_access_forbidden_total", Help: "Authenticated requests refused for missing roles."},
	{ID: goSession.MetricRateLimitHit, Name: "gosession_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: goSession.MetricAccountCreationSuccess, Name: "gosession_account_creation_success_total", Help: "Successful registrations."},
	{ID: goSession.MetricAccountCreationDuplicate, Name: "gosession_account_creation_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: goSession.MetricAccountCreationRejected, Name: "gosession_account_creation_rejected_total", Help: "Registrations failing validation or password policy."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "Validate latency histogram."},
}

// AuditDroppedName is the counter for events the audit dispatcher discarded.
const AuditDroppedName = "gosession_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events that never reached the sink, by event type."

// AuditEventLabel carries the event type on AuditDroppedName samples.
const AuditEventLabel = "event_type"

// HistogramBounds are the upper bounds, in seconds, of the engine buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling the rest.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
