package goSession

import (
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is a structured record of a login, renewal, registration or
// authorization outcome.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs audit events through a [slog.Logger].
type SlogSink = internalaudit.SlogSink

// MultiSink delivers every audit event to each of its sinks in order.
type MultiSink = internalaudit.MultiSink

// NewChannelSink returns a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink returns a [SlogSink]. A nil logger uses slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// Audit event types emitted by the engine.
const (
	AuditLoginSuccess           = "login_success"
	AuditLoginFailure           = "login_failure"
	AuditLoginRateLimited       = "login_rate_limited"
	AuditRenewSuccess           = "renew_success"
	AuditRenewFailure           = "renew_failure"
	AuditRenewIdentityMismatch  = "renew_identity_mismatch"
	AuditRenewRateLimited       = "renew_rate_limited"
	AuditAccountCreated         = "account_created"
	AuditAccountCreationFailure = "account_creation_failure"
	AuditAccessForbidden        = "access_forbidden"
	AuditRateLimitTriggered     = "rate_limit_triggered"
)

// criticalAuditEvents are queued even when the audit buffer is full and
// AuditConfig.DropIfFull is set.
var criticalAuditEvents = []string{
	AuditRenewIdentityMismatch,
	AuditAccessForbidden,
	AuditRateLimitTriggered,
}
