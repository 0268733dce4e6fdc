package client

import (
	"context"
	"log/slog"
	"net/http"
)

// AlertLevel ranks user-visible alerts.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertError
)

func (l AlertLevel) String() string {
	switch l {
	case AlertInfo:
		return "info"
	case AlertWarning:
		return "warning"
	default:
		return "error"
	}
}

// Signals lets the host application react to session events, typically by
// navigating to a login screen or showing a notification. Methods may be called
// from any goroutine and must not block.
type Signals interface {
	// SessionExpired reports that the session was cleared by the client and the
	// user must log in again. It fires once per cleared session.
	SessionExpired(err error)
	// PermissionDenied reports a 403 for req.
	PermissionDenied(req *http.Request)
	// Alert reports a user-visible failure such as a 5xx or a network error.
	Alert(level AlertLevel, message string)
}

// NopSignals ignores every signal.
type NopSignals struct{}

func (NopSignals) SessionExpired(error)           {}
func (NopSignals) PermissionDenied(*http.Request) {}
func (NopSignals) Alert(AlertLevel, string)       {}

// LogSignals writes every signal to a logger.
type LogSignals struct {
	Logger *slog.Logger
}

func (s LogSignals) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s LogSignals) SessionExpired(err error) {
	s.logger().Warn("session expired, login required", "error", err)
}

func (s LogSignals) PermissionDenied(req *http.Request) {
	s.logger().Warn("permission denied", "method", req.Method, "path", req.URL.Path)
}

func (s LogSignals) Alert(level AlertLevel, message string) {
	lvl := slog.LevelError
	switch level {
	case AlertInfo:
		lvl = slog.LevelInfo
	case AlertWarning:
		lvl = slog.LevelWarn
	}
	s.logger().Log(context.Background(), lvl, message)
}
