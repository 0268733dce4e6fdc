package goSession

import "time"

// LintWarning flags a configuration that is valid but risky.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the ordered result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that pass [Config.Validate] but weaken the session model.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings

	if c.Token.TTL > time.Hour {
		ws = append(ws, LintWarning{Code: "token_ttl_long", Message: "token TTL above 1h widens the window for stolen tokens"})
	}
	if c.Token.RenewWindow == 0 {
		ws = append(ws, LintWarning{Code: "renew_window_unbounded", Message: "tokens can be renewed arbitrarily long after expiry"})
	} else if c.Token.RenewWindow > 7*24*time.Hour {
		ws = append(ws, LintWarning{Code: "renew_window_long", Message: "renew window above 7d"})
	}
	if !c.Security.EnableLoginThrottle && !c.Security.EnableIPThrottle && !c.Security.EnableRenewThrottle {
		ws = append(ws, LintWarning{Code: "rate_limits_disabled", Message: "every throttle is disabled"})
	}
	if c.Security.EnableLoginThrottle && !c.Security.EnableIPThrottle {
		ws = append(ws, LintWarning{Code: "ip_throttle_disabled", Message: "login throttling is keyed on email only"})
	}
	if c.Password.Memory < 64*1024 || c.Password.Time < 2 {
		ws = append(ws, LintWarning{Code: "password_cost_low", Message: "argon2 parameters below 64MiB / t=2"})
	}
	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{Code: "audit_disabled", Message: "security events are not recorded"})
	}

	return ws
}
