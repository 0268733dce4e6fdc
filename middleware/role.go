package middleware

import (
	"context"
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/permission"
)

// Authorizer is the subset of [goSession.Engine] used by [RequireRole].
type Authorizer interface {
	Authorize(ctx context.Context, result *goSession.AuthResult, roles ...permission.Role) error
}

// RequireRole must run after [Guard]. It answers 403 when the caller holds none of
// roles, and 401 when Guard did not run.
func RequireRole(a Authorizer, roles ...permission.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok || res == nil {
				goSession.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			if err := a.Authorize(r.Context(), res, roles...); err != nil {
				if errors.Is(err, goSession.ErrForbidden) {
					goSession.WriteError(w, http.StatusForbidden, "Insufficient permissions")
					return
				}
				goSession.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorizedMessage(err error) string {
	if errors.Is(err, jwt.ErrExpired) {
		return "Token expired"
	}
	return "Invalid token"
}
