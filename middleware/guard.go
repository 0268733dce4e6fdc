package middleware

import (
	"context"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Validator is the subset of [goSession.Engine] used by [Guard].
type Validator interface {
	Validate(ctx context.Context, token string) (*goSession.AuthResult, error)
}

type authResultContextKey struct{}

// AuthResultFromContext returns the identity attached by [Guard].
func AuthResultFromContext(ctx context.Context) (*goSession.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goSession.AuthResult)
	return res, ok
}

// WithAuthResult attaches res to ctx the way [Guard] does.
func WithAuthResult(ctx context.Context, res *goSession.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Guard rejects requests without a valid bearer token with a 401 envelope.
// Expired tokens get a distinct message so clients can tell them apart in logs;
// both cases share the status code that triggers renewal.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				goSession.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				goSession.WriteError(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			res, err := v.Validate(r.Context(), token)
			if err != nil {
				goSession.WriteError(w, http.StatusUnauthorized, unauthorizedMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
