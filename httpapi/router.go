package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/permission"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 16

// Service is the subset of [goSession.Engine] the HTTP layer calls.
type Service interface {
	Login(ctx context.Context, email, password string) (goSession.IssuedToken, error)
	Renew(ctx context.Context, bearer, claimedEmail string) (goSession.IssuedToken, error)
	Register(ctx context.Context, req goSession.RegisterRequest) (goSession.IdentityView, error)
	Validate(ctx context.Context, token string) (*goSession.AuthResult, error)
	Authorize(ctx context.Context, result *goSession.AuthResult, roles ...permission.Role) error
}

// Options tunes the router. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// TrustProxyHeaders takes the client IP from X-Forwarded-For when set.
	TrustProxyHeaders bool
}

type handlers struct {
	svc    Service
	logger *slog.Logger
}

// NewRouter returns a router serving the session endpoints. Extra routes can be
// registered on the result; guard them with [middleware.Guard].
func NewRouter(svc Service, opts Options) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{svc: svc, logger: logger}

	r := mux.NewRouter()
	r.Use(clientIPMiddleware(opts.TrustProxyHeaders))
	r.Use(logMiddleware(logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		goSession.WriteError(w, http.StatusNotFound, "Resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		goSession.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", h.login).Methods(http.MethodPost)
	auth.HandleFunc("/renew-token", h.renew).Methods(http.MethodPost)
	auth.HandleFunc("/register", h.register).Methods(http.MethodPost)
	auth.Handle("/session", middleware.Guard(svc)(http.HandlerFunc(h.session))).Methods(http.MethodGet)

	return r
}

func clientIPMiddleware(trustProxy bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r, trustProxy)
			next.ServeHTTP(w, r.WithContext(goSession.WithClientIP(r.Context(), ip)))
		})
	}
}

func remoteIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.LogAttrs(r.Context(), slog.LevelDebug, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
