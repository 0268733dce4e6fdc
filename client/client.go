package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/permission"
)

// Options configures a [Client].
type Options struct {
	// BaseURL is the server root, for example "https://api.example.com".
	BaseURL string
	// Base carries the actual HTTP traffic. Nil means http.DefaultTransport.
	Base http.RoundTripper
	// RequestTimeout bounds each call made through Do. Zero means 30s.
	RequestTimeout time.Duration
	// RenewTimeout bounds each renewal call. Zero means 10s.
	RenewTimeout time.Duration
	// RenewalLimit is how many renewals one session may perform. Zero means 1.
	RenewalLimit int
	// Store persists the session. Nil keeps it in memory.
	Store   Store
	Signals Signals
	Logger  *slog.Logger
}

// APIError is a non-2xx response that is not mapped to a sentinel error.
type APIError struct {
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, strings.Join(e.Messages, "; "))
}

// Client talks to a goSession server on behalf of one user.
type Client struct {
	baseURL     string
	session     *Session
	coordinator *Coordinator
	signals     Signals
	logger      *slog.Logger
	timeout     time.Duration

	// http goes through Transport; plain bypasses it for login and renewal.
	http  *http.Client
	plain *http.Client
}

// New builds a Client and restores any persisted session from opts.Store.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Signals == nil {
		opts.Signals = NopSignals{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}

	session := NewSession(opts.Store)
	if err := session.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	plain := &http.Client{Transport: base}
	renewer := &HTTPRenewer{BaseURL: opts.BaseURL, HTTP: plain}
	coordinator := NewCoordinator(session, renewer, CoordinatorConfig{
		Limit:   opts.RenewalLimit,
		Timeout: opts.RenewTimeout,
		Signals: opts.Signals,
		Logger:  opts.Logger,
	})

	transport := &Transport{
		Base:        base,
		Session:     session,
		Coordinator: coordinator,
		Signals:     opts.Signals,
		Logger:      opts.Logger,
		SkipRenewal: func(r *http.Request) bool {
			return r.URL.Path == LoginPath || r.URL.Path == RenewPath
		},
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		session:     session,
		coordinator: coordinator,
		signals:     opts.Signals,
		logger:      opts.Logger,
		timeout:     opts.RequestTimeout,
		http:        &http.Client{Transport: transport},
		plain:       plain,
	}, nil
}

// Session returns the shared session.
func (c *Client) Session() *Session {
	return c.session
}

// Coordinator returns the renewal coordinator.
func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// Login exchanges credentials for a token and establishes a fresh session with a
// renewal count of zero.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var token string
	status, env, err := c.call(ctx, c.plain, http.MethodPost, LoginPath, map[string]string{
		"email":    email,
		"password": password,
	}, &token)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusUnauthorized:
		return goSession.ErrInvalidCredentials
	case status == http.StatusTooManyRequests:
		return goSession.ErrLoginRateLimited
	case !env.Success || token == "":
		return &APIError{Status: status, Messages: env.Error}
	}

	claims, err := jwt.PeekClaims(token)
	if err != nil {
		return fmt.Errorf("login returned unreadable token: %w", err)
	}
	role := permission.Primary(claims.Roles)

	return c.session.establish(ctx, token, role.String(), strings.TrimSpace(email))
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (goSession.IdentityView, error) {
	var view goSession.IdentityView
	status, env, err := c.call(ctx, c.plain, http.MethodPost, RegisterPath, map[string]string{
		"email":    email,
		"password": password,
		"fullName": fullName,
	}, &view)
	if err != nil {
		return goSession.IdentityView{}, err
	}

	switch {
	case status == http.StatusConflict:
		return goSession.IdentityView{}, goSession.ErrIdentityExists
	case !env.Success:
		return goSession.IdentityView{}, &APIError{Status: status, Messages: env.Error}
	}
	return view, nil
}

// Logout destroys the session locally. A renewal in flight is discarded when it
// completes.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.clear(ctx)
}

// Get calls Do with GET and no body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post calls Do with POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Do sends an authenticated request and decodes the envelope's data into out.
// 401 and 403 become [goSession.ErrUnauthorized] and [goSession.ErrForbidden]
// once the renewal protocol has run its course.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	status, env, err := c.call(ctx, c.http, method, path, body, out)
	if err != nil {
		switch {
		case errors.Is(err, goSession.ErrSessionExpired):
		case errors.Is(err, goSession.ErrTimeout):
			c.signals.Alert(AlertWarning, "Request timed out. Please try again")
		case errors.Is(err, goSession.ErrNetworkFailure):
			c.signals.Alert(AlertWarning, "Network error. Please check your connection")
		}
		return err
	}

	switch {
	case status == http.StatusUnauthorized:
		return goSession.ErrUnauthorized
	case status == http.StatusForbidden:
		return goSession.ErrForbidden
	case status == http.StatusNotFound:
		c.signals.Alert(AlertWarning, "Resource not found")
	case status >= http.StatusInternalServerError:
		c.signals.Alert(AlertError, "Server error. Please try again later")
	}

	if !env.Success {
		return &APIError{Status: status, Messages: env.Error}
	}
	return nil
}

// call sends one request and decodes the envelope. Only transport failures are
// returned as errors; HTTP status handling is left to the caller.
func (c *Client) call(ctx context.Context, hc *http.Client, method, path string, body, out any) (int, goSession.Response[json.RawMessage], error) {
	var env goSession.Response[json.RawMessage]

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, env, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, env, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return 0, env, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.StatusCode, env, fmt.Errorf("decode response: %w", err)
		}
		return resp.StatusCode, env, nil
	}

	if env.Success && out != nil && env.Data != nil {
		if err := json.Unmarshal(*env.Data, out); err != nil {
			return resp.StatusCode, env, fmt.Errorf("decode response data: %w", err)
		}
	}
	return resp.StatusCode, env, nil
}
