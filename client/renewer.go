package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Endpoint paths served by httpapi.
const (
	LoginPath    = "/auth/login"
	RenewPath    = "/auth/renew-token"
	RegisterPath = "/auth/register"
	SessionPath  = "/auth/session"
)

// HTTPRenewer calls the renew-token endpoint. It must use a plain client, never
// one built on [Transport], so a failed renewal cannot recurse into another one.
type HTTPRenewer struct {
	BaseURL string
	HTTP    *http.Client
}

type renewBody struct {
	Email string `json:"email,omitempty"`
}

// Renew posts the expired token and identity hint and returns the new token.
func (r *HTTPRenewer) Renew(ctx context.Context, token, identityHint string) (string, error) {
	payload, err := json.Marshal(renewBody{Email: identityHint})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(r.BaseURL, RenewPath), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	hc := r.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	var env goSession.Response[string]
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", fmt.Errorf("%w: %s", goSession.ErrUnauthorized, env.Messages())
	case http.StatusNotFound:
		return "", goSession.ErrIdentityNotFound
	case http.StatusTooManyRequests:
		return "", goSession.ErrRenewRateLimited
	default:
		return "", &APIError{Status: resp.StatusCode, Messages: env.Error}
	}

	if decodeErr != nil {
		return "", fmt.Errorf("decode renewal response: %w", decodeErr)
	}
	if !env.Success || env.Data == nil || *env.Data == "" {
		return "", &APIError{Status: resp.StatusCode, Messages: env.Error}
	}
	return *env.Data, nil
}

// classifyTransportError wraps err in ErrTimeout or ErrNetworkFailure.
func classifyTransportError(err error) error {
	if errors.Is(err, goSession.ErrSessionExpired) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", goSession.ErrTimeout, err)
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return fmt.Errorf("%w: %w", goSession.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", goSession.ErrNetworkFailure, err)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
