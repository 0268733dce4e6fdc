package client

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RequestTimeHeader carries the client send time in RFC 3339 format.
const RequestTimeHeader = "X-Request-Time"

// Transport is an [http.RoundTripper] that authenticates requests with the
// session token and drives the renew-and-replay protocol on 401.
type Transport struct {
	Base        http.RoundTripper
	Session     *Session
	Coordinator *Coordinator
	Signals     Signals
	Logger      *slog.Logger

	// SkipRenewal marks requests whose 401 must be returned untouched, such as
	// the login and renewal calls themselves.
	SkipRenewal func(*http.Request) bool

	// Now overrides the clock for RequestTimeHeader.
	Now func() time.Time
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t *Transport) signals() Signals {
	if t.Signals == nil {
		return NopSignals{}
	}
	return t.Signals
}

// RoundTrip implements [http.RoundTripper]. A request is replayed at most once;
// a replay that is answered 401 again is returned as is. req itself is never
// modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	st, generation, _ := t.Session.Snapshot()
	token := st.Token
	resp, err := t.send(out, token)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusForbidden:
		t.signals().PermissionDenied(req)
		return resp, nil
	case http.StatusUnauthorized:
	default:
		return resp, nil
	}

	if token == "" || t.Coordinator == nil || (t.SkipRenewal != nil && t.SkipRenewal(req)) {
		return resp, nil
	}

	drain(resp)

	fresh, err := t.Coordinator.Renew(req.Context(), req, token, generation)
	if err != nil {
		return nil, err
	}

	replay, err := t.send(out, fresh)
	if err != nil {
		return nil, err
	}
	if replay.StatusCode == http.StatusForbidden {
		t.signals().PermissionDenied(req)
	}
	return replay, nil
}

func (t *Transport) send(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}

	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	start := t.now()
	out.Header.Set(RequestTimeHeader, start.UTC().Format(time.RFC3339Nano))

	resp, err := t.base().RoundTrip(out)

	if t.Logger != nil {
		attrs := []any{"method", req.Method, "path", req.URL.Path, "duration", t.now().Sub(start)}
		if resp != nil {
			attrs = append(attrs, "status", resp.StatusCode)
		}
		t.Logger.Debug("request", attrs...)
	}
	return resp, err
}

// bufferBody reads the body once so every attempt re-sends identical bytes. When
// req has no GetBody it returns a clone that does.
func bufferBody(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}

	data, err := io.ReadAll(req.Body)
	closeErr := req.Body.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	out := req.Clone(req.Context())
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.Body, _ = out.GetBody()
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
