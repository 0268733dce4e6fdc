package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/permission"
)

// Renewer performs the renewal call. token is the expired token; identityHint is
// the email the session was established with.
type Renewer interface {
	Renew(ctx context.Context, token, identityHint string) (string, error)
}

// Outcome is the result delivered to a [PendingRequest].
type Outcome struct {
	Token string
	Err   error
}

// PendingRequest is a request that failed with 401 and waits for a renewal.
// Generation is the session generation StaleToken was read from. Resolve is
// called exactly once, outside the coordinator lock.
type PendingRequest struct {
	Request    *http.Request
	StaleToken string
	Generation uint64
	Resolve    func(Outcome)
}

// CoordinatorState is Idle or Renewing.
type CoordinatorState int

const (
	StateIdle CoordinatorState = iota
	StateRenewing
)

func (s CoordinatorState) String() string {
	if s == StateRenewing {
		return "renewing"
	}
	return "idle"
}

// CoordinatorConfig tunes a [Coordinator].
type CoordinatorConfig struct {
	// Limit is how many renewals one session may perform. Zero means 1.
	Limit int
	// Timeout bounds each renewal call. Zero means 10s.
	Timeout time.Duration
	Signals Signals
	Logger  *slog.Logger
}

// Coordinator serializes token renewal for one [Session]. Deciding whether a
// renewal is in flight and starting one happen in a single critical section.
type Coordinator struct {
	session *Session
	renewer Renewer
	limit   int
	timeout time.Duration
	signals Signals
	logger  *slog.Logger

	mu      sync.Mutex
	state   CoordinatorState
	pending []*PendingRequest

	calls atomic.Int64
}

// NewCoordinator returns an idle coordinator.
func NewCoordinator(session *Session, renewer Renewer, cfg CoordinatorConfig) *Coordinator {
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Signals == nil {
		cfg.Signals = NopSignals{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		session: session,
		renewer: renewer,
		limit:   cfg.Limit,
		timeout: cfg.Timeout,
		signals: cfg.Signals,
		logger:  cfg.Logger,
	}
}

// State reports whether a renewal is in flight.
func (c *Coordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of queued requests.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// RenewalCalls returns how many renewal calls reached the [Renewer].
func (c *Coordinator) RenewalCalls() int64 {
	return c.calls.Load()
}

// Renew blocks until a token newer than staleToken is available or the session
// is gone. generation is the session generation staleToken was read from; a
// request sent under an earlier login never receives a later login's token.
// Errors wrap [goSession.ErrSessionExpired]. If ctx ends first, Renew returns
// ctx.Err() and the renewal carries on for the other waiters.
func (c *Coordinator) Renew(ctx context.Context, req *http.Request, staleToken string, generation uint64) (string, error) {
	done := make(chan Outcome, 1)
	c.Submit(&PendingRequest{
		Request:    req,
		StaleToken: staleToken,
		Generation: generation,
		Resolve:    func(o Outcome) { done <- o },
	})

	select {
	case o := <-done:
		return o.Token, o.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Submit hands p to the coordinator. A p from an ended session resolves with
// [goSession.ErrSessionExpired]. While Renewing, p joins the FIFO queue. While
// Idle, p either resolves at once (the session already renewed past StaleToken
// or is out of renewals) or starts a renewal as the head of the queue.
func (c *Coordinator) Submit(p *PendingRequest) {
	c.mu.Lock()

	st, generation, active := c.session.Snapshot()
	if !active || p.Generation != generation {
		c.mu.Unlock()
		p.Resolve(Outcome{Err: goSession.ErrSessionExpired})
		return
	}

	if c.state == StateRenewing {
		c.pending = append(c.pending, p)
		c.mu.Unlock()
		return
	}

	switch {
	case st.Token != p.StaleToken:
		c.mu.Unlock()
		p.Resolve(Outcome{Token: st.Token})
		return
	case st.RenewalCount >= c.limit:
		c.mu.Unlock()
		err := fmt.Errorf("%w: %w", goSession.ErrSessionExpired, goSession.ErrRenewalLimitExceeded)
		c.expire(generation, err)
		p.Resolve(Outcome{Err: err})
		return
	}

	c.state = StateRenewing
	c.pending = append(c.pending, p)
	c.mu.Unlock()

	go c.run(st, generation)
}

func (c *Coordinator) run(st State, generation uint64) {
	c.calls.Add(1)

	// Detached from the triggering request: its cancellation must not fail the
	// waiters queued behind it.
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	token, err := c.renewer.Renew(ctx, st.Token, st.IdentityHint)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, goSession.ErrTimeout) {
		err = fmt.Errorf("%w: %w", goSession.ErrTimeout, err)
	}

	var outcome Outcome
	if err == nil {
		role := st.Role
		if claims, peekErr := jwt.PeekClaims(token); peekErr == nil {
			if primary := permission.Primary(claims.Roles); primary != "" {
				role = primary.String()
			}
		}
		applied, saveErr := c.session.applyRenewal(context.Background(), generation, st.Token, token, role)
		if saveErr != nil {
			c.logger.Warn("goSession: persisting renewed session failed", "error", saveErr)
		}
		if applied {
			outcome = Outcome{Token: token}
		} else {
			err = errors.New("session changed during renewal")
		}
	}
	if err != nil {
		outcome = Outcome{Err: fmt.Errorf("%w: %w", goSession.ErrSessionExpired, err)}
		c.expire(generation, outcome.Err)
	}

	c.logger.Debug("goSession: renewal finished",
		"duration", time.Since(start),
		"success", outcome.Err == nil,
	)

	c.mu.Lock()
	waiters := c.pending
	c.pending = nil
	c.state = StateIdle
	c.mu.Unlock()

	// Waiters that joined under a newer login go through Submit again.
	var requeue []*PendingRequest
	for _, p := range waiters {
		if p.Generation != generation {
			requeue = append(requeue, p)
			continue
		}
		p.Resolve(outcome)
	}
	for _, p := range requeue {
		c.Submit(p)
	}
}

// expire clears the session of generation and signals once.
func (c *Coordinator) expire(generation uint64, cause error) {
	cleared, err := c.session.clearIf(context.Background(), generation)
	if err != nil {
		c.logger.Warn("goSession: clearing session store failed", "error", err)
	}
	if cleared {
		c.signals.SessionExpired(cause)
	}
}
