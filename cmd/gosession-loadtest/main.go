// Command gosession-loadtest measures renewal coalescing under load.
//
// It starts an in-process server backed by miniredis and an in-memory identity
// directory, logs in a set of clients, moves the server clock past token expiry,
// and fires a burst of concurrent requests from every client. Each client should
// perform exactly one renewal however large its burst.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/client"
	"github.com/MrEthical07/goSession/httpapi"
	"github.com/MrEthical07/goSession/identity"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

const loadPassword = "load1$pw"

type clock struct {
	offset atomic.Int64
}

func (c *clock) Now() time.Time {
	return time.Now().Add(time.Duration(c.offset.Load()))
}

func (c *clock) Advance(d time.Duration) {
	c.offset.Add(int64(d))
}

func main() {
	var (
		clients = pflag.Int("clients", 50, "number of logged-in clients")
		burst   = pflag.Int("burst", 32, "concurrent requests per client after expiry")
		rounds  = pflag.Int("rounds", 2, "expiry rounds; rounds beyond the renewal limit force logout")
		limit   = pflag.Int("renewal-limit", 1, "renewals allowed per session")
	)
	pflag.Parse()

	if *clients <= 0 || *burst <= 0 || *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "clients, burst and rounds must be > 0")
		os.Exit(2)
	}
	if err := run(*clients, *burst, *rounds, *limit); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(clients, burst, rounds, limit int) error {
	ctx := context.Background()

	mr, err := miniredis.Run()
	if err != nil {
		return fmt.Errorf("start miniredis: %w", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := goSession.DefaultConfig()
	cfg.Token.SigningKey = "loadtest-signing-key-0123456789abcdef"
	cfg.Token.TTL = time.Minute
	cfg.Security.MaxLoginAttempts = clients * 4
	cfg.Security.MaxRenewAttempts = clients * rounds * 4
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	clk := &clock{}
	engine, err := goSession.New().
		WithConfig(cfg).
		WithIdentityProvider(identity.NewMemoryProvider()).
		WithRedis(rdb).
		WithClock(clk.Now).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	srv := httptest.NewServer(httpapi.NewRouter(engine, httpapi.Options{}))
	defer srv.Close()
	fmt.Printf("server at %s\n", srv.URL)

	fleet := make([]*client.Client, clients)
	fmt.Printf("registering and logging in %d clients...\n", clients)
	startSeed := time.Now()
	for i := range fleet {
		c, err := client.New(ctx, client.Options{BaseURL: srv.URL, RenewalLimit: limit})
		if err != nil {
			return err
		}
		email := fmt.Sprintf("load-%d@example.com", i)
		if _, err := c.Register(ctx, email, loadPassword, "Load User"); err != nil {
			return fmt.Errorf("register %s: %w", email, err)
		}
		if err := c.Login(ctx, email, loadPassword); err != nil {
			return fmt.Errorf("login %s: %w", email, err)
		}
		fleet[i] = c
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	fmt.Println("---- results ----")
	for round := 1; round <= rounds; round++ {
		clk.Advance(2 * cfg.Token.TTL)
		s := runBurst(ctx, fleet, burst)
		printStats(fmt.Sprintf("round %d", round), s)
	}

	var calls int64
	for _, c := range fleet {
		calls += c.Coordinator().RenewalCalls()
	}
	snap := engine.MetricsSnapshot()
	fmt.Printf("renewal calls: client=%d server_success=%d server_failure=%d (expected %d)\n",
		calls,
		snap.Counters[goSession.MetricRenewSuccess],
		snap.Counters[goSession.MetricRenewFailure],
		clients*min(rounds, limit),
	)
	return nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	ok       int64
	expired  int64
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func runBurst(ctx context.Context, fleet []*client.Client, burst int) phaseStats {
	var (
		wg        sync.WaitGroup
		ok        int64
		expired   int64
		failures  int64
		latencies = make([]time.Duration, 0, len(fleet)*burst)
		mu        sync.Mutex
	)

	start := time.Now()
	for _, c := range fleet {
		for i := 0; i < burst; i++ {
			wg.Add(1)
			go func(c *client.Client) {
				defer wg.Done()
				t0 := time.Now()
				err := c.Get(ctx, client.SessionPath, nil)
				d := time.Since(t0)

				switch {
				case err == nil:
					atomic.AddInt64(&ok, 1)
				case errors.Is(err, goSession.ErrSessionExpired):
					atomic.AddInt64(&expired, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}(c)
		}
	}
	wg.Wait()

	s := computeStats(time.Since(start), latencies)
	s.ok, s.expired, s.failures = ok, expired, failures
	return s
}

func computeStats(total time.Duration, samples []time.Duration) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:   total,
		ops:     len(samples),
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d ok=%d expired=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.ok,
		s.expired,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
