// Command gosession-server serves the session endpoints over HTTP.
//
//	gosession-server --config gosession.yaml --db identities.db --addr :8080
//
// GOSESSION_TOKEN_SIGNING_KEY must be set unless the config file carries the key.
// With --redis-addr the login and renewal throttles are enabled.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/httpapi"
	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	addr        string
	dbPath      string
	redisAddr   string
	logLevel    string
	trustProxy  bool
	auditToLogs bool
	auditFile   string
}

func parseFlags(args []string) (options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("gosession-server", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "YAML config file (optional; GOSESSION_* env overrides it)")
	flagSet.StringVar(&opts.addr, "addr", ":8080", "listen address")
	flagSet.StringVar(&opts.dbPath, "db", "gosession.db", "SQLite identity database path")
	flagSet.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for login and renewal throttles")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.BoolVar(&opts.trustProxy, "trust-proxy", false, "take the client IP from X-Forwarded-For")
	flagSet.BoolVar(&opts.auditToLogs, "audit-log", true, "write audit events to the log when auditing is enabled")
	flagSet.StringVar(&opts.auditFile, "audit-file", "", "append audit events as JSON lines to this file")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	level, err := parseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := goSession.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	for _, w := range cfg.Lint() {
		logger.Warn("config lint", "code", w.Code, "message", w.Message)
	}

	provider, err := identity.OpenSQLite(opts.dbPath)
	if err != nil {
		return err
	}
	defer provider.Close()

	builder := goSession.New().
		WithConfig(cfg).
		WithIdentityProvider(provider).
		WithLogger(logger)

	var sinks goSession.MultiSink
	if opts.auditToLogs {
		sinks = append(sinks, goSession.NewSlogSink(logger))
	}
	if opts.auditFile != "" {
		f, err := os.OpenFile(opts.auditFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open audit file: %w", err)
		}
		defer f.Close()
		sinks = append(sinks, goSession.NewJSONWriterSink(f))
	}
	if len(sinks) > 0 {
		builder = builder.WithAuditSink(sinks)
	}

	if opts.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		builder = builder.WithRedis(rdb)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	router := httpapi.NewRouter(engine, httpapi.Options{
		Logger:            logger,
		TrustProxyHeaders: opts.trustProxy,
	})
	router.Handle("/metrics", prometheus.New(engine).Handler()).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errC := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", opts.addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
