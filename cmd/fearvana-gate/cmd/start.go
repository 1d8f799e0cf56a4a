package cmd

import (
	"context"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/fearvana/gate/internal/adapter/inbound/http"
	"github.com/fearvana/gate/internal/adapter/outbound/memory"
	"github.com/fearvana/gate/internal/adapter/outbound/redis"
	"github.com/fearvana/gate/internal/config"
	"github.com/fearvana/gate/internal/domain/auth"
	"github.com/fearvana/gate/internal/domain/csrf"
	"github.com/fearvana/gate/internal/domain/gate"
	"github.com/fearvana/gate/internal/domain/origin"
	"github.com/fearvana/gate/internal/domain/ratelimit"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gatekeeper",
	Long: `Start the Fearvana Gate gatekeeper.

The gate listens on server.http_addr, applies the request pipeline to
every /api/ request, and forwards allowed requests to upstream.url.
When no upstream is configured, allowed requests receive 502; this is
only useful for smoke-testing the pipeline itself.

Examples:
  # Start with config file settings
  fearvana-gate start

  # Start in development mode (debug logging, relaxed CSRF)
  fearvana-gate start --dev`,
	RunE: runStart,
}

var devMode bool

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, relaxed CSRF handling)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	// Load configuration (without validation, so CLI flags can override first)
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override mode from the CLI flag before dev defaults are applied.
	if devMode {
		cfg.Mode = "development"
	}

	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if !cfg.IsProduction() && devMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("fearvana-gate stopped")
	return nil
}

// run wires the configured components together and serves until ctx is done.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.IsProduction() {
		logger.Warn("running in development mode; origin and CSRF checks are relaxed")
	}

	rules := ratelimit.Rules{
		ratelimit.ClassAuth:    classRule(cfg.RateLimit.Auth, logger, "auth"),
		ratelimit.ClassAI:      classRule(cfg.RateLimit.AI, logger, "ai"),
		ratelimit.ClassPayment: classRule(cfg.RateLimit.Payment, logger, "payment"),
		ratelimit.ClassDefault: classRule(cfg.RateLimit.Default, logger, "default"),
	}

	// Rate limit store: in-process counters or shared Redis counters.
	var store ratelimit.Store
	var memStore *memory.RateLimitStore

	switch cfg.RateLimit.Backend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		defer client.Close()
		store = redis.NewRateLimitStore(client)
		logger.Info("rate limit store ready", "backend", "redis", "addr", cfg.Redis.Addr)
	default:
		sweepInterval := parseDuration(cfg.RateLimit.SweepInterval, time.Minute, logger, "rate_limit.sweep_interval")
		memStore = memory.NewRateLimitStoreWithConfig(sweepInterval, logger)
		memStore.StartSweep(ctx)
		defer memStore.Stop()
		store = memStore
		logger.Info("rate limit store ready", "backend", "memory", "sweep_interval", sweepInterval)
	}

	authenticator, err := buildAuthenticator(cfg, logger)
	if err != nil {
		return err
	}

	originPolicy := origin.NewAllowList(cfg.Origins.AppURL, cfg.Origins.Extra, cfg.IsProduction())
	csrfValidator := &csrf.Validator{AllowMissing: cfg.CSRF.AllowMissing}

	pipeline := gate.NewPipeline(logger,
		gate.NewRateLimitStage(rules, store, logger),
		gate.NewOriginStage(originPolicy),
		gate.NewCSRFStage(csrfValidator),
		gate.NewAuthStage(authenticator, cfg.Routes.Protected, logger),
	)

	next, err := buildUpstream(cfg, logger)
	if err != nil {
		return err
	}

	gatekeeper := http.NewGatekeeper(pipeline, next, logger,
		http.WithPublicPaths(cfg.Routes.Public),
	)

	health := http.NewHealthChecker(memStore, cfg.Upstream.URL, Version)

	transport := http.NewTransport(gatekeeper,
		http.WithAddr(cfg.Server.HTTPAddr),
		http.WithLogger(logger),
		http.WithHealthChecker(health),
	)

	// Sample the key gauge from the memory store; the redis backend has no
	// cheap key count to expose.
	if memStore != nil {
		gauge := transport.Metrics().RateLimitKeys
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					gauge.Set(float64(memStore.Size()))
				}
			}
		}()
	}

	logger.Info("fearvana-gate starting",
		"addr", cfg.Server.HTTPAddr,
		"mode", cfg.Mode,
		"upstream", cfg.Upstream.URL,
		"auth_mode", cfg.Auth.Mode,
	)

	return transport.Serve(ctx)
}

// buildAuthenticator constructs the bearer token verifier from config.
func buildAuthenticator(cfg *config.Config, logger *slog.Logger) (auth.Authenticator, error) {
	switch cfg.Auth.Mode {
	case "keyring":
		keys := make([]auth.StoredKey, 0, len(cfg.Auth.Keys))
		for _, k := range cfg.Auth.Keys {
			keys = append(keys, auth.StoredKey{
				Hash:       k.Hash,
				IdentityID: k.IdentityID,
			})
		}
		identities := make([]auth.Identity, 0, len(cfg.Auth.Identities))
		for _, id := range cfg.Auth.Identities {
			identities = append(identities, auth.Identity{ID: id.ID, Name: id.Name})
		}
		logger.Info("keyring authenticator configured", "keys", len(keys), "identities", len(identities))
		return auth.NewKeyring(keys, identities, logger), nil
	case "demo":
		logger.Warn("demo authenticator configured; any token with the demo prefix is accepted")
		return auth.NewDemoAuthenticator(), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}

// buildUpstream returns the handler allowed requests are forwarded to.
func buildUpstream(cfg *config.Config, logger *slog.Logger) (stdhttp.Handler, error) {
	if cfg.Upstream.URL == "" {
		logger.Warn("no upstream configured; allowed requests will receive 502")
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(stdhttp.StatusBadGateway)
			fmt.Fprint(w, `{"error":"Upstream not configured"}`)
		}), nil
	}

	timeout := parseDuration(cfg.Upstream.HTTPTimeout, 30*time.Second, logger, "upstream.http_timeout")
	return http.NewUpstreamProxy(cfg.Upstream.URL, timeout, logger)
}

// classRule converts a config class budget into a limiter rule.
func classRule(class config.ClassConfig, logger *slog.Logger, name string) ratelimit.Rule {
	window := parseDuration(class.Window, time.Minute, logger, "rate_limit."+name+".window")
	return ratelimit.Rule{
		Requests: class.Requests,
		Window:   window,
	}
}

// parseDuration parses a config duration, falling back to a default on
// values validation did not catch (e.g. an empty string).
func parseDuration(value string, fallback time.Duration, logger *slog.Logger, key string) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger.Warn("invalid duration in config, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
