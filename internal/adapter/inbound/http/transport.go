package http

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transport is the inbound HTTP server: it exposes /health and /metrics
// and routes everything else through the gatekeeper to the upstream
// application.
type Transport struct {
	gatekeeper    *Gatekeeper
	server        *http.Server
	addr          string
	logger        *slog.Logger
	registry      *prometheus.Registry
	metrics       *Metrics
	healthChecker *HealthChecker
}

// Option is a functional option for configuring Transport.
type Option func(*Transport)

// WithAddr sets the listen address. Default is "127.0.0.1:8080"
// (localhost only).
func WithAddr(addr string) Option {
	return func(t *Transport) {
		t.addr = addr
	}
}

// WithLogger sets the logger for the transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *Transport) {
		t.healthChecker = hc
	}
}

// NewTransport creates the HTTP server fronting the given gatekeeper.
func NewTransport(gatekeeper *Gatekeeper, opts ...Option) *Transport {
	t := &Transport{
		gatekeeper: gatekeeper,
		addr:       "127.0.0.1:8080",
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.registry = prometheus.NewRegistry()
	t.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(t.registry)
	if gatekeeper.metrics == nil {
		gatekeeper.metrics = t.metrics
	}

	return t
}

// Metrics returns the transport's metric set, for components that record
// their own series (e.g. the store key gauge).
func (t *Transport) Metrics() *Metrics {
	return t.metrics
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully with a 10 second drain.
func (t *Transport) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	}

	chain := RequestIDMiddleware(t.logger)(
		MetricsMiddleware(t.metrics)(t.gatekeeper),
	)
	mux.Handle("/", chain)

	t.server = &http.Server{
		Addr:              t.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		t.logger.Info("gate listening", "addr", listener.Addr().String())
		if serveErr := t.server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

// NewUpstreamProxy builds the reverse proxy handler that forwards allowed
// requests to the upstream application. The gatekeeper has already injected
// X-User-Id and X-Request-ID by the time a request reaches it.
func NewUpstreamProxy(upstream string, timeout time.Duration, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url %q: %w", upstream, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed",
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Upstream unavailable"})
	}

	return proxy, nil
}
