package http

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/protexis/ogx-gateway/internal/domain/auth"
	"github.com/protexis/ogx-gateway/internal/domain/ratelimit"
	"github.com/protexis/ogx-gateway/internal/service"
)

// HTTPTransport is the inbound adapter that exposes the gateway's
// submission pipeline over HTTP.
type HTTPTransport struct {
	submissions     *service.SubmissionService
	stats           *service.StatsService
	server          *http.Server
	addr            string
	allowedOrigins  []string
	certFile        string
	keyFile         string
	apiKeys         *auth.APIKeyService
	rateLimiter     ratelimit.Limiter
	rateLimit       ratelimit.Limit
	logger          *slog.Logger
	healthChecker   *HealthChecker
	shutdownTimeout time.Duration
	metrics         *Metrics
}

// Option is a functional option for configuring HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) {
		t.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
// If not set, the server runs without TLS (plain HTTP).
func WithTLS(certFile, keyFile string) Option {
	return func(t *HTTPTransport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithAllowedOrigins sets the allowed origins for browser clients.
// If empty, all requests with an Origin header are blocked (local-only
// mode). Example: []string{"https://example.com"}
func WithAllowedOrigins(origins []string) Option {
	return func(t *HTTPTransport) {
		t.allowedOrigins = origins
	}
}

// WithAPIKeys sets the API key service used to authenticate /api/v1
// requests. With no keys configured the API runs open.
func WithAPIKeys(keys *auth.APIKeyService) Option {
	return func(t *HTTPTransport) {
		t.apiKeys = keys
	}
}

// WithRateLimit enables per-client rate limiting on /api/v1 requests.
// With no limiter set the API runs unthrottled.
func WithRateLimit(limiter ratelimit.Limiter, limit ratelimit.Limit) Option {
	return func(t *HTTPTransport) {
		t.rateLimiter = limiter
		t.rateLimit = limit
	}
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *HTTPTransport) {
		t.healthChecker = hc
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(t *HTTPTransport) {
		if d > 0 {
			t.shutdownTimeout = d
		}
	}
}

// NewHTTPTransport creates an HTTP transport adapter over the given
// services.
func NewHTTPTransport(submissions *service.SubmissionService, stats *service.StatsService, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		submissions:     submissions,
		stats:           stats,
		addr:            "127.0.0.1:8080",
		allowedOrigins:  []string{},
		apiKeys:         auth.NewAPIKeyService(nil),
		logger:          slog.Default(),
		shutdownTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Start begins serving the API. It blocks until the context is
// cancelled or the server fails.
func (t *HTTPTransport) Start(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(reg)

	api := http.NewServeMux()
	NewHandler(t.submissions, t.stats, t.metrics).Routes(api)

	// Middleware chain (outermost first): metrics captures the full
	// request duration, request ID enriches the logger, then client IP,
	// origin check, API key auth and rate limiting run before the
	// handler. Rate limiting is innermost so authenticated clients are
	// throttled per key, not per address.
	var apiHandler http.Handler = api
	if t.rateLimiter != nil {
		apiHandler = RateLimitMiddleware(t.rateLimiter, t.rateLimit, t.metrics)(apiHandler)
	}
	apiHandler = APIKeyAuth(t.apiKeys)(apiHandler)
	apiHandler = OriginAllowlist(t.allowedOrigins)(apiHandler)
	apiHandler = RealIPMiddleware(apiHandler)
	apiHandler = RequestIDMiddleware(t.logger)(apiHandler)
	apiHandler = MetricsMiddleware(t.metrics)(apiHandler)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", apiHandler)
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	} else {
		mux.Handle("/health", healthHandler())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))

	t.server = &http.Server{
		Addr:    t.addr,
		Handler: mux,
	}

	if t.certFile != "" && t.keyFile != "" {
		t.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if t.certFile != "" && t.keyFile != "" {
			t.logger.Info("starting HTTPS server", "addr", t.addr)
			err = t.server.ListenAndServeTLS(t.certFile, t.keyFile)
		} else {
			t.logger.Info("starting HTTP server", "addr", t.addr)
			err = t.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), t.shutdownTimeout)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
