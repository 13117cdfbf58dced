package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/protexis/ogx-gateway/internal/adapter/inbound/http"
	"github.com/protexis/ogx-gateway/internal/adapter/outbound/memory"
	"github.com/protexis/ogx-gateway/internal/adapter/outbound/ogws"
	"github.com/protexis/ogx-gateway/internal/adapter/outbound/sqlite"
	"github.com/protexis/ogx-gateway/internal/adapter/outbound/state"
	"github.com/protexis/ogx-gateway/internal/config"
	"github.com/protexis/ogx-gateway/internal/domain/auth"
	"github.com/protexis/ogx-gateway/internal/domain/queue"
	"github.com/protexis/ogx-gateway/internal/domain/ratelimit"
	"github.com/protexis/ogx-gateway/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gateway server",
	Long: `Start the OGx gateway server.

The server exposes the submission API, validates incoming messages,
queues accepted ones, and delivers them to OGWS in the background.

Examples:
  # Start with config file settings
  ogx-gateway start

  # Start with a specific config file
  ogx-gateway --config /path/to/config.yaml start`,
	RunE: runStart,
}

var devMode bool

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
		cfg.Server.LogLevel = "debug"
	}

	// Signal context for graceful shutdown. stop() restores default
	// signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Write PID file so "ogx-gateway stop" can find us.
	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("ogx-gateway stopped")
	return nil
}

// run wires all components together and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.DevMode {
		logger.Warn("development mode enabled, do not use in production")
	}

	// Upstream client with persisted bearer token.
	tokenStore := state.NewTokenStore(cfg.OGWS.TokenStatePath, logger)
	ogwsTimeout := parseDurationOr(cfg.OGWS.Timeout, 30*time.Second, "ogws.timeout", logger)
	client := ogws.NewClient(cfg.OGWS.BaseURL, cfg.OGWS.ClientID, cfg.OGWS.ClientSecret,
		tokenStore, logger, ogws.WithTimeout(ogwsTimeout))

	// Acquiring the first token at boot surfaces bad credentials early,
	// but an unreachable upstream must not keep the gateway down: the
	// delivery worker retries.
	if _, err := client.GetValidToken(ctx, false); err != nil {
		logger.Warn("initial token acquisition failed, will retry on delivery", "error", err)
	}

	// Persistent submission queue.
	policy := queue.Policy{
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: parseDurationOr(cfg.Queue.RetryDelay, 60*time.Second, "queue.retry_delay", logger),
		Retention:  parseDurationOr(cfg.Queue.Retention, 5*24*time.Hour, "queue.retention", logger),
	}
	store, err := sqlite.NewQueueStore(cfg.Queue.DBPath, policy)
	if err != nil {
		return fmt.Errorf("failed to open queue database: %w", err)
	}
	defer func() { _ = store.Close() }()
	logger.Info("queue opened", "path", cfg.Queue.DBPath,
		"max_retries", policy.MaxRetries, "retry_delay", policy.RetryDelay)

	// Services.
	stats := service.NewStatsService()
	submissions := service.NewSubmissionService(store, stats, cfg.Validation.MaxMessageSize, logger)

	pollInterval := parseDurationOr(cfg.Queue.PollInterval, 5*time.Second, "queue.poll_interval", logger)
	worker := service.NewDeliveryWorker(store, client, stats, policy, pollInterval, logger)
	worker.Start(ctx)
	defer worker.Stop()

	// Inbound API keys.
	keys := make([]auth.APIKey, 0, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		keys = append(keys, auth.APIKey{Name: k.Name, Hash: k.KeyHash})
	}
	keyService := auth.NewAPIKeyService(keys)
	if !keyService.Enabled() {
		logger.Warn("no API keys configured, submit API runs open")
	}

	// Optional inbound rate limiting.
	opts := []http.Option{
		http.WithAddr(cfg.Server.HTTPAddr),
		http.WithLogger(logger),
		http.WithAPIKeys(keyService),
		http.WithHealthChecker(http.NewHealthChecker(store, Version)),
		http.WithShutdownTimeout(parseDurationOr(cfg.Server.ShutdownTimeout, 10*time.Second, "server.shutdown_timeout", logger)),
	}
	if cfg.RateLimit.Enabled {
		limiter := memory.NewRateLimiter()
		limiter.StartCleanup(ctx)
		defer limiter.Stop()
		limit := ratelimit.Limit{
			Rate:   cfg.RateLimit.Rate,
			Burst:  cfg.RateLimit.Burst,
			Period: parseDurationOr(cfg.RateLimit.Period, time.Minute, "rate_limit.period", logger),
		}
		opts = append(opts, http.WithRateLimit(limiter, limit))
		logger.Info("rate limiting enabled",
			"rate", limit.Rate, "burst", limit.Burst, "period", limit.Period)
	}

	logger.Info("ogx-gateway starting",
		"version", Version,
		"dev_mode", cfg.DevMode,
		"http_addr", cfg.Server.HTTPAddr,
		"ogws_url", cfg.OGWS.BaseURL,
		"max_message_size", cfg.Validation.MaxMessageSize,
		"api_keys", len(keys),
	)
	printBanner(Version, cfg.Server.HTTPAddr, cfg.DevMode, keyService.Enabled())

	transport := http.NewHTTPTransport(submissions, stats, opts...)
	return transport.Start(ctx)
}

// parseDurationOr parses a duration string, falling back to def with a
// warning on invalid input.
func parseDurationOr(value string, def time.Duration, name string, logger *slog.Logger) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid duration, using default", "key", name, "value", value, "default", def)
		return def
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

// printBanner prints a formatted startup banner to stderr.
func printBanner(version, httpAddr string, devMode, authEnabled bool) {
	const (
		reset  = "\033[0m"
		bold   = "\033[1m"
		cyan   = "\033[36m"
		green  = "\033[32m"
		yellow = "\033[33m"
		dim    = "\033[2m"
	)

	apiURL := fmt.Sprintf("http://localhost%s/api/v1", httpAddr)
	if !strings.HasPrefix(httpAddr, ":") {
		apiURL = fmt.Sprintf("http://%s/api/v1", httpAddr)
	}

	modeStr := green + "production" + reset
	if devMode {
		modeStr = yellow + "development" + reset
	}
	authStr := green + "API keys" + reset
	if !authEnabled {
		authStr = yellow + "open" + reset + dim + " (loopback only)" + reset
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  %s%s OGx Gateway %s%s\n", bold, cyan, version, reset)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "API:", apiURL)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Mode:", modeStr)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Auth:", authStr)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "\n")
}

// pidFilePath returns the standard location for the gateway PID file.
func pidFilePath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".ogx-gateway", "server.pid")
	}
	return filepath.Join(os.TempDir(), "ogx-gateway-server.pid")
}

// writePIDFile writes the current process PID to the given path,
// creating parent directories as needed.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
