// Package config provides configuration types for the OGx gateway.
//
// Configuration is file-based (YAML) with environment variable
// overrides. Secrets (the OGWS client credentials, API key hashes) can
// be supplied entirely through the environment so the config file can
// be committed without them.
package config

// Config is the top-level configuration for the OGx gateway.
type Config struct {
	// Server configures the inbound HTTP API listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// OGWS configures the upstream OGWS REST API client.
	OGWS OGWSConfig `yaml:"ogws" mapstructure:"ogws"`

	// Validation configures the message validation engine limits.
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`

	// Queue configures the persistent submission queue.
	Queue QueueConfig `yaml:"queue" mapstructure:"queue"`

	// RateLimit configures per-client throttling of the inbound API.
	// Optional: disabled by default.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// Auth configures inbound API key authentication.
	// Optional: when empty, the submit API is open (suitable only for
	// loopback deployments).
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// DevMode enables development features (verbose logging, etc).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the inbound HTTP server.
// TLS for the inbound side is handled by a reverse proxy.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	// Defaults to "10s" if not specified.
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"omitempty"`
}

// OGWSConfig configures the upstream OGWS REST API client.
type OGWSConfig struct {
	// BaseURL is the OGWS API base URL (e.g., "https://ogws.example.com/api/v1").
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// ClientID is the OGWS client credential identifier.
	ClientID string `yaml:"client_id" mapstructure:"client_id" validate:"required"`

	// ClientSecret is the OGWS client credential secret.
	// Prefer supplying this via OGX_GATEWAY_OGWS_CLIENT_SECRET.
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret" validate:"required"`

	// Timeout is the per-request timeout for OGWS calls (e.g., "30s").
	// Defaults to "30s" if not specified.
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty"`

	// TokenStatePath is where the bearer token record is persisted
	// across restarts. Defaults to "~/.ogx-gateway/token.json".
	TokenStatePath string `yaml:"token_state_path" mapstructure:"token_state_path"`
}

// ValidationConfig configures the message validation engine.
type ValidationConfig struct {
	// MaxMessageSize is the serialized message size limit in bytes.
	// Defaults to 1023 (the OGx network ceiling) if not specified.
	MaxMessageSize int `yaml:"max_message_size" mapstructure:"max_message_size" validate:"omitempty,min=1"`
}

// QueueConfig configures the persistent submission queue.
type QueueConfig struct {
	// DBPath is the SQLite database file path.
	// Defaults to "~/.ogx-gateway/queue.db".
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	// MaxRetries is how many delivery attempts a message gets before it
	// moves to the dead-letter state. Defaults to 5.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" validate:"omitempty,min=1"`

	// RetryDelay is the delay between delivery attempts (e.g., "60s").
	// Defaults to "60s".
	RetryDelay string `yaml:"retry_delay" mapstructure:"retry_delay" validate:"omitempty"`

	// Retention is how long delivered and dead-lettered messages are
	// kept before purge (e.g., "120h"). Defaults to "120h" (5 days).
	Retention string `yaml:"retention" mapstructure:"retention" validate:"omitempty"`

	// PollInterval is how often the delivery worker scans for due
	// messages (e.g., "5s"). Defaults to "5s".
	PollInterval string `yaml:"poll_interval" mapstructure:"poll_interval" validate:"omitempty"`
}

// RateLimitConfig configures per-client throttling of the inbound API.
// Authenticated clients are keyed by API key name, anonymous ones by
// client IP.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Rate is the number of allowed requests per Period. Defaults to 60.
	Rate int `yaml:"rate" mapstructure:"rate" validate:"omitempty,min=1"`

	// Burst is how many requests may arrive at once. Defaults to 10.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"omitempty,min=1"`

	// Period is the window the rate applies to (e.g., "1m").
	// Defaults to "1m".
	Period string `yaml:"period" mapstructure:"period" validate:"omitempty"`
}

// AuthConfig configures inbound API key authentication.
type AuthConfig struct {
	// APIKeys defines the accepted API keys.
	APIKeys []APIKeyConfig `yaml:"api_keys" mapstructure:"api_keys" validate:"omitempty,dive"`
}

// APIKeyConfig defines one inbound API key.
type APIKeyConfig struct {
	// Name identifies the key's owner in logs and audit records.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`

	// KeyHash is the argon2id hash of the API key.
	// Generate with: ogx-gateway hash-key
	KeyHash string `yaml:"key_hash" mapstructure:"key_hash" validate:"required,startswith=$argon2id$"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	// Server defaults. Bind to localhost only; users who need network
	// access must explicitly set http_addr.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if c.OGWS.Timeout == "" {
		c.OGWS.Timeout = "30s"
	}
	if c.OGWS.TokenStatePath == "" {
		c.OGWS.TokenStatePath = defaultStatePath("token.json")
	}

	if c.Validation.MaxMessageSize == 0 {
		c.Validation.MaxMessageSize = 1023
	}

	if c.Queue.DBPath == "" {
		c.Queue.DBPath = defaultStatePath("queue.db")
	}
	if c.Queue.MaxRetries == 0 {
		c.Queue.MaxRetries = 5
	}
	if c.Queue.RetryDelay == "" {
		c.Queue.RetryDelay = "60s"
	}
	if c.Queue.Retention == "" {
		c.Queue.Retention = "120h"
	}
	if c.Queue.PollInterval == "" {
		c.Queue.PollInterval = "5s"
	}

	if c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = 60
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.RateLimit.Period == "" {
		c.RateLimit.Period = "1m"
	}

	if c.DevMode {
		c.Server.LogLevel = "debug"
	}
}
