package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags and custom cross-field
// rules. Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// Duration fields are strings in YAML; parse them up front so a typo
	// fails at startup instead of at first use.
	durations := map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"ogws.timeout":            c.OGWS.Timeout,
		"queue.retry_delay":       c.Queue.RetryDelay,
		"queue.retention":         c.Queue.Retention,
		"queue.poll_interval":     c.Queue.PollInterval,
		"rate_limit.period":       c.RateLimit.Period,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", field, value)
		}
	}

	if err := c.validateKeyNamesUnique(); err != nil {
		return err
	}

	return nil
}

// validateKeyNamesUnique ensures API key names are unique so audit
// records attribute submissions unambiguously.
func (c *Config) validateKeyNamesUnique() error {
	seen := make(map[string]struct{}, len(c.Auth.APIKeys))
	for i, key := range c.Auth.APIKeys {
		if _, dup := seen[key.Name]; dup {
			return fmt.Errorf("api_keys[%d]: duplicate key name: %s", i, key.Name)
		}
		seen[key.Name] = struct{}{}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a
// single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
