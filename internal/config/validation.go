package config

import (
	"fmt"
	"net/url"

	"go.uber.org/zap/zapcore"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Port < 1 || c.Port > 65535 {
		add("port", "port must be between 1 and 65535, got %d", c.Port)
	}

	switch c.DatabaseDriver {
	case "sqlite":
		if c.DatabasePath == "" {
			add("database_path", "database_path is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			add("database_url", "database_url is required for the postgres driver")
		}
	default:
		add("database_driver", "must be sqlite or postgres, got %q", c.DatabaseDriver)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		add("log_level", "unknown level %q", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		add("log_format", "must be json or console, got %q", c.LogFormat)
	}
	if c.RequestTimeoutSec < 0 {
		add("request_timeout_sec", "must not be negative")
	}
	if c.ShutdownTimeoutSec < 0 {
		add("shutdown_timeout_sec", "must not be negative")
	}
	if c.MaxBodyBytes <= 0 {
		add("max_body_bytes", "must be positive, got %d", c.MaxBodyBytes)
	}
	if c.RateLimitPerSec < 0 {
		add("rate_limit_per_sec", "must not be negative")
	}

	if u, err := url.Parse(c.History.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("history.base_url", "must be an absolute http(s) URL, got %q", c.History.BaseURL)
	}
	if c.History.TimeoutSec <= 0 {
		add("history.timeout_sec", "must be positive, got %d", c.History.TimeoutSec)
	}
	if c.History.MaxAttempts < 1 {
		add("history.max_attempts", "must be at least 1, got %d", c.History.MaxAttempts)
	}
	if c.History.RateLimitPerSec < 0 {
		add("history.rate_limit_per_sec", "must not be negative")
	}

	if c.Forecast.DefaultHorizonHours < 0 {
		add("forecast.default_horizon_hours", "must not be negative, got %v", c.Forecast.DefaultHorizonHours)
	}
	if c.Forecast.MaxPredictions < 1 {
		add("forecast.max_predictions", "must be at least 1, got %d", c.Forecast.MaxPredictions)
	}
	if c.Forecast.PoissonAnchor != AnchorLast && c.Forecast.PoissonAnchor != AnchorNow {
		add("forecast.poisson_anchor", "must be %q or %q, got %q", AnchorLast, AnchorNow, c.Forecast.PoissonAnchor)
	}

	if c.Cache.Size < 0 {
		add("cache.size", "must not be negative")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		add("tracing.sampling_rate", "must be within [0, 1], got %v", c.Tracing.SamplingRate)
	}
	if c.DBWait.MaxRetries < 1 {
		add("db_wait.max_retries", "must be at least 1, got %d", c.DBWait.MaxRetries)
	}
	if c.DBWait.RetryDelayMs < 0 {
		add("db_wait.retry_delay_ms", "must not be negative")
	}
	return errs
}
