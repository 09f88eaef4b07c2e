package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Poisson anchor modes.
const (
	AnchorLast = "last" // measure the horizon from the last known event
	AnchorNow  = "now"  // measure the horizon from the wall clock
)

type Config struct {
	Port               int      `mapstructure:"port"`
	DatabaseDriver     string   `mapstructure:"database_driver"` // sqlite or postgres
	DatabasePath       string   `mapstructure:"database_path"`   // sqlite file
	DatabaseURL        string   `mapstructure:"database_url"`    // postgres DSN
	LogLevel           string   `mapstructure:"log_level"`
	LogFormat          string   `mapstructure:"log_format"` // json or console
	LogFile            string   `mapstructure:"log_file"`   // rotated file in addition to stderr; empty = stderr only
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec"`
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"`
	MaxBodyBytes       int64    `mapstructure:"max_body_bytes"`
	RateLimitPerSec    float64  `mapstructure:"rate_limit_per_sec"` // per client IP; 0 = disabled
	RateLimitBurst     int      `mapstructure:"rate_limit_burst"`

	History  HistoryConfig  `mapstructure:"history"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	DBWait   DBWaitConfig   `mapstructure:"db_wait"`
}

// HistoryConfig points at the storage-location tracking service.
type HistoryConfig struct {
	BaseURL         string  `mapstructure:"base_url"`
	TimeoutSec      int     `mapstructure:"timeout_sec"`
	MaxAttempts     int     `mapstructure:"max_attempts"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"` // 0 = no limit
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

type ForecastConfig struct {
	DefaultHorizonHours float64 `mapstructure:"default_horizon_hours"`
	MaxPredictions      int     `mapstructure:"max_predictions"`
	PoissonAnchor       string  `mapstructure:"poisson_anchor"`
	Seed                uint64  `mapstructure:"seed"` // 0 = random
}

type CacheConfig struct {
	Size int `mapstructure:"size"` // forecast records kept in memory; 0 = disabled
}

type TracingConfig struct {
	Endpoint     string  `mapstructure:"endpoint"` // OTLP endpoint; empty = disabled
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// DBWaitConfig bounds the startup wait for the database.
type DBWaitConfig struct {
	MaxRetries   int `mapstructure:"max_retries"`
	RetryDelayMs int `mapstructure:"retry_delay_ms"`
}

func (c DBWaitConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c HistoryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_path", "./forecasting.db")
	v.SetDefault("database_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_file", "")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("request_timeout_sec", 30)
	v.SetDefault("shutdown_timeout_sec", 15)
	v.SetDefault("max_body_bytes", 1<<20)
	v.SetDefault("rate_limit_per_sec", 0)
	v.SetDefault("rate_limit_burst", 0)

	v.SetDefault("history.base_url", "http://localhost:5000/api/v1")
	v.SetDefault("history.timeout_sec", 10)
	v.SetDefault("history.max_attempts", 3)
	v.SetDefault("history.rate_limit_per_sec", 0)
	v.SetDefault("history.rate_limit_burst", 0)

	v.SetDefault("forecast.default_horizon_hours", 1.0)
	v.SetDefault("forecast.max_predictions", 10000)
	v.SetDefault("forecast.poisson_anchor", AnchorLast)
	v.SetDefault("forecast.seed", 0)

	v.SetDefault("cache.size", 1024)

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("db_wait.max_retries", 5)
	v.SetDefault("db_wait.retry_delay_ms", 1000)
}

// Load reads config.yaml (or path when non-empty), applies FORECASTING_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/forecasting/")
		v.AddConfigPath("$HOME/.forecasting")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// FORECASTING_HISTORY_BASE_URL overrides history.base_url.
	v.SetEnvPrefix("FORECASTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
	}
	return &cfg, nil
}
