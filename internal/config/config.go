// Package config loads castplane settings from a YAML file, the environment and defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"castplane/internal/retry"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. CASTPLANE_HTTP_PORT.
const EnvPrefix = "CASTPLANE"

// MaxAttempts caps every outbound retry policy. A job is never tried a fourth
// time.
const MaxAttempts = 3

// InvalidError reports a setting that fails a startup precondition.
type InvalidError struct {
	Key    string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Key, e.Reason)
}

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the controller
	HTTPPort int

	// One of debug, info, warn, error
	LogLevel string

	// OTLP gRPC collector address
	OTELEndpoint string

	// Share of root traces recorded, 0 to 1
	OTELSampleRatio float64

	// Shared secret for /admin routes. Admin routes are disabled when empty.
	AdminSecret string

	// Event bus ingestion endpoint and key
	EventsURL string
	EventsKey string

	// Blob storage API
	BlobAPIURL string
	BlobToken  string

	// Largest accepted upload in bytes
	MaxFileSize int64

	DispatchMaxAttempts    int
	DispatchBaseDelay      time.Duration
	DispatchAttemptTimeout time.Duration

	CleanupMaxAttempts    int
	CleanupBaseDelay      time.Duration
	CleanupAttemptTimeout time.Duration

	// How long an idle per-user rate limiter is kept
	RateLimitTTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 6161)
	v.SetDefault("log_level", "info")
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("otel_sample_ratio", 1.0)
	v.SetDefault("admin_secret", "")
	v.SetDefault("events.url", "http://localhost:8288")
	v.SetDefault("events.key", "")
	v.SetDefault("blob.api_url", "")
	v.SetDefault("blob.token", "")
	v.SetDefault("uploads.max_file_size", 100*1024*1024)
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.base_delay", 500*time.Millisecond)
	v.SetDefault("dispatch.attempt_timeout", 5*time.Second)
	v.SetDefault("cleanup.max_attempts", 3)
	v.SetDefault("cleanup.base_delay", 200*time.Millisecond)
	v.SetDefault("cleanup.attempt_timeout", 5*time.Second)
	v.SetDefault("rate_limit.ttl", 5*time.Minute)
}

// Load reads configuration with precedence env > config file > defaults.
// With an empty path, castplane.yaml is looked up in the working directory
// and is optional.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only sees keys viper already knows about.
	_ = v.BindEnv("database_url")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("castplane")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:     v.GetString("database_url"),
		HTTPPort:        v.GetInt("http_port"),
		LogLevel:        v.GetString("log_level"),
		OTELEndpoint:    v.GetString("otel_endpoint"),
		OTELSampleRatio: v.GetFloat64("otel_sample_ratio"),
		AdminSecret:     v.GetString("admin_secret"),
		EventsURL:       v.GetString("events.url"),
		EventsKey:       v.GetString("events.key"),
		BlobAPIURL:      v.GetString("blob.api_url"),
		BlobToken:       v.GetString("blob.token"),
		MaxFileSize:     v.GetInt64("uploads.max_file_size"),
		RateLimitTTL:    v.GetDuration("rate_limit.ttl"),

		DispatchMaxAttempts:    v.GetInt("dispatch.max_attempts"),
		DispatchBaseDelay:      v.GetDuration("dispatch.base_delay"),
		DispatchAttemptTimeout: v.GetDuration("dispatch.attempt_timeout"),
		CleanupMaxAttempts:     v.GetInt("cleanup.max_attempts"),
		CleanupBaseDelay:       v.GetDuration("cleanup.base_delay"),
		CleanupAttemptTimeout:  v.GetDuration("cleanup.attempt_timeout"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (env: %s_DATABASE_URL)", EnvPrefix)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q (must be 'debug', 'info', 'warn' or 'error')", c.LogLevel)
	}
	if c.OTELSampleRatio < 0 || c.OTELSampleRatio > 1 {
		return &InvalidError{Key: "otel_sample_ratio", Reason: fmt.Sprintf("must be between 0 and 1, got %v", c.OTELSampleRatio)}
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("uploads.max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if err := checkEndpoint("events.url", c.EventsURL); err != nil {
		return err
	}
	if err := checkEndpoint("blob.api_url", c.BlobAPIURL); err != nil {
		return err
	}
	if err := checkPolicy("dispatch", c.DispatchMaxAttempts, c.DispatchAttemptTimeout); err != nil {
		return err
	}
	return checkPolicy("cleanup", c.CleanupMaxAttempts, c.CleanupAttemptTimeout)
}

// checkEndpoint requires an absolute http(s) URL.
func checkEndpoint(key, raw string) error {
	if raw == "" {
		return &InvalidError{Key: key, Reason: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &InvalidError{Key: key, Reason: err.Error()}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &InvalidError{Key: key, Reason: fmt.Sprintf("%q is not an absolute http(s) URL", raw)}
	}
	return nil
}

func checkPolicy(prefix string, attempts int, attemptTimeout time.Duration) error {
	if attempts < 1 || attempts > MaxAttempts {
		return &InvalidError{
			Key:    prefix + ".max_attempts",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxAttempts, attempts),
		}
	}
	if attemptTimeout <= 0 {
		return &InvalidError{
			Key:    prefix + ".attempt_timeout",
			Reason: fmt.Sprintf("must be positive, got %v", attemptTimeout),
		}
	}
	return nil
}

// DispatchPolicy is the retry policy for sending events.
func (c *Config) DispatchPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    c.DispatchMaxAttempts,
		BaseDelay:      c.DispatchBaseDelay,
		AttemptTimeout: c.DispatchAttemptTimeout,
	}
}

// CleanupPolicy is the retry policy for deleting blobs.
func (c *Config) CleanupPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    c.CleanupMaxAttempts,
		BaseDelay:      c.CleanupBaseDelay,
		AttemptTimeout: c.CleanupAttemptTimeout,
	}
}

// ActionBudget is the longest a single request can spend in retried
// outbound calls.
func (c *Config) ActionBudget() time.Duration {
	return max(c.DispatchPolicy().Budget(), c.CleanupPolicy().Budget())
}
