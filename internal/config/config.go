// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	Env             string // "development" or "production"
	BackendURL      string
	BackendAssetURL string // base for profile images; defaults to BackendURL
	BackendTimeout  time.Duration
	SessionMaxAge   time.Duration
	Audit           AuditConfig
	RateLimit       RateLimitConfig
}

// AuditConfig controls the audit trail. DatabaseURL selects PostgreSQL;
// empty means the local SQLite file at DBPath.
type AuditConfig struct {
	DatabaseURL string
	DBPath      string
	Retention   time.Duration
}

// RateLimitConfig throttles public auth form submissions. RedisURL selects the
// shared Redis limiter; empty means in-process.
type RateLimitConfig struct {
	RedisURL string
	Attempts int
	Window   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	backendURL := strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000"), "/")

	cfg := &Config{
		Port:            getEnv("PORT", "3000"),
		Env:             strings.ToLower(getEnv("APP_ENV", "development")),
		BackendURL:      backendURL,
		BackendAssetURL: strings.TrimRight(getEnv("BACKEND_ASSET_URL", backendURL), "/"),
		BackendTimeout:  getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),
		SessionMaxAge:   getEnvDuration("SESSION_MAX_AGE", 7*24*time.Hour),
		Audit: AuditConfig{
			DatabaseURL: getEnv("AUDIT_DATABASE_URL", ""),
			DBPath:      getEnv("AUDIT_DB_PATH", "./data/audit.db"),
			Retention:   getEnvDuration("AUDIT_RETENTION", 30*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			Attempts: getEnvInt("RATE_LIMIT_ATTEMPTS", 10),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Env != "development" && c.Env != "production" {
		return fmt.Errorf("APP_ENV must be development or production, got %q", c.Env)
	}
	if u, err := url.Parse(c.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL")
	}
	if c.BackendTimeout < 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be >= 0")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be > 0")
	}
	if c.Audit.DatabaseURL == "" && c.Audit.DBPath == "" {
		return fmt.Errorf("AUDIT_DB_PATH cannot be empty")
	}
	if c.Audit.Retention <= 0 {
		return fmt.Errorf("AUDIT_RETENTION must be > 0")
	}
	if c.RateLimit.Attempts <= 0 {
		return fmt.Errorf("RATE_LIMIT_ATTEMPTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
