// Package config handles configuration loading from environment variables
// and an optional YAML config file. Environment variables take precedence.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Control plane database connection string
	DatabaseURL string

	// HTTP server port for the controller
	HTTPPort int

	// Shared secret for the admin review endpoints
	AdminSecret string

	// Per-statement timeout applied on tenant database connections
	StatementTimeout time.Duration

	// DSN template used for tenants created without an explicit DSN.
	// The literal "{schema}" is replaced with the tenant's schema name.
	TenantDSNTemplate string

	// Runner-specific configuration
	RunnerPollInterval time.Duration
	RunnerBatchLimit   int

	// URL of the controller (e.g., "http://localhost:6161")
	ControllerURL string

	// OTLP collector endpoint for traces
	OTELEndpoint string
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"database_url":         "DATABASE_URL",
	"http_port":            "PORT",
	"admin_secret":         "ADMIN_SECRET",
	"statement_timeout":    "STATEMENT_TIMEOUT",
	"tenant_dsn_template":  "TENANT_DSN_TEMPLATE",
	"runner_poll_interval": "RUNNER_POLL_INTERVAL",
	"runner_batch_limit":   "RUNNER_BATCH_LIMIT",
	"controller_url":       "CONTROLLER_URL",
	"otel_endpoint":        "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// Load reads configuration from the optional config file and the environment.
// An empty configFile skips file loading entirely.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 6161)
	v.SetDefault("statement_timeout", "30s")
	v.SetDefault("runner_poll_interval", "5s")
	v.SetDefault("runner_batch_limit", 10)
	v.SetDefault("controller_url", "http://localhost:6161")
	v.SetDefault("otel_endpoint", "localhost:4317")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:        v.GetString("database_url"),
		HTTPPort:           v.GetInt("http_port"),
		AdminSecret:        v.GetString("admin_secret"),
		StatementTimeout:   v.GetDuration("statement_timeout"),
		TenantDSNTemplate:  v.GetString("tenant_dsn_template"),
		RunnerPollInterval: v.GetDuration("runner_poll_interval"),
		RunnerBatchLimit:   v.GetInt("runner_batch_limit"),
		ControllerURL:      v.GetString("controller_url"),
		OTELEndpoint:       v.GetString("otel_endpoint"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required (env: DATABASE_URL)")
	}
	if cfg.RunnerBatchLimit <= 0 {
		return nil, fmt.Errorf("runner_batch_limit must be positive, got %d", cfg.RunnerBatchLimit)
	}
	if cfg.StatementTimeout <= 0 {
		return nil, fmt.Errorf("statement_timeout must be positive, got %v", cfg.StatementTimeout)
	}

	return cfg, nil
}
