// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/cove/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Installation configuration
	Installation InstallationConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Metrics server (separate port for k8s probes)
	MetricsPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// InstallationConfig holds installation-wide settings consumed by catalogs.
type InstallationConfig struct {
	// WorkspaceClasses is a comma-separated list of "id:displayName" pairs;
	// the first entry is the installation default.
	WorkspaceClasses string

	// DefaultMaxParallelWorkspaces is the entitlement ceiling applied when no
	// per-org override exists. Zero means unlimited.
	DefaultMaxParallelWorkspaces int

	// InvitePruneSchedule is the cron schedule for pruning invalidated invites.
	InvitePruneSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Observability: loadObservabilityConfig(),
		Installation:  loadInstallationConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("COVE_HOST", "0.0.0.0"),
		Port:            getEnv("COVE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("COVE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("COVE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("COVE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("COVE_SHUTDOWN_TIMEOUT", 30*time.Second),
		MetricsPort:     getEnv("COVE_METRICS_PORT", "9090"),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("COVE_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("COVE_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("COVE_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("COVE_POSTGRES_CONN_LIFETIME", 30*time.Minute),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("COVE_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("COVE_METRICS_ENABLED", true),
	}
}

// loadInstallationConfig loads installation settings from environment
func loadInstallationConfig() InstallationConfig {
	return InstallationConfig{
		WorkspaceClasses:             getEnv("COVE_WORKSPACE_CLASSES", "g1-standard:Standard,g1-large:Large"),
		DefaultMaxParallelWorkspaces: getEnvInt("COVE_MAX_PARALLEL_WORKSPACES", 0),
		InvitePruneSchedule:          getEnv("COVE_INVITE_PRUNE_SCHEDULE", "@daily"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.MetricsPort == "" {
		return fmt.Errorf("metrics port is required")
	}
	if c.Server.Port == c.Server.MetricsPort {
		return fmt.Errorf("server port and metrics port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxOpenConns < c.Database.MaxIdleConns {
		return fmt.Errorf("max open connections must be >= max idle connections")
	}

	if c.Installation.WorkspaceClasses == "" {
		return fmt.Errorf("at least one workspace class is required")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
