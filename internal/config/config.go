// Package config provides centralized configuration management for gathernomics.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Acquire  AcquireConfig
	Database DatabaseConfig
	Archive  ArchiveConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
	Run      RunConfig
}

// AcquireConfig holds table download settings.
type AcquireConfig struct {
	// StagingDir is where zips are written and extracted (default: $TMPDIR/gathernomics/zips)
	StagingDir string `env:"STAGING_DIR"`

	// HTTPTimeout bounds a single table download including the body (default: 5m)
	HTTPTimeout time.Duration `env:"ACQUIRE_HTTP_TIMEOUT" default:"5m"`

	// UserAgent is sent with every download request
	UserAgent string `env:"ACQUIRE_USER_AGENT" default:"gathernomics/1.0"`
}

// DatabaseConfig holds database connection settings.
// Persistence is disabled when neither a URL nor a host is configured.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Host, Port, User, Password, Name and SSLMode build a URL when URL is unset
	Host     string `env:"DB_HOST"`
	Port     int    `env:"DB_PORT" default:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" default:"CanDevFinaceCanada"`
	SSLMode  string `env:"DB_SSLMODE"`

	// MaxConns is the maximum number of open connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the number of idle connections to keep (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// PingTimeout bounds the start-up connection test (default: 5s)
	PingTimeout time.Duration `env:"DB_PING_TIMEOUT" default:"5s"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

var currentUser = user.Current

// ApplyDefaults fills User with the login name of the current OS user when a
// host is configured without one.
func (c *DatabaseConfig) ApplyDefaults() {
	if c.URL != "" || c.Host == "" || c.User != "" {
		return
	}
	u, err := currentUser()
	if err != nil {
		slog.Debug("no os user for database login", "error", err)
		return
	}
	c.User = u.Username
}

// ArchiveConfig holds settings for copying acquired zips to S3-compatible storage.
// Archival is disabled when Endpoint is empty.
type ArchiveConfig struct {
	Endpoint  string `env:"ARCHIVE_ENDPOINT"`
	AccessKey string `env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"ARCHIVE_SECRET_KEY"`
	Bucket    string `env:"ARCHIVE_BUCKET" default:"gathernomics"`

	// UseSSL selects https for the endpoint (default: true)
	UseSSL bool `env:"ARCHIVE_USE_SSL" default:"true"`

	// Timeout bounds a single upload (default: 2m)
	Timeout time.Duration `env:"ARCHIVE_TIMEOUT" default:"2m"`
}

// Enabled reports whether archival is configured.
func (c *ArchiveConfig) Enabled() bool {
	return c.Endpoint != ""
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is the listen address for /metrics and /healthz; empty disables the endpoint
	Addr string `env:"METRICS_ADDR"`

	// ShutdownTimeout is how long to wait for the endpoint to stop (default: 5s)
	ShutdownTimeout time.Duration `env:"METRICS_SHUTDOWN_TIMEOUT" default:"5s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// RunConfig holds per-run settings.
type RunConfig struct {
	// TablesConfig is the JSON or YAML file listing the tables (default: ./config.json)
	TablesConfig string `env:"TABLES_CONFIG" default:"config.json"`

	// OutputPath receives a CSV dump of every record when set
	OutputPath string `env:"OUTPUT_PATH"`

	// Cleanup removes staged files at the end of the run (default: false)
	Cleanup bool `env:"CLEANUP" default:"false"`

	// Tables restricts the run to the named tables (comma-separated)
	Tables []string `env:"TABLES"`
}

// defaultStagingDir mirrors the system temp directory layout used for zips.
func defaultStagingDir() string {
	return filepath.Join(os.TempDir(), "gathernomics", "zips")
}
