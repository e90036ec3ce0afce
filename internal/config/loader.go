package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if a value cannot be parsed or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if cfg.Acquire.StagingDir == "" {
		cfg.Acquire.StagingDir = defaultStagingDir()
	}
	cfg.Database.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, ok := lookup(envName, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// lookup returns the first non-empty value among the primary and alternate
// environment variables.
func lookup(name, alt string) (string, bool) {
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, true
		}
	}
	return "", false
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(value)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// splitList splits comma-separated values, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string
	errs = append(errs, c.Acquire.validate()...)
	if c.Database.Enabled() {
		errs = append(errs, c.Database.validate()...)
	}
	if c.Archive.Enabled() {
		errs = append(errs, c.Archive.validate()...)
	}
	if c.Metrics.Addr != "" {
		errs = append(errs, c.Metrics.validate()...)
	}
	errs = append(errs, c.Logging.validate()...)
	if c.Run.TablesConfig == "" {
		errs = append(errs, "TABLES_CONFIG must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *AcquireConfig) validate() []string {
	var errs []string
	if c.StagingDir == "" {
		errs = append(errs, "STAGING_DIR must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, "ACQUIRE_HTTP_TIMEOUT must be positive")
	}
	return errs
}

func (c *DatabaseConfig) validate() []string {
	var errs []string
	if c.URL == "" && (c.User == "" || c.Name == "") {
		errs = append(errs, "DB_USER and DB_NAME are required when DB_HOST is set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT (%d) must be 1-65535", c.Port))
	}
	if c.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.MaxConns < c.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns))
	}
	if c.PingTimeout <= 0 {
		errs = append(errs, "DB_PING_TIMEOUT must be positive")
	}
	return errs
}

func (c *ArchiveConfig) validate() []string {
	var errs []string
	if c.AccessKey == "" || c.SecretKey == "" {
		errs = append(errs, "ARCHIVE_ACCESS_KEY and ARCHIVE_SECRET_KEY are required when ARCHIVE_ENDPOINT is set")
	}
	if c.Bucket == "" {
		errs = append(errs, "ARCHIVE_BUCKET is required when ARCHIVE_ENDPOINT is set")
	}
	if c.Timeout <= 0 {
		errs = append(errs, "ARCHIVE_TIMEOUT must be positive")
	}
	return errs
}

func (c *MetricsConfig) validate() []string {
	var errs []string
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		errs = append(errs, fmt.Sprintf("METRICS_ADDR (%q) must be host:port", c.Addr))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "METRICS_SHUTDOWN_TIMEOUT must be positive")
	}
	return errs
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

func (c *LoggingConfig) validate() []string {
	var errs []string
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: %s", c.Level, strings.Join(validLevels, ", ")))
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Format)) {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: %s", c.Format, strings.Join(validFormats, ", ")))
	}
	return errs
}

// String returns a safe string representation of the config for logging.
// Database URLs, passwords and archive credentials are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Acquire: {StagingDir: %q, HTTPTimeout: %s}, ",
		c.Acquire.StagingDir, c.Acquire.HTTPTimeout))
	b.WriteString(fmt.Sprintf("Database: {Enabled: %v, URL: [MASKED], Host: %q, MaxConns: %d, MinConns: %d}, ",
		c.Database.Enabled(), c.Database.Host, c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Archive: {Enabled: %v, Endpoint: %q, Bucket: %q, Credentials: [MASKED]}, ",
		c.Archive.Enabled(), c.Archive.Endpoint, c.Archive.Bucket))
	b.WriteString(fmt.Sprintf("Metrics: {Addr: %q}, ", c.Metrics.Addr))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}, ",
		c.Logging.Level, c.Logging.Format))
	b.WriteString(fmt.Sprintf("Run: {TablesConfig: %q, OutputPath: %q, Cleanup: %v}",
		c.Run.TablesConfig, c.Run.OutputPath, c.Run.Cleanup))
	b.WriteString("}")
	return b.String()
}
