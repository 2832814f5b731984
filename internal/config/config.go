// Package config provides configuration management for the log daemon.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the log daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Schema  SchemaConfig  `yaml:"schema"`
	Flush   FlushConfig   `yaml:"flush"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig represents ingestion-socket server configuration.
type ServerConfig struct {
	SocketPath     string `yaml:"socket_path"`
	MaxConnections int    `yaml:"max_connections"`
}

// StorageConfig represents the Parquet storage engine configuration.
type StorageConfig struct {
	Dir          string `yaml:"dir"`
	Compression  string `yaml:"compression"` // snappy, zstd, gzip, none
	BatchSize    int    `yaml:"batch_size"`
	RotationSize int64  `yaml:"rotation_size"` // accepted, currently unused; see DESIGN.md
}

// SchemaConfig represents the validator's schema source.
type SchemaConfig struct {
	Path string `yaml:"path"` // empty = built-in default schema, fast path enabled
}

// FlushConfig represents the flusher's idle-flush behavior.
type FlushConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// MetricsConfig represents the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // empty = stderr only; set to rotate via lumberjack
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			SocketPath:     "/tmp/logdaemon.sock",
			MaxConnections: 256,
		},
		Storage: StorageConfig{
			Dir:         "./data",
			Compression: "zstd",
			BatchSize:   1000,
		},
		Schema: SchemaConfig{
			Path: "",
		},
		Flush: FlushConfig{
			IntervalSeconds: 5,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9477",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file and environment variables.
// Environment variables override file configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 -- path is from command-line argument, user-controlled input is expected
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LOGDAEMON_SOCKET_PATH"); v != "" {
		c.Server.SocketPath = v
	}
	if v := os.Getenv("LOGDAEMON_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.MaxConnections = n
		}
	}
	if v := os.Getenv("LOGDAEMON_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("LOGDAEMON_COMPRESSION"); v != "" {
		c.Storage.Compression = v
	}
	if v := os.Getenv("LOGDAEMON_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Storage.BatchSize = n
		}
	}
	if v := os.Getenv("LOGDAEMON_ROTATION_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Storage.RotationSize = n
		}
	}
	if v := os.Getenv("LOGDAEMON_SCHEMA_PATH"); v != "" {
		c.Schema.Path = v
	}
	if v := os.Getenv("LOGDAEMON_FLUSH_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Flush.IntervalSeconds = n
		}
	}
	if v := os.Getenv("LOGDAEMON_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("LOGDAEMON_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOGDAEMON_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LOGDAEMON_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate validates the configuration. Compression is deliberately not
// validated here: an unrecognized value is a storage-engine fallback to
// Snappy, not a startup error.
func (c *Config) Validate() error {
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max_connections: %d", c.Server.MaxConnections)
	}
	if c.Server.SocketPath == "" {
		return fmt.Errorf("socket_path must not be empty")
	}
	if c.Storage.BatchSize < 1 {
		return fmt.Errorf("invalid batch_size: %d", c.Storage.BatchSize)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage dir must not be empty")
	}
	if c.Flush.IntervalSeconds < 1 {
		return fmt.Errorf("invalid flush interval_seconds: %d", c.Flush.IntervalSeconds)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	return nil
}
