// Package config provides centralized configuration management. It loads
// settings from environment variables with sensible defaults and validates
// everything on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Import  ImportConfig
	Schema  SchemaConfig
	Store   StoreConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// ImportConfig holds import engine settings.
type ImportConfig struct {
	// DebounceWindow is the settle delay between the last qualifying edit
	// and the validation run it schedules (default: 300ms)
	DebounceWindow time.Duration `env:"IMPORT_DEBOUNCE_WINDOW" default:"300ms"`

	// MaxFileSize is the maximum accepted upload size in bytes (default: 25MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"26214400"`

	// EmptyRowCount is how many empty rows manual entry starts with (default: 10)
	EmptyRowCount int `env:"IMPORT_EMPTY_ROW_COUNT" default:"10"`
}

// SchemaConfig holds sheet definition settings.
type SchemaConfig struct {
	// Path is the YAML file declaring the sheet definitions (required)
	Path string `env:"SCHEMA_PATH" required:"true"`
}

// StoreConfig holds snapshot persistence settings.
type StoreConfig struct {
	// Backend selects the snapshot store: file, postgres, or none (default: file)
	Backend string `env:"STORE_BACKEND" default:"file"`

	// Dir is the directory for the file backend (default: ./data)
	Dir string `env:"STORE_DIR" default:"data"`

	// DatabaseURL is the Postgres connection string for the postgres backend.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks that the configuration is consistent.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Import.DebounceWindow <= 0 {
		errs = append(errs, "IMPORT_DEBOUNCE_WINDOW must be positive")
	}
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.EmptyRowCount <= 0 {
		errs = append(errs, "IMPORT_EMPTY_ROW_COUNT must be positive")
	}

	switch c.Store.Backend {
	case "file":
		if c.Store.Dir == "" {
			errs = append(errs, "STORE_DIR is required for the file backend")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres backend")
		}
		if c.Store.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
	case "none":
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND (%q) must be one of: file, postgres, none", c.Store.Backend))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
