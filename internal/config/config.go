// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Edit     EditConfig
	Session  SessionConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver selects the session backend: postgres or memory (default: postgres).
	// The memory driver edits an empty in-process store and needs no server.
	Driver string `env:"DATABASE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// EditConfig holds editing session settings.
type EditConfig struct {
	// MaxWaitTime is how long an edit waits for the database session (default: 10s)
	MaxWaitTime time.Duration `env:"EDIT_MAX_WAIT_TIME" default:"10s"`

	// JournalSize is the number of edit journal entries kept in memory (default: 1000)
	JournalSize int `env:"EDIT_JOURNAL_SIZE" default:"1000"`

	// MaxImportSize is the largest accepted CSV import in bytes (default: 10MB)
	MaxImportSize int64 `env:"EDIT_MAX_IMPORT_SIZE" default:"10485760"`
}

// SessionConfig holds settings for saved session scripts.
type SessionConfig struct {
	// Dir is where patch and rollback scripts are written (default: sessions)
	Dir string `env:"SESSION_DIR" default:"sessions"`

	// FilePrepend is written before every saved script. \n and \t are expanded.
	FilePrepend string `env:"SESSION_FILE_PREPEND"`

	// FileAppend is written after every saved script. \n and \t are expanded.
	FileAppend string `env:"SESSION_FILE_APPEND"`

	// AutosaveInterval is how often the session is autosaved; 0 disables (default: 1m)
	AutosaveInterval time.Duration `env:"SESSION_AUTOSAVE_INTERVAL" default:"1m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enforces X-API-Key on every API route (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}

var escapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t")

// Prepend returns FilePrepend with escapes expanded.
func (c *SessionConfig) Prepend() string { return escapes.Replace(c.FilePrepend) }

// Append returns FileAppend with escapes expanded.
func (c *SessionConfig) Append() string { return escapes.Replace(c.FileAppend) }
