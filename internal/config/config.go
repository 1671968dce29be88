// Package config provides configuration management for clipdeck.
// Configuration is loaded from environment variables (optionally seeded from a
// .env file) with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort           = 8788
	DefaultLogLevel       = "info"
	DefaultDataDir        = ".clipdeck"
	DefaultTickIntervalMs = 1000
	DefaultMaxUploadMB    = 512

	// Environment variable names
	EnvPort           = "CLIPDECK_PORT"
	EnvLogLevel       = "CLIPDECK_LOG_LEVEL"
	EnvDataDir        = "CLIPDECK_DATA_DIR"
	EnvTickIntervalMs = "CLIPDECK_TICK_INTERVAL_MS"
	EnvMaxUploadMB    = "CLIPDECK_MAX_UPLOAD_MB"
	EnvAllowedOrigins = "CLIPDECK_ALLOWED_ORIGINS"
	EnvAuthToken      = "CLIPDECK_AUTH_TOKEN"

	// Directory for uploaded media, relative to the data directory
	MediaDirname = "media"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	MediaDir() string
	TickInterval() time.Duration
	MaxUploadBytes() int64
	AllowedOrigins() []string
	AuthToken() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	tickInterval   time.Duration
	maxUploadBytes int64
	allowedOrigins []string
	authToken      string
}

// Load reads a .env file from the working directory, if one exists, and then
// builds the configuration. Variables already set in the environment win.
func Load() (*EnvConfig, error) {
	_ = godotenv.Load()
	return New()
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		tickInterval:   time.Duration(DefaultTickIntervalMs) * time.Millisecond,
		maxUploadBytes: DefaultMaxUploadMB << 20,
		allowedOrigins: []string{"*"},
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if ti := os.Getenv(EnvTickIntervalMs); ti != "" {
		ms, err := strconv.Atoi(ti)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTickIntervalMs, err)
		}
		if ms <= 0 {
			return nil, fmt.Errorf("invalid %s: interval must be positive", EnvTickIntervalMs)
		}
		cfg.tickInterval = time.Duration(ms) * time.Millisecond
	}

	if mu := os.Getenv(EnvMaxUploadMB); mu != "" {
		mb, err := strconv.ParseInt(mu, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvMaxUploadMB, err)
		}
		if mb <= 0 {
			return nil, fmt.Errorf("invalid %s: limit must be positive", EnvMaxUploadMB)
		}
		cfg.maxUploadBytes = mb << 20
	}

	if ao := os.Getenv(EnvAllowedOrigins); ao != "" {
		cfg.allowedOrigins = splitList(ao)
	}

	cfg.authToken = os.Getenv(EnvAuthToken)

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// MediaDir returns the directory holding uploaded media for live sessions
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, MediaDirname)
}

// TickInterval returns the real time between simulated playback seconds
func (c *EnvConfig) TickInterval() time.Duration {
	return c.tickInterval
}

func (c *EnvConfig) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

func (c *EnvConfig) AllowedOrigins() []string {
	return c.allowedOrigins
}

// AuthToken returns the bearer token required by the API. Empty disables auth.
func (c *EnvConfig) AuthToken() string {
	return c.authToken
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
