package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adi-253/msglist/internal/logger"
	"github.com/joho/godotenv"
)

const (
	// DefaultStoreURL is where the message store listens in development
	DefaultStoreURL = "http://localhost:8080"

	// DefaultRequestTimeout bounds every call to the message store
	DefaultRequestTimeout = 10 * time.Second
)

// Config holds all environment configuration values for the application.
// These values are loaded from a .env file at startup.
type Config struct {
	// StoreURL is the base URL of the remote message store
	StoreURL string

	// RequestTimeout bounds each store call; a hung store ends up as a connectivity failure
	RequestTimeout time.Duration

	// RevertFailed drops optimistic changes the store did not confirm
	// instead of leaving them marked as failed
	RevertFailed bool

	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// LogSink is "", "stderr", "stdout" or "file:<path>"
	LogSink string

	// MetricsAddr enables a /metrics listener when non-empty, e.g. ":9102"
	MetricsAddr string

	// RefreshInterval reloads the list periodically when positive
	RefreshInterval time.Duration
}

// Load reads environment variables and returns a populated Config struct.
// It will load from a .env file if present, then read from environment variables.
// Falls back to defaults if values are not set or cannot be parsed.
func Load() *Config {
	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not read .env", "err", err)
	}

	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		StoreURL:       strings.TrimRight(getEnv("MSGLIST_STORE_URL", DefaultStoreURL), "/"),
		RequestTimeout: getDuration("MSGLIST_REQUEST_TIMEOUT", DefaultRequestTimeout),
		RevertFailed:   getBool("MSGLIST_REVERT_FAILED", false),
		LogLevel:       getEnv("MSGLIST_LOG_LEVEL", "info"),
		LogSink:        getEnv("MSGLIST_LOG_SINK", ""),
		MetricsAddr:    getEnv("MSGLIST_METRICS_ADDR", ""),

		RefreshInterval: getDuration("MSGLIST_REFRESH_INTERVAL", 0),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logger.Warn("invalid config value, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn("invalid config value, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return b
}
