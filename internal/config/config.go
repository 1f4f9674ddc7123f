// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultImageMaxBytes = 5 << 20
	bodyOverhead         = 1 << 20
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// RemoteAPIURL is the base URL of the travel spot API. Required.
	RemoteAPIURL string
	// RemoteAPIToken is sent as a bearer token when set.
	RemoteAPIToken string
	// RemoteAPITimeout bounds each outbound request. Defaults to 10s.
	RemoteAPITimeout time.Duration
	// RemoteAPIRPS caps outbound requests per second. Defaults to 10.
	RemoteAPIRPS float64

	// RedisURL enables the location option cache when set.
	RedisURL string
	// LocationCacheTTL defaults to 1h.
	LocationCacheTTL time.Duration

	// ImageMaxBytes is the upload size limit. Defaults to 5 MiB.
	ImageMaxBytes int64
	// MaxBodyBytes limits every request body. Defaults to ImageMaxBytes + 1 MiB.
	MaxBodyBytes int64

	// SessionTTL is how long an untouched editor session is kept. Defaults to 24h.
	SessionTTL time.Duration
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory, if present, is loaded first; it never
// overrides variables that are already set.
// Returns an error listing any required variables that are not set or that
// cannot be parsed.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	p := parser{}
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RemoteAPIToken:   os.Getenv("REMOTE_API_TOKEN"),
		RemoteAPITimeout: p.duration("REMOTE_API_TIMEOUT", 10*time.Second),
		RemoteAPIRPS:     p.float("REMOTE_API_RPS", 10),
		RedisURL:         os.Getenv("REDIS_URL"),
		LocationCacheTTL: p.duration("LOCATION_CACHE_TTL", time.Hour),
		ImageMaxBytes:    p.int("IMAGE_MAX_BYTES", defaultImageMaxBytes),
		SessionTTL:       p.duration("SESSION_TTL", 24*time.Hour),
	}
	cfg.MaxBodyBytes = p.int("MAX_BODY_BYTES", cfg.ImageMaxBytes+bodyOverhead)

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.RemoteAPIURL = os.Getenv("REMOTE_API_URL")
	if cfg.RemoteAPIURL == "" {
		missing = append(missing, "REMOTE_API_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser reads typed variables and collects the names of those that fail
// to parse or are not positive.
type parser struct {
	invalid []string
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func (p *parser) int(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return f
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
