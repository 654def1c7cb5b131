// Package config loads service configuration from flags, environment
// variables, a .env file and defaults, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Storage   StorageConfig
	Steam     SteamConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	StaticDir       string // optional frontend build to serve at /
}

// StorageConfig holds the catalog database location.
type StorageConfig struct {
	DBPath string
}

// SteamConfig holds Steam Web API access settings.
type SteamConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxAttempts       int
}

// CacheConfig holds response cache lifetimes.
type CacheConfig struct {
	VanityTTL     time.Duration
	UserTTL       time.Duration
	GamesTTL      time.Duration
	FamilyTTL     time.Duration
	SweepInterval time.Duration
}

// RateLimitConfig holds the inbound per-client limits.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// LoadConfig reads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("steamtier", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	port := fs.String("port", "", "Server port (default: 8080)")
	dbPath := fs.String("db", "", "SQLite catalog database path")
	staticDir := fs.String("static", "", "Frontend build directory to serve at /")
	origins := fs.String("allowed-origins", "", "Comma separated CORS origins")
	steamKey := fs.String("steam-api-key", "", "Steam Web API key")
	steamBaseURL := fs.String("steam-base-url", "", "Steam Web API base URL")
	steamTimeout := fs.String("steam-timeout", "", "Steam request timeout (default: 15s)")
	rateMax := fs.String("rate-limit", "", "Requests per client per window (default: 10)")
	rateWindow := fs.String("rate-window", "", "Rate limit window (default: 1m)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*port, "PORT", "8080"),
			StaticDir:      getConfigValue(*staticDir, "STATIC_DIR", ""),
			AllowedOrigins: splitList(getConfigValue(*origins, "ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		Storage: StorageConfig{
			DBPath: getConfigValue(*dbPath, "DB_PATH", "./steamtier.db"),
		},
		Steam: SteamConfig{
			APIKey:  getConfigValue(*steamKey, "STEAM_API_KEY", ""),
			BaseURL: getConfigValue(*steamBaseURL, "STEAM_API_BASE_URL", "https://api.steampowered.com"),
			Burst:   getIntConfigValue("", "STEAM_BURST", 5),
		},
	}

	var err error
	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, "", "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, "", "SERVER_WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, "", "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Server.ShutdownTimeout, "", "SERVER_SHUTDOWN_TIMEOUT", "10s"},
		{&cfg.Steam.Timeout, *steamTimeout, "STEAM_TIMEOUT", "15s"},
		{&cfg.Cache.VanityTTL, "", "CACHE_VANITY_TTL", "24h"},
		{&cfg.Cache.UserTTL, "", "CACHE_USER_TTL", "60m"},
		{&cfg.Cache.GamesTTL, "", "CACHE_GAMES_TTL", "30m"},
		{&cfg.Cache.FamilyTTL, "", "CACHE_FAMILY_TTL", "15m"},
		{&cfg.Cache.SweepInterval, "", "CACHE_SWEEP_INTERVAL", "10m"},
		{&cfg.RateLimit.Window, *rateWindow, "RATE_LIMIT_WINDOW", "1m"},
	}
	for _, d := range durations {
		if *d.dst, err = getDurationConfigValue(d.flag, d.envKey, d.fallback); err != nil {
			return nil, err
		}
	}

	if cfg.RateLimit.MaxRequests, err = getStrictIntConfigValue(*rateMax, "RATE_LIMIT_MAX", 10); err != nil {
		return nil, err
	}
	if cfg.Steam.MaxAttempts, err = getStrictIntConfigValue("", "STEAM_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	rps := getConfigValue("", "STEAM_REQUESTS_PER_SECOND", "5")
	if cfg.Steam.RequestsPerSecond, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("invalid STEAM_REQUESTS_PER_SECOND %q: %w", rps, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Server.Port == "" {
		return errors.New("port cannot be empty")
	}
	if c.Storage.DBPath == "" {
		return errors.New("database path cannot be empty")
	}
	if c.RateLimit.MaxRequests < 1 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.Steam.RequestsPerSecond < 0 {
		return errors.New("steam requests per second cannot be negative")
	}

	// An empty Steam API key is allowed: family imports only need a user token.

	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	n, err := getStrictIntConfigValue(flagValue, envKey, defaultValue)
	if err != nil {
		return defaultValue
	}
	return n
}

func getStrictIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	s := getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return n, nil
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
