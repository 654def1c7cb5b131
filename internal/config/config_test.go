package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets keys for the duration of the test
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func noEnvFile(t *testing.T) string {
	return "-env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t, "ENV", "LOG_LEVEL", "PORT", "DB_PATH", "STEAM_API_KEY", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "ALLOWED_ORIGINS")

	cfg, err := LoadConfig([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./steamtier.db", cfg.Storage.DBPath)
	assert.Empty(t, cfg.Steam.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Steam.Timeout)
	assert.Equal(t, 3, cfg.Steam.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Cache.VanityTTL)
	assert.Equal(t, time.Hour, cfg.Cache.UserTTL)
	assert.Equal(t, 30*time.Minute, cfg.Cache.GamesTTL)
	assert.Equal(t, 15*time.Minute, cfg.Cache.FamilyTTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.SweepInterval)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearEnv(t, "ENV", "LOG_LEVEL", "STEAM_API_KEY")
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PATH", "/env/catalog.db")

	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("PORT=7000\nSTEAM_API_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("STEAM_API_KEY") })

	cfg, err := LoadConfig([]string{"-env-file=" + dotenv, "-db", "/flag/catalog.db"})
	require.NoError(t, err)

	assert.Equal(t, "/flag/catalog.db", cfg.Storage.DBPath, "flag beats env")
	assert.Equal(t, "9000", cfg.Server.Port, "env beats .env")
	assert.Equal(t, "from-dotenv", cfg.Steam.APIKey, ".env beats default")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "bad environment", args: []string{"-env", "test"}},
		{name: "bad log level", args: []string{"-log-level", "loud"}},
		{name: "bad duration", env: map[string]string{"STEAM_TIMEOUT": "soon"}},
		{name: "bad rate limit", args: []string{"-rate-limit", "many"}},
		{name: "zero rate limit", args: []string{"-rate-limit", "0"}},
		{name: "unknown flag", args: []string{"-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, "ENV", "LOG_LEVEL", "STEAM_TIMEOUT", "RATE_LIMIT_MAX")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(append([]string{noEnvFile(t)}, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a , ,b,"))
	assert.Nil(t, splitList(""))
}
