package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithViper(NewViper())
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.Development())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, DefaultAllowedOrigins, cfg.AllowedOrigins)
	assert.Empty(t, cfg.DBPath)
	assert.Zero(t, cfg.MaxActiveJobs)
	assert.Equal(t, 256, cfg.QueueSize)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.HeartbeatInterval)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SEAO_ENV", "development")
	t.Setenv("SEAO_LOG_LEVEL", "debug")
	t.Setenv("SEAO_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("SEAO_DB_PATH", "/tmp/seao.db")
	t.Setenv("SEAO_MAX_ACTIVE_JOBS", "4")
	t.Setenv("SEAO_SESSION_TTL", "90s")

	cfg, err := LoadWithViper(NewViper())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Development())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "/tmp/seao.db", cfg.DBPath)
	assert.Equal(t, int64(4), cfg.MaxActiveJobs)
	assert.Equal(t, 90*time.Second, cfg.SessionTTL)
}

func TestLoad_PrefixedPortWins(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SEAO_PORT", "9090")

	cfg, err := LoadWithViper(NewViper())
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"SEAO_QUEUE_SIZE":      "0",
		"SEAO_MAX_ACTIVE_JOBS": "-1",
		"SEAO_RATE_LIMIT_RPS":  "-2",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadWithViper(NewViper())
			assert.Error(t, err)
		})
	}
}

func TestLoad_RateLimitOptIn(t *testing.T) {
	t.Setenv("SEAO_RATE_LIMIT_RPS", "5")
	t.Setenv("SEAO_RATE_LIMIT_BURST", "0")
	_, err := LoadWithViper(NewViper())
	assert.Error(t, err)

	t.Setenv("SEAO_RATE_LIMIT_BURST", "10")
	cfg, err := LoadWithViper(NewViper())
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
}

func TestSlogLevel_Unknown(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "verbose"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "WARN"}.SlogLevel())
}
