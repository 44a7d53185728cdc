package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, 20*time.Millisecond, cfg.ChunkDelay)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SKYCAST_ADDR", ":9999")
	t.Setenv("SKYCAST_MAX_ITERATIONS", "7")
	t.Setenv("SKYCAST_CHUNK_DELAY", "50ms")
	t.Setenv("SKYCAST_REDIS_ADDR", "localhost:6379")
	t.Setenv("SKYCAST_SESSION_TTL", "24h")
	t.Setenv("SKYCAST_LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, 50*time.Millisecond, cfg.ChunkDelay)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SKYCAST_MAX_ITERATIONS", "many")
	t.Setenv("SKYCAST_CHUNK_DELAY", "soon")

	cfg := Load()

	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, 20*time.Millisecond, cfg.ChunkDelay)
}
