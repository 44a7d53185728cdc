// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the server and CLI. Provider API
// keys (OPENAI_API_KEY, ANTHROPIC_API_KEY) are read by the SDK clients
// themselves and deliberately not duplicated here.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// OpenAIModel answers data-analysis style weather questions.
	OpenAIModel string
	// AnthropicModel is the conversational candidate.
	AnthropicModel string
	// RouterModel is the lightweight auxiliary model used for routing.
	RouterModel string

	// MaxIterations bounds the agent loop per request.
	MaxIterations int
	// ChunkDelay paces synthetic content chunks on the streaming surface.
	ChunkDelay time.Duration

	// RedisAddr enables the Redis session store when non-empty; sessions are
	// kept in memory otherwise.
	RedisAddr string
	// SessionTTL expires idle Redis sessions; zero keeps them forever.
	SessionTTL time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; missing values fall back to
// defaults that work for local development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getString("SKYCAST_ADDR", ":8080"),
		OpenAIModel:    getString("SKYCAST_OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicModel: getString("SKYCAST_ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		RouterModel:    getString("SKYCAST_ROUTER_MODEL", "gpt-4o-mini"),
		MaxIterations:  getInt("SKYCAST_MAX_ITERATIONS", 5),
		ChunkDelay:     getDuration("SKYCAST_CHUNK_DELAY", 20*time.Millisecond),
		RedisAddr:      getString("SKYCAST_REDIS_ADDR", ""),
		SessionTTL:     getDuration("SKYCAST_SESSION_TTL", 0),
		LogLevel:       getString("SKYCAST_LOG_LEVEL", "info"),
		LogFormat:      getString("SKYCAST_LOG_FORMAT", "text"),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
