package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Provider  ProviderConfig
	LLM       LLMConfig
	Cache     CacheConfig
	Profiles  ProfilesConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// ProviderConfig controls the scraping provider client.
type ProviderConfig struct {
	// BaseURL is the provider API root.
	BaseURL string // default: "https://api.apify.com/v2"

	// ActorID selects the scraping actor.
	ActorID string // default: "web.harvester~twitter-scraper"

	// PollInterval is the fixed wait before each status read.
	PollInterval time.Duration // default: 5s

	// PollDeadline bounds the whole poll loop. Zero means unbounded.
	PollDeadline time.Duration // default: 0

	// HTTPTimeout is the per-request timeout for provider calls.
	HTTPTimeout time.Duration // default: 60s
}

// LLMConfig holds server-side defaults for analysis requests.
// Keys are always supplied by the caller.
type LLMConfig struct {
	BaseURL string        // default: "https://api.openai.com/v1"
	Model   string        // default: "gpt-4o-mini"
	Timeout time.Duration // default: 120s
}

// CacheConfig controls the analysis result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached analyses.
	MaxEntries int // default: 256
}

// ProfilesConfig controls analysis profile presets.
type ProfilesConfig struct {
	// File is an optional YAML file with extra built-in profiles.
	File string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("TWEETSCOPE_HOST", "0.0.0.0"),
			Port: envIntOr("TWEETSCOPE_PORT", 8080),
			Mode: envOr("TWEETSCOPE_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("TWEETSCOPE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("TWEETSCOPE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TWEETSCOPE_RATE_RPS", 5.0),
			Burst:             envIntOr("TWEETSCOPE_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("TWEETSCOPE_LOG_LEVEL", "info"),
			Format: envOr("TWEETSCOPE_LOG_FORMAT", "json"),
		},
		Provider: ProviderConfig{
			BaseURL:      envOr("TWEETSCOPE_PROVIDER_URL", "https://api.apify.com/v2"),
			ActorID:      envOr("TWEETSCOPE_ACTOR_ID", "web.harvester~twitter-scraper"),
			PollInterval: envDurationOr("TWEETSCOPE_POLL_INTERVAL", 5*time.Second),
			PollDeadline: envDurationOr("TWEETSCOPE_POLL_DEADLINE", 0),
			HTTPTimeout:  envDurationOr("TWEETSCOPE_PROVIDER_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			BaseURL: envOr("TWEETSCOPE_LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:   envOr("TWEETSCOPE_LLM_MODEL", "gpt-4o-mini"),
			Timeout: envDurationOr("TWEETSCOPE_LLM_TIMEOUT", 120*time.Second),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("TWEETSCOPE_CACHE_MAX_ENTRIES", 256),
		},
		Profiles: ProfilesConfig{
			File: os.Getenv("TWEETSCOPE_PROFILES_FILE"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
