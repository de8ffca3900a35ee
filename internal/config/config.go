package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	StalePolicyDiscard       = "discard"
	StalePolicyLastWriteWins = "last-write-wins"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// LLM
	LLMProvider           string
	LLMConcurrentRequests int

	// Gemini AI
	GeminiAPIKey string
	GeminiModel  string

	// OpenAI
	OpenAIAPIKey string
	OpenAIModel  string

	// Redis (optional, enables cross-process fan-out of state updates)
	RedisURL string

	// Round trips
	StaleResponsePolicy string
	RoundTripTimeout    time.Duration
	SessionTTL          time.Duration

	// Requests without their own API key, per client IP
	DefaultKeyRequestsPerMin int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                     getEnvOrDefault("PORT", "8080"),
		Env:                      getEnvOrDefault("ENV", "development"),
		LogLevel:                 getEnvOrDefault("LOG_LEVEL", "info"),
		LLMProvider:              getEnvOrDefault("LLM_PROVIDER", ProviderGemini),
		LLMConcurrentRequests:    getEnvAsIntOrDefault("LLM_CONCURRENT_REQUESTS", 5),
		GeminiModel:              getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIModel:              getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		RedisURL:                 getEnvOrDefault("REDIS_URL", ""),
		StaleResponsePolicy:      getEnvOrDefault("STALE_RESPONSE_POLICY", StalePolicyDiscard),
		RoundTripTimeout:         time.Duration(getEnvAsIntOrDefault("ROUND_TRIP_TIMEOUT_SECONDS", 0)) * time.Second,
		SessionTTL:               time.Duration(getEnvAsIntOrDefault("SESSION_TTL_MINUTES", 60)) * time.Minute,
		DefaultKeyRequestsPerMin: getEnvAsIntOrDefault("DEFAULT_KEY_REQUESTS_PER_MINUTE", 10),
		FrontendURL:              getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	switch cfg.LLMProvider {
	case ProviderGemini:
		cfg.GeminiAPIKey = mustGetEnv("GEMINI_API_KEY")
	case ProviderOpenAI:
		cfg.OpenAIAPIKey = mustGetEnv("OPENAI_API_KEY")
	default:
		panic(fmt.Sprintf("unsupported LLM_PROVIDER %q", cfg.LLMProvider))
	}

	switch cfg.StaleResponsePolicy {
	case StalePolicyDiscard, StalePolicyLastWriteWins:
	default:
		panic(fmt.Sprintf("unsupported STALE_RESPONSE_POLICY %q", cfg.StaleResponsePolicy))
	}

	return cfg
}

// IsProduction reports whether logs should be structured JSON.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
