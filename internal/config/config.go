package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// External services
	LedgerAPIURL string // ledger gateway (transactions + yearly summaries)

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Scoring
	RulesFile   string // optional YAML threshold overrides
	Timezone    string // calendar-date semantics for the day gate
	Parallelism int    // per-category fan-out inside the engine

	// Cache / persistence
	CacheTTL time.Duration
	BoltPath string

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret string
	AuthOff   bool // AUTH_OFF=true disables the bearer check (local dev)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LedgerAPIURL: getEnv("LEDGER_API_URL", "http://localhost:8091"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		RulesFile:   getEnv("AUDIT_RULES_FILE", ""),
		Timezone:    getEnv("AUDIT_TIMEZONE", "Asia/Tokyo"),
		Parallelism: getEnvInt("AUDIT_PARALLELISM", 8),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		BoltPath: getEnv("BOLT_PATH", "audit-results.db"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret: getEnv("JWT_SECRET", "keiri-default-dev-secret-change-me"),
		AuthOff:   getEnv("AUTH_OFF", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
