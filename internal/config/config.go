package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable the ingestion, scheduling, replay, and
// fallback components need at startup.
type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Durable stores
	PostgresURL string
	RedisURL    string

	// Ingestion loop
	PollInterval  time.Duration
	BatchSize     int
	FlushInterval time.Duration

	// Scheduler
	MaxConcurrentMatches int
	StreamLeadTime       time.Duration
	LateStartWindow      time.Duration
	CalendarLookahead    time.Duration

	// Replay
	ReplaySpeed        float64
	ReplayPushInterval time.Duration

	// Fallback normalizer
	FallbackMappingPath string

	// Upstream feed
	FeedBaseURL     string
	CalendarBaseURL string
}

// Load reads configuration from the environment. It fails fast if any
// critical value is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		PollInterval:  getEnvDuration("POLL_INTERVAL", 10*time.Second),
		BatchSize:     getEnvInt("BATCH_SIZE", 200),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 1*time.Second),

		MaxConcurrentMatches: getEnvInt("MAX_CONCURRENT_MATCHES", 16),
		StreamLeadTime:       getEnvDuration("STREAM_LEAD_TIME", 10*time.Minute),
		LateStartWindow:      getEnvDuration("LATE_START_WINDOW", 180*time.Minute),
		CalendarLookahead:    getEnvDuration("CALENDAR_LOOKAHEAD", 7*24*time.Hour),

		ReplaySpeed:        getEnvFloat("REPLAY_SPEED", 1.0),
		ReplayPushInterval: getEnvDuration("REPLAY_PUSH_INTERVAL", 5*time.Second),

		FallbackMappingPath: getEnv("FALLBACK_MAPPING_PATH", "./data/fallback_mappings.json"),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}
	if cfg.FeedBaseURL, err = getEnvRequired("FEED_BASE_URL"); err != nil {
		return nil, err
	}
	if cfg.CalendarBaseURL, err = getEnvRequired("CALENDAR_BASE_URL"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
