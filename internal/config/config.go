package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Owner-session auth for the HTTP surface.
	AuthJWTSecret string
	AuthTokenTTL  time.Duration

	// Monitoring loop.
	MonitorPollInterval time.Duration
	SearchPageSize      int

	// Redis-backed search history and monitoring records.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	HistoryTTL    time.Duration

	// SendGrid email notifications (optional).
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	NotifyEmail       string

	// Portal endpoint overrides, used by integration setups.
	PortalAuthBaseURL string
	PortalAPIBaseURL  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthTokenTTL:  getEnvAsDuration("AUTH_TOKEN_TTL", 12*time.Hour),

		MonitorPollInterval: getEnvAsDuration("MONITOR_POLL_INTERVAL", 30*time.Second),
		SearchPageSize:      getEnvAsInt("SEARCH_PAGE_SIZE", 5000),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		HistoryTTL:    getEnvAsDuration("HISTORY_TTL", 90*24*time.Hour),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Slotwatch"),
		NotifyEmail:       getEnv("NOTIFY_EMAIL", ""),

		PortalAuthBaseURL: getEnv("PORTAL_AUTH_BASE_URL", ""),
		PortalAPIBaseURL:  getEnv("PORTAL_API_BASE_URL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
