package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	GinMode        string
	DatabaseDriver string
	DatabaseURL    string
	JWTSecret      string
	JWTTTL         time.Duration
	Timezone       *time.Location

	RedisURL      string
	EventCacheTTL time.Duration

	StatusRefreshInterval time.Duration
	AuthRateLimit         int

	// Email Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using process environment")
	}

	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "2525"))
	rateLimit, _ := strconv.Atoi(getEnv("AUTH_RATE_LIMIT", "30"))

	tz, err := time.LoadLocation(getEnv("TIMEZONE", "Asia/Jakarta"))
	if err != nil {
		slog.Warn("invalid TIMEZONE, falling back to UTC", "error", err)
		tz = time.UTC
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		DatabaseDriver: getEnv("DB_DRIVER", "mysql"),
		DatabaseURL:    getEnv("DATABASE_URL", "user:password@tcp(localhost:3306)/spotrunner?charset=utf8mb4&parseTime=True&loc=Local"),
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key"),
		JWTTTL:         getDuration("JWT_TTL", 7*24*time.Hour),
		Timezone:       tz,

		RedisURL:      getEnv("REDIS_URL", ""),
		EventCacheTTL: getDuration("EVENT_CACHE_TTL", 5*time.Minute),

		StatusRefreshInterval: getDuration("STATUS_REFRESH_INTERVAL", 15*time.Minute),
		AuthRateLimit:         rateLimit,

		// Email settings
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     smtpPort,
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@spotrunner.id"),
		FromName:     getEnv("FROM_NAME", "SpotRunner"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}
