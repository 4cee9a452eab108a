package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort int
	AppEnv     string // "development" or "production"
	LogLevel   string

	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseURL    string // File path for sqlite, DSN for postgres

	SessionBackend       string // "sql" or "redis"
	RedisURL             string
	SessionSecret        string
	SessionName          string
	SessionMaxAge        int    // Seconds
	SessionSweepSchedule string // Cron schedule for clearing expired sql sessions

	BcryptCost         int
	CORSAllowedOrigins []string
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is applied first if present; real
// environment variables always win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cfg := &Config{
		ServerPort: port,
		AppEnv:     getEnv("APP_ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "./auth.db3"),

		SessionBackend:       getEnv("SESSION_BACKEND", "sql"),
		RedisURL:             getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionName:          getEnv("SESSION_NAME", "chocolatechip"),
		SessionMaxAge:        getEnvAsInt("SESSION_MAX_AGE", 60*60),
		SessionSweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "@every 1h"),

		BcryptCost:         getEnvAsInt("BCRYPT_COST", 8),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks option values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.SessionBackend {
	case "sql", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.IsProduction() && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
