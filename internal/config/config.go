package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       slog.Level
	RedisURL       string
	DataDir        string
	PlaySessionTTL time.Duration
	AssetWorkerID  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ttl, err := time.ParseDuration(getEnv("PLAY_SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLAY_SESSION_TTL: %w", err)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("invalid PLAY_SESSION_TTL: must not be negative")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		PlaySessionTTL: ttl,
		AssetWorkerID:  getEnv("ASSET_WORKER_ID", ""),
	}, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
