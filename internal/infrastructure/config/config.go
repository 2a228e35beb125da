// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI string
	MongoDB  string

	// PostgreSQL (fleet reference data)
	PostgresURI string

	// Telegram
	TelegramAPIBaseURL    string
	TelegramBotToken      string
	TelegramAdminChatID   string
	TelegramWebhookSecret string

	// Google sign-in
	GoogleClientID string

	// Upstream scrape API
	ScrapeAPIBaseURL string

	// Workflow tuning
	NotificationCooldown time.Duration
	StaleMaxAge          time.Duration
	CompletedHideAfter   time.Duration
	ActivityLimit        int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI: getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "servicelist"),

		PostgresURI: getEnv("POSTGRES_DSN", ""),

		TelegramAPIBaseURL:    getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAdminChatID:   getEnv("TELEGRAM_ADMIN_CHAT_ID", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		ScrapeAPIBaseURL: getEnv("SCRAPE_API_BASE_URL", ""),

		NotificationCooldown: time.Duration(getEnvAsInt("NOTIFICATION_COOLDOWN_MINUTES", 15)) * time.Minute,
		StaleMaxAge:          time.Duration(getEnvAsInt("STALE_MAX_AGE_MINUTES", 120)) * time.Minute,
		CompletedHideAfter:   time.Duration(getEnvAsInt("COMPLETED_HIDE_AFTER_MINUTES", 60)) * time.Minute,
		ActivityLimit:        getEnvAsInt("ACTIVITY_LIMIT", 300),
	}

	if config.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if config.TelegramAdminChatID == "" {
		return nil, fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID is required")
	}
	if config.TelegramWebhookSecret == "" {
		return nil, fmt.Errorf("TELEGRAM_WEBHOOK_SECRET is required")
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
