package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	TelegramToken string
	DatabaseURL   string
	LogLevel      string
	Port          string
	UploadDir     string
	BaseURL       string

	// DemoMode selects the in-memory store with seed data instead of
	// Postgres. It is an explicit switch, never a silent fallback.
	DemoMode bool

	// AllowAssigneeUndo lets a bartender revert their own completed task.
	// Admins can always undo.
	AllowAssigneeUndo bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		Port:              getEnvOrDefault("PORT", "8080"),
		UploadDir:         getEnvOrDefault("UPLOAD_DIR", "uploads"),
		BaseURL:           getEnvOrDefault("BASE_URL", "http://localhost:8080"),
		DemoMode:          getEnvBool("DEMO_MODE", false),
		AllowAssigneeUndo: getEnvBool("ALLOW_ASSIGNEE_UNDO", true),
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if cfg.DemoMode {
		return cfg, nil
	}

	// Required outside demo mode
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN environment variable is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required (or set DEMO_MODE=true)")
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}
