// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Directory for the plan history database
	PricingBaseURL string // Base URL of the Price Source agent
	PricingTimeout time.Duration
	LogLevel       string
	Port           int
	DevMode        bool
}

// Load reads configuration from the environment, with a .env file as an
// optional overlay for development.
func Load() (*Config, error) {
	// Missing .env is fine - env vars may be set directly
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:        getEnv("DATA_DIR", "./data"),
		PricingBaseURL: getEnv("PRICING_AGENT_URL", "http://127.0.0.1:8011"),
		PricingTimeout: 10 * time.Second,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           8012,
		DevMode:        getEnv("DEV_MODE", "") == "true",
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT value %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if timeoutStr := os.Getenv("PRICING_TIMEOUT_SECONDS"); timeoutStr != "" {
		seconds, err := strconv.Atoi(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PRICING_TIMEOUT_SECONDS value %q: %w", timeoutStr, err)
		}
		cfg.PricingTimeout = time.Duration(seconds) * time.Second
	}

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

// HistoryDBPath returns the path of the plan history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// getEnv retrieves an environment variable value, returning a fallback if
// the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
