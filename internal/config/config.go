package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath     string
	HistoryDir       string
	LogLevel         string
	Port             int
	DevMode          bool
	DefaultBudget    float64 // Investable amount used when a request omits one
	MaxConcentration float64 // Max fraction of budget per security
	SmoothingWindow  int     // SMA window for history-based prices
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		DatabasePath:     getEnv("DATABASE_PATH", "./data/universe.db"),
		HistoryDir:       getEnv("HISTORY_DIR", "./data/history"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DefaultBudget:    getEnvAsFloat("DEFAULT_BUDGET", 75000),
		MaxConcentration: getEnvAsFloat("MAX_CONCENTRATION", 0.33),
		SmoothingWindow:  getEnvAsInt("SMOOTHING_WINDOW", 20),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.DefaultBudget < 0 {
		return fmt.Errorf("DEFAULT_BUDGET must not be negative")
	}
	if c.MaxConcentration <= 0 || c.MaxConcentration > 1 {
		return fmt.Errorf("MAX_CONCENTRATION must be in (0, 1]")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
