package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"shiftledger/internal/common"
)

// Config holds all application configuration
type Config struct {
	Vision  VisionConfig
	History HistoryConfig
}

// VisionConfig holds Gemini-related configuration
type VisionConfig struct {
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
	RPMLimit    int
	MaxRetries  int
}

// HistoryConfig holds run-history store configuration
type HistoryConfig struct {
	Path string
}

// LoadConfig loads configuration from the environment, reading a .env file
// first when one is present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Vision: VisionConfig{
			Model:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Temperature: getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("GEMINI_TIMEOUT", 90*time.Second),
			RPMLimit:    getEnvAsInt("GEMINI_RPM_LIMIT", 10),
			MaxRetries:  getEnvAsInt("GEMINI_MAX_RETRIES", 3),
		},
		History: HistoryConfig{
			Path: getEnv("HISTORY_DB_PATH", "./shiftledger.db"),
		},
	}
}

// Validate checks the parts of the configuration the current command needs.
func (c *Config) Validate(needVision bool) error {
	if needVision && c.Vision.APIKey == "" {
		return common.NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", common.ErrConfig)
	}
	return nil
}

// Helper functions for environment variable parsing
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
