package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	RefreshToken string
	OutputDir    string
	CacheDir     string
	PageSize     int
	HTTPTimeout  time.Duration
	Debug        bool
}

// Load creates a Config from environment variables with defaults. A .env file
// in the working directory is read first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		RefreshToken: getEnv("PIXIV_REFRESH_TOKEN", ""),
		OutputDir:    getEnv("PIXIV_OUTPUT_DIR", "./downloads"),
		CacheDir:     getEnv("PIXIV_CACHE_DIR", ""),
		PageSize:     getEnvInt("PIXIV_PAGE_SIZE", 30),
		HTTPTimeout:  getEnvDuration("PIXIV_HTTP_TIMEOUT", 30*time.Second),
		Debug:        getEnvBool("PIXIV_DEBUG", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
