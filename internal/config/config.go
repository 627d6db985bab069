package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Remote library service
	APIBaseURL string `env:"API_BASE_URL" default:"http://localhost:5000"`
	SocketURL  string `env:"SOCKET_URL" default:"ws://localhost:5000/ws"`

	// Local state database (device-local key/value storage)
	DatabaseURL    string `env:"DATABASE_URL" default:"librahub.db"`
	MigrationsPath string `env:"MIGRATIONS_PATH" default:"file://database/migrations"`

	// HTTP client behaviour
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" default:"10s"`
	RateLimit   int           `env:"RATE_LIMIT" default:"10"`
	RateBurst   int           `env:"RATE_BURST" default:"20"`

	// Push channel reconnection: bounded attempts with a fixed delay,
	// matching the service transport settings
	ReconnectAttempts int           `env:"RECONNECT_ATTEMPTS" default:"5"`
	ReconnectDelay    time.Duration `env:"RECONNECT_DELAY" default:"3s"`

	// Recommendations
	RecommendLimit int `env:"RECOMMEND_LIMIT" default:"10"`

	// Development
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Try to load .env file from the working directory
	err := godotenv.Load(".env")
	if err != nil {
		// If .env file doesn't exist, that's OK - we can still use system env vars
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}

	// Remote service
	if err := loadEnvString(&config.APIBaseURL, "API_BASE_URL", "http://localhost:5000"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.SocketURL, "SOCKET_URL", "ws://localhost:5000/ws"); err != nil {
		return nil, err
	}

	// Local state
	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL", "librahub.db"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.MigrationsPath, "MIGRATIONS_PATH", "file://database/migrations"); err != nil {
		return nil, err
	}

	// HTTP client
	if err := loadEnvDuration(&config.HTTPTimeout, "HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.RateLimit, "RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.RateBurst, "RATE_BURST", 20); err != nil {
		return nil, err
	}

	// Push channel
	if err := loadEnvInt(&config.ReconnectAttempts, "RECONNECT_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.ReconnectDelay, "RECONNECT_DELAY", 3*time.Second); err != nil {
		return nil, err
	}

	// Recommendations
	if err := loadEnvInt(&config.RecommendLimit, "RECOMMEND_LIMIT", 10); err != nil {
		return nil, err
	}

	// Development
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}

	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		errors = append(errors, "API_BASE_URL must start with http:// or https://")
	}
	if !strings.HasPrefix(c.SocketURL, "ws://") && !strings.HasPrefix(c.SocketURL, "wss://") {
		errors = append(errors, "SOCKET_URL must start with ws:// or wss://")
	}

	if c.ReconnectAttempts < 0 {
		errors = append(errors, "RECONNECT_ATTEMPTS must not be negative")
	}
	if c.RateLimit < 1 {
		errors = append(errors, "RATE_LIMIT must be at least 1")
	}
	if c.RecommendLimit < 1 {
		errors = append(errors, "RECOMMEND_LIMIT must be at least 1")
	}

	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	// Validate log format
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
