package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultBaseURL is the ExchangeRate-API v6 host prefix; the API key follows it.
	DefaultBaseURL = "https://v6.exchangerate-api.com/v6"
	// DefaultPropertiesPath is where the API key lives unless overridden.
	DefaultPropertiesPath = "config.properties"
	// APIKeyProperty is the key looked up in the properties file.
	APIKeyProperty = "API_KEY"
)

// ErrAPIKeyNotFound is returned when the properties file has no usable API_KEY entry.
var ErrAPIKeyNotFound = errors.New("API_KEY not found")

// ExchangeRateAPI describes how to reach ExchangeRate-API
type ExchangeRateAPI struct {
	BaseURL        string
	PropertiesPath string
	Timeout        time.Duration
}

// Config holds all configuration for the application
type Config struct {
	Port     string
	LogLevel string

	ExchangeRateAPI       ExchangeRateAPI
	MaxConcurrentRequests int

	// TrustedProxies lists proxy IPs/CIDRs whose forwarding headers are believed.
	// Empty means only the peer address identifies a client.
	TrustedProxies []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ExchangeRateAPI: ExchangeRateAPI{
			BaseURL:        strings.TrimRight(getEnv("EXCHANGE_RATE_API_BASE_URL", DefaultBaseURL), "/"),
			PropertiesPath: getEnv("EXCHANGE_RATE_API_PROPERTIES", DefaultPropertiesPath),
			Timeout:        time.Duration(atoiOr(getEnv("EXCHANGE_RATE_API_TIMEOUT", "10"), 10)) * time.Second,
		},
		MaxConcurrentRequests: atoiOr(getEnv("MAX_CONCURRENT_REQUESTS", "4"), 4),
		TrustedProxies:        splitList(getEnv("TRUSTED_PROXIES", "")),

		RateLimitEnabled:  getEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitRequests: mustAtoi(getEnv("RATE_LIMIT_REQUESTS", "100")),
		RateLimitWindow:   time.Duration(mustAtoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))) * time.Second,
		RateLimitBurst:    mustAtoi(getEnv("RATE_LIMIT_BURST", "10")),
	}, nil
}

// LoadAPIKey reads the flat KEY=VALUE properties file at path and returns API_KEY.
// The file is read on every call; nothing is cached.
func LoadAPIKey(path string) (string, error) {
	properties, err := godotenv.Read(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	apiKey := strings.TrimSpace(properties[APIKeyProperty])
	if apiKey == "" {
		return "", fmt.Errorf("%s: %w", path, ErrAPIKeyNotFound)
	}
	return apiKey, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// splitList splits a comma separated value, dropping empty entries
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func mustAtoi(s string) int {
	return atoiOr(s, 60)
}

func atoiOr(s string, fallback int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return i
}
