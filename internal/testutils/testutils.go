package testutils

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"currency-rate-api/internal/config"
	"currency-rate-api/internal/logger"

	"github.com/sirupsen/logrus"
)

// TestAPIKey is written to properties files created by WritePropertiesFile
const TestAPIKey = "test-api-key"

// MockLogger creates a logger that discards output
func MockLogger() *logrus.Logger {
	return logger.NewWithOutput("debug", io.Discard)
}

// WritePropertiesFile writes a config.properties holding apiKey into a temp dir
func WritePropertiesFile(t testing.TB, apiKey string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultPropertiesPath)
	content := "# ExchangeRate-API credentials\nAPI_KEY=" + apiKey + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	return path
}

// MockExchangeRateAPI returns client settings pointing at baseURL
func MockExchangeRateAPI(baseURL, propertiesPath string) config.ExchangeRateAPI {
	return config.ExchangeRateAPI{
		BaseURL:        baseURL,
		PropertiesPath: propertiesPath,
		Timeout:        2 * time.Second,
	}
}

// MockConfig creates a mock configuration for testing
func MockConfig(baseURL, propertiesPath string) *config.Config {
	return &config.Config{
		Port:     "8081",
		LogLevel: "debug",

		ExchangeRateAPI:       MockExchangeRateAPI(baseURL, propertiesPath),
		MaxConcurrentRequests: 4,

		RateLimitEnabled:  true,
		RateLimitRequests: 100,
		RateLimitWindow:   60 * time.Second,
		RateLimitBurst:    10,
	}
}
