package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Save original environment
	originalEnv := os.Environ()

	// Clean up after test
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			if key, value, ok := strings.Cut(env, "="); ok {
				os.Setenv(key, value)
			}
		}
	}()

	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*Config) bool
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{},
			expected: func(cfg *Config) bool {
				return cfg.Port == "8081" &&
					cfg.LogLevel == "info" &&
					cfg.ExchangeRateAPI.BaseURL == DefaultBaseURL &&
					cfg.ExchangeRateAPI.PropertiesPath == DefaultPropertiesPath &&
					cfg.ExchangeRateAPI.Timeout == 10*time.Second &&
					cfg.MaxConcurrentRequests == 4 &&
					cfg.RateLimitEnabled == true &&
					cfg.RateLimitRequests == 100 &&
					cfg.RateLimitWindow == 60*time.Second &&
					cfg.RateLimitBurst == 10 &&
					cfg.TrustedProxies == nil
			},
		},
		{
			name: "custom configuration",
			envVars: map[string]string{
				"PORT":                         "9090",
				"LOG_LEVEL":                    "debug",
				"EXCHANGE_RATE_API_BASE_URL":   "http://localhost:9999/v6/",
				"EXCHANGE_RATE_API_PROPERTIES": "/etc/rates/config.properties",
				"EXCHANGE_RATE_API_TIMEOUT":    "3",
				"MAX_CONCURRENT_REQUESTS":      "8",
				"RATE_LIMIT_ENABLED":           "false",
				"RATE_LIMIT_REQUESTS":          "200",
				"RATE_LIMIT_WINDOW_SECONDS":    "120",
				"RATE_LIMIT_BURST":             "20",
				"TRUSTED_PROXIES":              "10.0.0.0/8, 192.168.1.1,",
			},
			expected: func(cfg *Config) bool {
				return cfg.Port == "9090" &&
					cfg.LogLevel == "debug" &&
					cfg.ExchangeRateAPI.BaseURL == "http://localhost:9999/v6" &&
					cfg.ExchangeRateAPI.PropertiesPath == "/etc/rates/config.properties" &&
					cfg.ExchangeRateAPI.Timeout == 3*time.Second &&
					cfg.MaxConcurrentRequests == 8 &&
					cfg.RateLimitEnabled == false &&
					cfg.RateLimitRequests == 200 &&
					cfg.RateLimitWindow == 120*time.Second &&
					cfg.RateLimitBurst == 20 &&
					len(cfg.TrustedProxies) == 2 &&
					cfg.TrustedProxies[0] == "10.0.0.0/8" &&
					cfg.TrustedProxies[1] == "192.168.1.1"
			},
		},
		{
			name: "invalid timeout falls back",
			envVars: map[string]string{
				"EXCHANGE_RATE_API_TIMEOUT": "soon",
			},
			expected: func(cfg *Config) bool {
				return cfg.ExchangeRateAPI.Timeout == 10*time.Second
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}

			// Load configuration
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			// Check expected values
			if !tt.expected(cfg) {
				t.Errorf("Load() configuration does not match expected values: %+v", cfg)
			}
		})
	}
}

func TestLoadAPIKey(t *testing.T) {
	dir := t.TempDir()

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name        string
		path        string
		expected    string
		expectedErr error
	}{
		{
			name:     "key present",
			path:     writeFile("ok.properties", "API_KEY=abc123\n"),
			expected: "abc123",
		},
		{
			name:     "comments and other keys",
			path:     writeFile("mixed.properties", "# exchange rate api\nOTHER=1\nAPI_KEY=k-42\n"),
			expected: "k-42",
		},
		{
			name:     "quoted value",
			path:     writeFile("quoted.properties", "API_KEY=\"abc 123\"\n"),
			expected: "abc 123",
		},
		{
			name:     "colon separator",
			path:     writeFile("colon.properties", "API_KEY: abc123\n"),
			expected: "abc123",
		},
		{
			name:     "inline comment dropped",
			path:     writeFile("inline.properties", "API_KEY=abc123 # primary key\n"),
			expected: "abc123",
		},
		{
			name:     "unset variable expands to nothing",
			path:     writeFile("expand.properties", "API_KEY=abc$RATES_TEST_UNSET_VAR\n"),
			expected: "abc",
		},
		{
			name:     "single quotes keep dollar signs",
			path:     writeFile("single.properties", "API_KEY='abc$1'\n"),
			expected: "abc$1",
		},
		{
			name:        "key missing",
			path:        writeFile("nokey.properties", "OTHER=1\n"),
			expectedErr: ErrAPIKeyNotFound,
		},
		{
			name:        "key empty",
			path:        writeFile("empty.properties", "API_KEY=\n"),
			expectedErr: ErrAPIKeyNotFound,
		},
		{
			name:        "file missing",
			path:        filepath.Join(dir, "absent.properties"),
			expectedErr: os.ErrNotExist,
		},
	}

	os.Unsetenv("RATES_TEST_UNSET_VAR")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := LoadAPIKey(tt.path)
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("LoadAPIKey() error = %v, want %v", err, tt.expectedErr)
				}
				if result != "" {
					t.Errorf("LoadAPIKey() = %q, want empty", result)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadAPIKey() error = %v", err)
			}
			if result != tt.expected {
				t.Errorf("LoadAPIKey() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestLoadAPIKey_WhitespaceSeparatorRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spaced.properties")
	if err := os.WriteFile(path, []byte("API_KEY abc123\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := LoadAPIKey(path)
	if err == nil {
		t.Fatalf("LoadAPIKey() = %q, want error", result)
	}
	if result != "" {
		t.Errorf("LoadAPIKey() = %q, want empty", result)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		fallback string
		envValue string
		expected string
	}{
		{
			name:     "environment variable exists",
			key:      "TEST_VAR",
			fallback: "default",
			envValue: "env_value",
			expected: "env_value",
		},
		{
			name:     "environment variable does not exist",
			key:      "NONEXISTENT_VAR",
			fallback: "default",
			envValue: "",
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			result := getEnv(tt.key, tt.fallback)
			if result != tt.expected {
				t.Errorf("getEnv() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustAtoi(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "valid integer",
			input:    "123",
			expected: 123,
		},
		{
			name:     "invalid integer",
			input:    "abc",
			expected: 60, // default fallback
		},
		{
			name:     "empty string",
			input:    "",
			expected: 60, // default fallback
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mustAtoi(tt.input)
			if result != tt.expected {
				t.Errorf("mustAtoi() = %v, want %v", result, tt.expected)
			}
		})
	}
}
