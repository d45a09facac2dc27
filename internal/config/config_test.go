package config

import (
	"os"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsFloatAndBool(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.25")
	t.Setenv("TEST_FLOAT_BAD", "warm")
	t.Setenv("TEST_BOOL", "true")

	if got := getEnvAsFloatOrDefault("TEST_FLOAT", 1); got != 0.25 {
		t.Errorf("Expected 0.25, got %v", got)
	}
	if got := getEnvAsFloatOrDefault("TEST_FLOAT_BAD", 1); got != 1 {
		t.Errorf("Expected default for non-numeric, got %v", got)
	}
	if got := getEnvAsBoolOrDefault("TEST_BOOL", false); !got {
		t.Error("Expected true")
	}
	if got := getEnvAsBoolOrDefault("TEST_BOOL_UNSET", true); !got {
		t.Error("Expected default true")
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LLM_PROVIDER", "GENERATION_TEMPERATURE", "OCR_PROVIDER", "OCR_MIN_TEXT_CHARS", "OCR_MIN_PAGE_HEIGHT", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.LLMProvider != "gemini" {
		t.Errorf("Expected gemini, got %q", cfg.LLMProvider)
	}
	if cfg.GenerationTemperature != 0.1 {
		t.Errorf("Expected temperature 0.1, got %v", cfg.GenerationTemperature)
	}
	if cfg.OCRMinTextChars != 50 || cfg.OCRMinPageHeight != 100 {
		t.Errorf("Unexpected OCR thresholds %d / %v", cfg.OCRMinTextChars, cfg.OCRMinPageHeight)
	}
	if cfg.DirectExportEnabled() {
		t.Error("Direct export needs both OAuth client values")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			LLMProvider:           "mock",
			OCRProvider:           "none",
			GenerationTemperature: 0.1,
			MaxUploadMB:           20,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"mock provider is enough", func(c *Config) {}, false},
		{"gemini needs a key", func(c *Config) { c.LLMProvider = "gemini" }, true},
		{"gemini with key", func(c *Config) { c.LLMProvider = "gemini"; c.GeminiAPIKey = "k" }, false},
		{"unknown ocr provider", func(c *Config) { c.OCRProvider = "tesseract" }, true},
		{"temperature out of range", func(c *Config) { c.GenerationTemperature = 3 }, true},
		{"upload cap must be positive", func(c *Config) { c.MaxUploadMB = 0 }, true},
		{"oauth client needs a state secret", func(c *Config) {
			c.GoogleClientID = "id"
			c.GoogleClientSecret = "secret"
		}, true},
		{"oauth client with state secret", func(c *Config) {
			c.GoogleClientID = "id"
			c.GoogleClientSecret = "secret"
			c.StateSecret = "s"
		}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLLMConfig(t *testing.T) {
	cfg := &Config{LLMProvider: "openai", OpenAIAPIKey: "sk", OpenAIModel: "gpt-4o-mini", OpenAIBaseURL: "http://localhost:11434/v1"}
	lc := cfg.LLMConfig()
	if lc.Provider != "openai" || lc.OpenAI.APIKey != "sk" || lc.OpenAI.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("Unexpected llm config %+v", lc)
	}
}
