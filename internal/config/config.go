package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"quizform-backend/internal/llm"
)

type Config struct {
	// Server
	Port        string
	Env         string
	LogMode     string
	FrontendURL string

	// Model provider
	LLMProvider     string
	GeminiAPIKey    string
	GeminiModel     string
	VertexProject   string
	VertexLocation  string
	VertexModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string

	// Generation
	GenerationTemperature float64
	GenerationMaxTokens   int
	PromptTemplatePath    string

	// Ingestion
	OCRProvider      string
	OCRMinTextChars  int
	OCRMinPageHeight float64
	OCRRenderDPI     int
	PdftoppmPath     string
	MaxUploadMB      int

	// Google Forms export
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	FormsAPIEndpoint   string
	StateSecret        string

	// Redis (optional, backs the generation guard)
	RedisURL string

	AuthRatePerMin int
	TrustProxy     bool
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		LogMode:     getEnvOrDefault("LOG_MODE", "dev"),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),

		LLMProvider:     strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnvOrDefault("GEMINI_MODEL", "gemini-flash"),
		VertexProject:   os.Getenv("VERTEX_PROJECT"),
		VertexLocation:  getEnvOrDefault("VERTEX_LOCATION", "us-central1"),
		VertexModel:     getEnvOrDefault("VERTEX_MODEL", "gemini-2.5-flash"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnvOrDefault("ANTHROPIC_MODEL", "claude-haiku"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),

		GenerationTemperature: getEnvAsFloatOrDefault("GENERATION_TEMPERATURE", 0.1),
		GenerationMaxTokens:   getEnvAsIntOrDefault("GENERATION_MAX_TOKENS", 8192),
		PromptTemplatePath:    os.Getenv("PROMPT_TEMPLATE_PATH"),

		OCRProvider:      strings.ToLower(getEnvOrDefault("OCR_PROVIDER", "llm")),
		OCRMinTextChars:  getEnvAsIntOrDefault("OCR_MIN_TEXT_CHARS", 50),
		OCRMinPageHeight: getEnvAsFloatOrDefault("OCR_MIN_PAGE_HEIGHT", 100),
		OCRRenderDPI:     getEnvAsIntOrDefault("OCR_RENDER_DPI", 150),
		PdftoppmPath:     getEnvOrDefault("PDFTOPPM_PATH", "pdftoppm"),
		MaxUploadMB:      getEnvAsIntOrDefault("MAX_UPLOAD_MB", 20),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  getEnvOrDefault("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/v1/auth/google/callback"),
		FormsAPIEndpoint:   os.Getenv("FORMS_API_ENDPOINT"),
		StateSecret:        os.Getenv("STATE_SECRET"),

		RedisURL: os.Getenv("REDIS_URL"),

		AuthRatePerMin: getEnvAsIntOrDefault("AUTH_RATE_PER_MIN", 20),
		TrustProxy:     getEnvAsBoolOrDefault("TRUST_PROXY", false),
	}

	return cfg
}

// LLMConfig maps the flat env settings onto the provider config.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:  c.LLMProvider,
		Gemini:    llm.GeminiConfig{APIKey: c.GeminiAPIKey, Model: c.GeminiModel},
		Vertex:    llm.VertexConfig{Project: c.VertexProject, Location: c.VertexLocation, Model: c.VertexModel},
		Anthropic: llm.AnthropicConfig{APIKey: c.AnthropicAPIKey, Model: c.AnthropicModel},
		OpenAI:    llm.OpenAIConfig{APIKey: c.OpenAIAPIKey, Model: c.OpenAIModel, BaseURL: c.OpenAIBaseURL},
	}
}

// DirectExportEnabled reports whether a full Google OAuth client is set.
func (c *Config) DirectExportEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Validate checks the settings that would otherwise fail on first use.
func (c *Config) Validate() error {
	if err := c.LLMConfig().Validate(); err != nil {
		return err
	}
	switch c.OCRProvider {
	case "llm", "vision", "none":
	default:
		return fmt.Errorf("unknown OCR_PROVIDER %q (want llm, vision or none)", c.OCRProvider)
	}
	if c.GenerationTemperature < 0 || c.GenerationTemperature > 2 {
		return fmt.Errorf("GENERATION_TEMPERATURE must be between 0 and 2, got %v", c.GenerationTemperature)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.DirectExportEnabled() && c.StateSecret == "" {
		return fmt.Errorf("STATE_SECRET is required when GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
