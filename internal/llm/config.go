package llm

import (
	"fmt"
	"strings"
)

// Config holds all provider configuration. It is filled in by the
// application config loader.
type Config struct {
	// Provider selects the backend.
	// Values: "gemini", "vertex", "anthropic", "openai", "mock"
	Provider string

	Gemini    GeminiConfig
	Vertex    VertexConfig
	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
}

// GeminiConfig configures the Gemini API (API key auth).
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// VertexConfig configures Gemini served from Vertex AI (ADC auth).
type VertexConfig struct {
	Project  string
	Location string // Default: "us-central1"
	Model    string // Default: "gemini-2.5-flash"
}

type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for OpenAI-compatible APIs.
}

// DefaultConfig returns a Config with the default models filled in.
func DefaultConfig() Config {
	return Config{
		Provider:  "gemini",
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Vertex:    VertexConfig{Location: "us-central1", Model: "gemini-2.5-flash"},
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
	}
}

// Validate checks that the selected provider has what it needs to start.
func (c Config) Validate() error {
	switch c.Provider {
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		if id := resolveModel(c.Gemini.Model, geminiModels); geminiThinkingModel(id) {
			return fmt.Errorf("GEMINI_MODEL %q reasons by default and the gemini provider cannot turn that off; use a gemini-2.0 model or LLM_PROVIDER=vertex", id)
		}
	case "vertex":
		if c.Vertex.Project == "" {
			return fmt.Errorf("VERTEX_PROJECT is required for the vertex provider")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "mock":
		// No credentials needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

// geminiThinkingModel reports whether a Gemini model id thinks unless told
// otherwise. The API-key SDK has no thinking budget setting.
func geminiThinkingModel(id string) bool {
	return strings.HasPrefix(id, "gemini-2.5") || strings.HasPrefix(id, "gemini-3")
}

// resolveModel maps a friendly model name to a provider model ID.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	// Not in the map: treat as a direct model ID.
	return name
}
