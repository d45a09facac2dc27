package llm

import "context"

// Provider is the model-agnostic generation interface. Form generation and
// OCR only ever talk to a Provider, never to a vendor SDK directly.
type Provider interface {
	// Generate sends a single request and returns the raw model text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the conversation. Generation and OCR use a single user
	// message.
	Messages []Message

	// JSON asks the provider for a JSON document when it has a native
	// switch for that (response MIME type, response_format). Providers
	// without one rely on the prompt.
	JSON bool

	// Schema is the JSON shape the caller expects back. Providers do not
	// enforce it, because raw output may still need cleanup; the caller
	// checks the cleaned value with ValidateValue(req.Schema, v).
	Schema *Schema

	// MaxTokens caps the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature is always sent, including zero.
	Temperature float64

	// DisableReasoning turns off extended thinking on models that support
	// a budget for it.
	DisableReasoning bool
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
	Images  []Image
}

// Image is an inline image attached to a message.
type Image struct {
	MIMEType string
	Data     []byte
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserMessage builds the common single-turn message.
func UserMessage(text string, images ...Image) Message {
	return Message{Role: RoleUser, Content: text, Images: images}
}

// Schema is a JSON Schema used to check a response.
type Schema struct {
	// Name identifies the schema in the compile cache. Kebab-case.
	Name string

	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the model's output.
type Response struct {
	// Text is the raw text the model produced, before any cleanup.
	Text string

	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens", "blocked" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
