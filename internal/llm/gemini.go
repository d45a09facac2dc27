package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiModels maps friendly names to Gemini model IDs.
var geminiModels = map[string]string{
	"gemini-flash":      "gemini-2.0-flash",
	"gemini-flash-lite": "gemini-2.0-flash-lite",
}

// GeminiProvider implements Provider against the Gemini API using an API key.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  resolveModel(cfg.Model, geminiModels),
	}, nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("gemini: request has no messages")
	}

	// A model handle is cheap; build one per request so per-call settings
	// never leak between callers.
	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	// This SDK has no thinking budget. Config.Validate keeps models that
	// think by default away from this provider.

	last := req.Messages[len(req.Messages)-1]
	var resp *genai.GenerateContentResponse
	var err error
	if len(req.Messages) == 1 {
		resp, err = model.GenerateContent(ctx, geminiParts(last)...)
	} else {
		cs := model.StartChat()
		cs.History = geminiHistory(req.Messages[:len(req.Messages)-1])
		resp, err = cs.SendMessage(ctx, geminiParts(last)...)
	}
	if err != nil {
		return nil, &ErrProviderUnavailable{Err: fmt.Errorf("Gemini API error: %w", err)}
	}

	text := geminiText(resp)
	stop := geminiStopReason(resp)
	if stop == "blocked" && text == "" {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("Gemini blocked the response")}
	}
	if stop == "max_tokens" {
		return nil, &ErrMaxTokensExceeded{Content: text}
	}

	out := &Response{
		Text:       text,
		Model:      p.model,
		StopReason: stop,
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func (p *GeminiProvider) ModelID() string {
	return p.model
}

func geminiParts(m Message) []genai.Part {
	parts := make([]genai.Part, 0, len(m.Images)+1)
	for _, img := range m.Images {
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}
	if m.Content != "" {
		parts = append(parts, genai.Text(m.Content))
	}
	return parts
}

func geminiHistory(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, len(msgs))
	for i, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out[i] = &genai.Content{Role: role, Parts: geminiParts(m)}
	}
	return out
}

func geminiText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
		// Only the first candidate is used.
		break
	}
	return text.String()
}

func geminiStopReason(resp *genai.GenerateContentResponse) string {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "blocked"
	}
	if len(resp.Candidates) == 0 {
		return "blocked"
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonMaxTokens:
		return "max_tokens"
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return "blocked"
	}
	return "end"
}
