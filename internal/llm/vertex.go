package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// VertexProvider implements Provider for Gemini models served by Vertex AI.
// Unlike the API-key client it can pin the thinking budget to zero.
type VertexProvider struct {
	client *genai.Client
	model  string
}

func NewVertexProvider(ctx context.Context, cfg VertexConfig) (*VertexProvider, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("vertex project is required")
	}
	location := cfg.Location
	if location == "" {
		location = "us-central1"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Vertex AI client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &VertexProvider{client: client, model: model}, nil
}

func (p *VertexProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	temp := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if req.DisableReasoning {
		budget := int32(0)
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, buildVertexContents(req.Messages), config)
	if err != nil {
		return nil, mapVertexError(err)
	}

	stop := mapVertexStopReason(result)
	text := result.Text()
	if stop == "max_tokens" {
		return nil, &ErrMaxTokensExceeded{Content: text}
	}
	if stop == "blocked" && text == "" {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("Vertex AI blocked the response")}
	}

	resp := &Response{
		Text:       text,
		Model:      p.model,
		StopReason: stop,
	}
	if result.UsageMetadata != nil {
		resp.Usage = Usage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}

func (p *VertexProvider) ModelID() string {
	return p.model
}

func buildVertexContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, len(msgs))
	for i, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		parts := make([]*genai.Part, 0, len(m.Images)+1)
		for _, img := range m.Images {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}})
		}
		if m.Content != "" {
			parts = append(parts, &genai.Part{Text: m.Content})
		}
		out[i] = &genai.Content{Role: role, Parts: parts}
	}
	return out
}

func mapVertexStopReason(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) == 0 {
		return "blocked"
	}
	switch result.Candidates[0].FinishReason {
	case genai.FinishReasonMaxTokens:
		return "max_tokens"
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonProhibitedContent:
		return "blocked"
	}
	return "end"
}

func mapVertexError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &ErrRateLimit{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
