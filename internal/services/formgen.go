package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quizform-backend/internal/llm"
	"quizform-backend/internal/logger"
	"quizform-backend/internal/models"
)

type GenerationErrorKind string

const (
	GenerationUpstream      GenerationErrorKind = "upstream"
	GenerationMalformed     GenerationErrorKind = "malformed"
	GenerationMissingFields GenerationErrorKind = "missing_fields"
	GenerationEmptyInput    GenerationErrorKind = "empty_input"
)

// GenerationError is the only error FormGenerator.Generate returns.
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("form generation failed (%s)", e.Kind)
	}
	return fmt.Sprintf("form generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RateLimited reports whether the upstream model refused the call for quota.
func (e *GenerationError) RateLimited() bool {
	var rl *llm.ErrRateLimit
	return e.Kind == GenerationUpstream && errors.As(e.Err, &rl)
}

func (e *GenerationError) UserMessage() string {
	switch e.Kind {
	case GenerationUpstream:
		if e.RateLimited() {
			return "The AI service is busy right now. Please wait a moment and generate again."
		}
		return "The AI service could not be reached. Check your connection and try again."
	case GenerationMalformed:
		return "The AI response could not be processed. Please try generating again."
	case GenerationMissingFields:
		return "The AI response could not be processed because it was missing required fields."
	case GenerationEmptyInput:
		return "There is no document text to build a form from."
	default:
		return "Form generation failed."
	}
}

// formShapeSchema checks only the top-level structure of a generated form.
var formShapeSchema = &llm.Schema{
	Name:        "form-shape",
	Description: "Top-level fields of a generated form",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"items": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object"},
			},
		},
		"required": []any{"title", "description", "items"},
	},
}

type FormGeneratorConfig struct {
	Temperature float64
	MaxTokens   int
}

// FormGenerator turns document text into a Form with a single model call.
type FormGenerator struct {
	provider llm.Provider
	prompt   *PromptTemplate
	cfg      FormGeneratorConfig
	log      *logger.Logger
}

func NewFormGenerator(provider llm.Provider, prompt *PromptTemplate, cfg FormGeneratorConfig, log *logger.Logger) *FormGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &FormGenerator{
		provider: provider,
		prompt:   prompt,
		cfg:      cfg,
		log:      log.With("service", "FormGenerator"),
	}
}

// Generate builds a Form from documentText. Each call produces a new Form;
// nothing is cached or retried.
func (g *FormGenerator) Generate(ctx context.Context, documentText string, opts models.GenerationOptions) (*models.Form, error) {
	text := strings.TrimSpace(documentText)
	if text == "" {
		return nil, &GenerationError{Kind: GenerationEmptyInput}
	}

	system, user, err := g.prompt.Render(PromptData{Text: text, GenerationOptions: opts})
	if err != nil {
		return nil, &GenerationError{Kind: GenerationUpstream, Err: err}
	}

	ctx = llm.WithPurpose(ctx, "form_generation")
	req := llm.Request{
		System:           system,
		Messages:         []llm.Message{llm.UserMessage(user)},
		JSON:             true,
		Schema:           formShapeSchema,
		MaxTokens:        g.cfg.MaxTokens,
		Temperature:      g.cfg.Temperature,
		DisableReasoning: true,
	}
	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		g.log.Error("Model call failed", "error", err, "prompt_version", g.prompt.Version)
		return nil, classifyProviderError(err)
	}

	form, err := parseGeneratedForm(resp.Text, req.Schema)
	if err != nil {
		g.log.Warn("Model output rejected", "error", err, "raw", truncate(resp.Text, 500))
		return nil, err
	}

	g.log.Info("Form generated",
		"title", form.Title,
		"items", len(form.Items),
		"prompt_version", g.prompt.Version,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return form, nil
}

// parseGeneratedForm sanitizes raw model text, checks it against schema and
// decodes it into a Form.
func parseGeneratedForm(raw string, schema *llm.Schema) (*models.Form, error) {
	clean := strings.TrimSpace(Sanitize(raw))

	var shape any
	if err := json.Unmarshal([]byte(clean), &shape); err != nil {
		return nil, &GenerationError{Kind: GenerationMalformed, Err: fmt.Errorf("parse model output: %w", err)}
	}
	if _, ok := shape.(map[string]any); !ok {
		return nil, &GenerationError{Kind: GenerationMalformed, Err: fmt.Errorf("model output is not a JSON object")}
	}
	if err := llm.ValidateValue(schema, shape); err != nil {
		return nil, &GenerationError{Kind: GenerationMissingFields, Err: err}
	}

	var form models.Form
	if err := json.Unmarshal([]byte(clean), &form); err != nil {
		return nil, &GenerationError{Kind: GenerationMalformed, Err: fmt.Errorf("decode form: %w", err)}
	}
	if form.Items == nil {
		form.Items = []models.FormItem{}
	}
	return &form, nil
}

func classifyProviderError(err error) *GenerationError {
	var invalid *llm.ErrInvalidResponse
	var truncated *llm.ErrMaxTokensExceeded
	switch {
	case errors.As(err, &invalid), errors.As(err, &truncated):
		return &GenerationError{Kind: GenerationMalformed, Err: err}
	default:
		return &GenerationError{Kind: GenerationUpstream, Err: err}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
