package models

import "time"

type GenerateFormRequest struct {
	Text    string              `json:"text"`
	Options *GenerationSettings `json:"options,omitempty"`
}

// GenerationSettings tunes the prompt. Nil fields take the defaults from
// DefaultGenerationOptions.
type GenerationSettings struct {
	PreferChoiceQuestions *bool    `json:"prefer_choice_questions,omitempty"`
	DefaultPoints         *float64 `json:"default_points,omitempty"`
	IncludeNameField      *bool    `json:"include_name_field,omitempty"`
}

// GenerationOptions is GenerationSettings with every default applied.
type GenerationOptions struct {
	PreferChoiceQuestions bool
	DefaultPoints         float64
	IncludeNameField      bool
}

func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		PreferChoiceQuestions: true,
		DefaultPoints:         1,
		IncludeNameField:      true,
	}
}

// Resolve fills unset fields from DefaultGenerationOptions. A nil receiver
// yields the defaults.
func (s *GenerationSettings) Resolve() GenerationOptions {
	opts := DefaultGenerationOptions()
	if s == nil {
		return opts
	}
	if s.PreferChoiceQuestions != nil {
		opts.PreferChoiceQuestions = *s.PreferChoiceQuestions
	}
	if s.DefaultPoints != nil && *s.DefaultPoints > 0 {
		opts.DefaultPoints = *s.DefaultPoints
	}
	if s.IncludeNameField != nil {
		opts.IncludeNameField = *s.IncludeNameField
	}
	return opts
}

type GenerateFormResponse struct {
	Form     *Form    `json:"form"`
	Warnings []string `json:"warnings"`
}

type FormRequest struct {
	Form *Form `json:"form"`
}

type ExportGoogleRequest struct {
	Form      *Form      `json:"form"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type ExportGoogleResponse struct {
	FormID       string   `json:"form_id"`
	ResponderURL string   `json:"responder_url"`
	EditURL      string   `json:"edit_url"`
	Warnings     []string `json:"warnings"`
}

type ExportScriptResponse struct {
	Script   string   `json:"script"`
	Warnings []string `json:"warnings"`
}

type ExtractResponse struct {
	Filename string   `json:"filename"`
	Text     string   `json:"text"`
	Pages    int      `json:"pages"`
	OCRPages []int    `json:"ocr_pages"`
	Warnings []string `json:"warnings"`
}

type SupportedFormat struct {
	Extension   string `json:"extension"`
	MimeType    string `json:"mime_type"`
	Description string `json:"description"`
}

// FormsToken is handed back to the client after the sign-in callback. The
// server keeps no copy.
type FormsToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
