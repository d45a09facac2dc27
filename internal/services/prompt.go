package services

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"quizform-backend/internal/models"
)

//go:embed prompts/form_generation.yaml
var promptFS embed.FS

const defaultPromptPath = "prompts/form_generation.yaml"

// PromptTemplate is the versioned prompt artifact that carries all of the
// generation rules. The user part is a text/template over PromptData.
type PromptTemplate struct {
	Name    string `yaml:"name"`
	Version int    `yaml:"version"`
	System  string `yaml:"system"`
	User    string `yaml:"user"`

	tmpl *template.Template
}

// PromptData is what the user template can reference.
type PromptData struct {
	Text string
	models.GenerationOptions
}

// LoadPromptTemplate reads a prompt from path, or the built-in prompt when
// path is empty.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	var (
		data []byte
		err  error
	)
	if strings.TrimSpace(path) == "" {
		data, err = promptFS.ReadFile(defaultPromptPath)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	return ParsePromptTemplate(data)
}

func ParsePromptTemplate(data []byte) (*PromptTemplate, error) {
	var p PromptTemplate
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse prompt yaml: %w", err)
	}
	if p.Version <= 0 {
		return nil, fmt.Errorf("prompt %q: version must be positive", p.Name)
	}
	if strings.TrimSpace(p.User) == "" {
		return nil, fmt.Errorf("prompt %q: user template is empty", p.Name)
	}

	tmpl, err := template.New(p.Name).Option("missingkey=error").Parse(p.User)
	if err != nil {
		return nil, fmt.Errorf("prompt %q: %w", p.Name, err)
	}
	p.tmpl = tmpl
	return &p, nil
}

// Render returns the system prompt and the rendered user prompt.
func (p *PromptTemplate) Render(data PromptData) (string, string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render prompt %q v%d: %w", p.Name, p.Version, err)
	}
	return strings.TrimSpace(p.System), buf.String(), nil
}
