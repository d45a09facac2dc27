// Package app wires the document-to-form pipeline from configuration. Both
// the HTTP server and the CLI build on it.
package app

import (
	"context"
	"fmt"

	"quizform-backend/internal/config"
	"quizform-backend/internal/llm"
	"quizform-backend/internal/logger"
	"quizform-backend/internal/services"
)

type Pipeline struct {
	Provider  llm.Provider
	Extractor *services.FileExtractService
	Generator *services.FormGenerator

	closers []func() error
}

// NewPipeline builds the model provider, OCR fallback, extractor and form
// generator. A missing pdftoppm binary only disables OCR.
func NewPipeline(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Pipeline, error) {
	p := &Pipeline{}

	provider, err := llm.NewProvider(ctx, cfg.LLMConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("model provider: %w", err)
	}
	p.Provider = provider
	if c, ok := provider.(interface{ Close() error }); ok {
		p.closers = append(p.closers, c.Close)
	}
	log.Info("✓ Model provider initialized", "provider", cfg.LLMProvider, "model", provider.ModelID())

	prompt, err := services.LoadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("prompt template: %w", err)
	}
	log.Info("✓ Prompt template loaded", "name", prompt.Name, "version", prompt.Version)

	var ocr services.OCRClient
	switch cfg.OCRProvider {
	case "llm":
		ocr = services.NewModelOCR(provider, log)
	case "vision":
		v, err := services.NewVisionOCR(ctx, log)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.closers = append(p.closers, v.Close)
		ocr = v
	}

	var raster services.Rasterizer
	if ocr != nil {
		r := services.NewPdftoppmRasterizer(cfg.PdftoppmPath, cfg.OCRRenderDPI)
		if err := r.Available(); err != nil {
			log.Warn("✗ OCR disabled: page renderer unavailable", "error", err)
			ocr = nil
		} else {
			raster = r
			log.Info("✓ OCR fallback enabled", "ocr", cfg.OCRProvider, "dpi", cfg.OCRRenderDPI)
		}
	}

	p.Extractor = services.NewFileExtractService(ocr, raster, services.FileExtractConfig{
		OCRMinTextChars:  cfg.OCRMinTextChars,
		OCRMinPageHeight: cfg.OCRMinPageHeight,
	}, log)

	p.Generator = services.NewFormGenerator(provider, prompt, services.FormGeneratorConfig{
		Temperature: cfg.GenerationTemperature,
		MaxTokens:   cfg.GenerationMaxTokens,
	}, log)

	return p, nil
}

// Close releases provider and OCR clients.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		_ = p.closers[i]()
	}
	p.closers = nil
}
