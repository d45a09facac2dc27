package services

import (
	"context"
	"fmt"
	"strings"

	"quizform-backend/internal/llm"
	"quizform-backend/internal/logger"
)

const ocrInstruction = "Extract all visible text from this image. Preserve line breaks. " +
	"Return only the text, with no commentary and no markdown."

// OCRClient reads the text on a single rendered page.
type OCRClient interface {
	ExtractText(ctx context.Context, png []byte) (string, error)
}

// OcrError reports a failed OCR call for one page. Ingestion recovers from
// it by keeping the page's sparse text.
type OcrError struct {
	Page int
	Err  error
}

func (e *OcrError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("ocr failed on page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("ocr failed: %v", e.Err)
}

func (e *OcrError) Unwrap() error { return e.Err }

func (e *OcrError) UserMessage() string {
	if e.Page > 0 {
		return fmt.Sprintf("Page %d looks scanned but its text could not be recognized; only the text found directly in the file was kept.", e.Page)
	}
	return "The scanned page could not be recognized."
}

// ModelOCR sends the page image to the generative model.
type ModelOCR struct {
	provider llm.Provider
	log      *logger.Logger
}

func NewModelOCR(provider llm.Provider, log *logger.Logger) *ModelOCR {
	if log == nil {
		log = logger.Nop()
	}
	return &ModelOCR{provider: provider, log: log.With("service", "ModelOCR")}
}

func (o *ModelOCR) ExtractText(ctx context.Context, png []byte) (string, error) {
	if len(png) == 0 {
		return "", &OcrError{Err: fmt.Errorf("empty image")}
	}

	ctx = llm.WithPurpose(ctx, "ocr")
	resp, err := o.provider.Generate(ctx, llm.Request{
		Messages:    []llm.Message{llm.UserMessage(ocrInstruction, llm.Image{MIMEType: "image/png", Data: png})},
		Temperature: 0,
	})
	if err != nil {
		return "", &OcrError{Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}
