package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"quizform-backend/internal/logger"
	"quizform-backend/internal/models"
	"quizform-backend/internal/services"
)

type documentExtractor interface {
	Extract(ctx context.Context, filename, contentType string, data []byte) (*services.ExtractResult, error)
}

// ContentHandler turns uploaded documents into plain text.
type ContentHandler struct {
	extractor      documentExtractor
	maxUploadBytes int64
	log            *logger.Logger
}

func NewContentHandler(extractor documentExtractor, maxUploadMB int, log *logger.Logger) *ContentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ContentHandler{extractor: extractor, maxUploadBytes: int64(maxUploadMB) << 20, log: log}
}

func (h *ContentHandler) SupportedFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats": services.SupportedFormats(),
	})
}

func (h *ContentHandler) Extract(w http.ResponseWriter, r *http.Request) {
	// Check content length
	if r.ContentLength > h.maxUploadBytes+multipartSlack {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", h.tooLargeMessage(), r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartSlack)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", h.tooLargeMessage(), r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", h.tooLargeMessage(), r))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "The uploaded file could not be read", r))
		return
	}

	result, err := h.extractor.Extract(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	ocrPages := result.OCRPages
	if ocrPages == nil {
		ocrPages = []int{}
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, models.ExtractResponse{
		Filename: header.Filename,
		Text:     result.Text,
		Pages:    result.Pages,
		OCRPages: ocrPages,
		Warnings: warnings,
	})
}

// multipartSlack covers the multipart envelope around the file itself.
const multipartSlack = 1 << 20

func (h *ContentHandler) tooLargeMessage() string {
	return fmt.Sprintf("File size exceeds the %dMB limit", h.maxUploadBytes>>20)
}
