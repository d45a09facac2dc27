package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"quizform-backend/internal/export"
	"quizform-backend/internal/middleware"
	"quizform-backend/internal/logger"
	"quizform-backend/internal/models"
	"quizform-backend/internal/services"
)

type remoteFormCreator interface {
	CreateRemoteForm(ctx context.Context, form *models.Form, cred export.Credential) (*export.ExportResult, error)
}

// ExportHandler delivers a form either as an Apps Script or straight into
// the caller's Google account.
type ExportHandler struct {
	exporter remoteFormCreator
	mode     export.Mode
	log      *logger.Logger
}

func NewExportHandler(exporter remoteFormCreator, mode export.Mode, log *logger.Logger) *ExportHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ExportHandler{exporter: exporter, mode: mode, log: log}
}

func (h *ExportHandler) Mode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(h.mode)})
}

func (h *ExportHandler) Script(w http.ResponseWriter, r *http.Request) {
	var req models.FormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Form == nil {
		handleServiceError(w, r, h.log, &services.ValidationError{Fields: map[string]string{"form": "is required"}})
		return
	}

	writeJSON(w, http.StatusOK, models.ExportScriptResponse{
		Script:   export.BuildScript(req.Form),
		Warnings: reviewNotes(models.ValidateForm(req.Form)),
	})
}

func (h *ExportHandler) Google(w http.ResponseWriter, r *http.Request) {
	if h.mode != export.ModeAPI || h.exporter == nil {
		handleServiceError(w, r, h.log, &services.NotConfiguredError{Message: "Direct export is not enabled on this server; use the generated script instead"})
		return
	}

	var req models.ExportGoogleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Form == nil {
		handleServiceError(w, r, h.log, &services.ValidationError{Fields: map[string]string{"form": "is required"}})
		return
	}

	cred := export.Credential{AccessToken: middleware.GetGoogleToken(r.Context())}
	if req.ExpiresAt != nil {
		cred.Expiry = *req.ExpiresAt
	}

	result, err := h.exporter.CreateRemoteForm(r.Context(), req.Form, cred)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusCreated, models.ExportGoogleResponse{
		FormID:       result.FormID,
		ResponderURL: result.ResponderURL,
		EditURL:      result.EditURL,
		Warnings:     warnings,
	})
}
