package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"quizform-backend/internal/logger"
	"quizform-backend/internal/middleware"
	"quizform-backend/internal/models"
	"quizform-backend/internal/services"
)

type formGenerator interface {
	Generate(ctx context.Context, documentText string, opts models.GenerationOptions) (*models.Form, error)
}

// QuizHandler generates quiz forms from document text and checks edited
// forms before export.
type QuizHandler struct {
	generator formGenerator
	guard     services.GenerationGuard
	log       *logger.Logger
}

func NewQuizHandler(generator formGenerator, guard services.GenerationGuard, log *logger.Logger) *QuizHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &QuizHandler{generator: generator, guard: guard, log: log}
}

func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Options != nil && req.Options.DefaultPoints != nil && *req.Options.DefaultPoints < 0 {
		handleServiceError(w, r, h.log, &services.ValidationError{Fields: map[string]string{
			"options.default_points": "must not be negative",
		}})
		return
	}

	release, err := h.guard.Acquire(r.Context(), middleware.SessionKey(r))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	defer release()

	form, err := h.generator.Generate(r.Context(), req.Text, req.Options.Resolve())
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateFormResponse{
		Form:     form,
		Warnings: reviewNotes(models.ValidateForm(form)),
	})
}

func (h *QuizHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.FormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	report := models.ValidateForm(req.Form)
	if report.Errors == nil {
		report.Errors = []models.Issue{}
	}
	if report.Warnings == nil {
		report.Warnings = []models.Issue{}
	}
	writeJSON(w, http.StatusOK, report)
}

// reviewNotes lists what the user should look at in a freshly generated
// form. Errors come first because they block export.
func reviewNotes(report models.ValidationReport) []string {
	notes := make([]string, 0, len(report.Errors)+len(report.Warnings))
	for _, e := range report.Errors {
		notes = append(notes, "Fix before export: "+e.String())
	}
	return append(notes, report.WarningMessages()...)
}
