package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"quizform-backend/internal/export"
	"quizform-backend/internal/logger"
	"quizform-backend/internal/middleware"
	"quizform-backend/internal/models"
	"quizform-backend/internal/services"
)

type signInFlow interface {
	LoginURL() (string, error)
	Exchange(ctx context.Context, code, state string) (*models.FormsToken, error)
}

// AuthHandler runs the Google sign-in that grants the Forms scope. It is
// only mounted when a Google OAuth client is configured.
type AuthHandler struct {
	signIn signInFlow
	log    *logger.Logger
}

func NewAuthHandler(signIn signInFlow, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{signIn: signIn, log: log}
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.signIn == nil {
		handleServiceError(w, r, h.log, &services.NotConfiguredError{Message: "Google sign-in is not configured on this server"})
		return
	}
	url, err := h.signIn.LoginURL()
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.signIn == nil {
		handleServiceError(w, r, h.log, &services.NotConfiguredError{Message: "Google sign-in is not configured on this server"})
		return
	}
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		writeJSON(w, http.StatusBadRequest, errorResp("SIGNIN_CANCELLED", "Google sign-in was not completed: "+reason, r))
		return
	}
	if q.Get("code") == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Missing authorization code", r))
		return
	}

	token, err := h.signIn.Exchange(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

// handleServiceError logs err with the request id and writes the matching
// error envelope. Client mistakes log at warn level, everything else at error.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status, body := serviceErrorResponse(r, err)
	fields := []interface{}{
		"request_id", r.Header.Get(middleware.RequestIDHeader),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", body.Error.Code,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		log.Error("✗ Request failed", fields...)
	} else {
		log.Warn("✗ Request rejected", fields...)
	}
	writeJSON(w, status, body)
}

func serviceErrorResponse(r *http.Request, err error) (int, models.ErrorResponse) {
	var (
		validationErr    *services.ValidationError
		unauthorizedErr  *services.UnauthorizedError
		notConfiguredErr *services.NotConfiguredError
		ingestionErr     *services.IngestionError
		generationErr    *services.GenerationError
		exportErr        *export.ExportError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r)
	case errors.As(err, &unauthorizedErr):
		return http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorizedErr.Message, r)
	case errors.As(err, &notConfiguredErr):
		return http.StatusNotFound, errorResp("NOT_CONFIGURED", notConfiguredErr.Message, r)
	case errors.Is(err, services.ErrGenerationInProgress):
		return http.StatusConflict, errorResp("GENERATION_IN_PROGRESS", "A form is already being generated for this session. Wait for it to finish.", r)
	case errors.Is(err, services.ErrInvalidState):
		return http.StatusBadRequest, errorResp("INVALID_STATE", "The sign-in link expired or was tampered with. Start the sign-in again.", r)
	case errors.As(err, &ingestionErr):
		if ingestionErr.Unsupported {
			return http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", ingestionErr.UserMessage(), r)
		}
		return http.StatusUnprocessableEntity, errorResp("EXTRACTION_FAILED", ingestionErr.UserMessage(), r)
	case errors.As(err, &generationErr):
		return generationErrorResponse(r, generationErr)
	case errors.As(err, &exportErr):
		return exportErrorResponse(r, exportErr)
	default:
		return http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r)
	}
}

func generationErrorResponse(r *http.Request, e *services.GenerationError) (int, models.ErrorResponse) {
	switch {
	case e.Kind == services.GenerationEmptyInput:
		return http.StatusBadRequest, errorResp("EMPTY_INPUT", e.UserMessage(), r)
	case e.RateLimited():
		return http.StatusTooManyRequests, errorResp("RATE_LIMITED", e.UserMessage(), r)
	case e.Kind == services.GenerationUpstream:
		return http.StatusBadGateway, errorResp("UPSTREAM_UNAVAILABLE", e.UserMessage(), r)
	default:
		return http.StatusBadGateway, errorResp("GENERATION_FAILED", e.UserMessage(), r)
	}
}

func exportErrorResponse(r *http.Request, e *export.ExportError) (int, models.ErrorResponse) {
	switch e.Stage {
	case export.StageValidate:
		fields := make(map[string]string, len(e.Issues))
		for _, is := range e.Issues {
			key := is.Field
			if is.Index >= 0 {
				key = "items[" + strconv.Itoa(is.Index) + "]." + is.Field
			}
			if _, dup := fields[key]; !dup {
				fields[key] = is.Message
			}
		}
		return http.StatusBadRequest, errorRespWithFields("FORM_INVALID", e.UserMessage(), fields, r)
	case export.StageCredential:
		return http.StatusUnauthorized, errorResp("TOKEN_EXPIRED", e.UserMessage(), r)
	default:
		if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
			return e.Status, errorResp("GOOGLE_AUTH_FAILED", e.UserMessage(), r)
		}
		return http.StatusBadGateway, errorResp("EXPORT_FAILED", e.UserMessage(), r)
	}
}
