package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	forms "google.golang.org/api/forms/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"quizform-backend/internal/logger"
	"quizform-backend/internal/models"
)

type Stage string

const (
	StageValidate    Stage = "validate"
	StageCredential  Stage = "credential"
	StageCreate      Stage = "create"
	StageBatchUpdate Stage = "batch_update"
)

// ExportError aborts a direct export. Message is the platform's own error
// text when the platform rejected a call. FormID is set when the shell form
// was already created and has been left behind.
type ExportError struct {
	Stage   Stage
	Status  int
	Message string
	FormID  string
	Issues  []models.Issue
	Err     error
}

func (e *ExportError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("export %s failed (%d): %s", e.Stage, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("export %s failed: %v", e.Stage, e.Err)
	case len(e.Issues) > 0:
		return fmt.Sprintf("export %s failed: %s", e.Stage, e.Issues[0])
	}
	return fmt.Sprintf("export %s failed", e.Stage)
}

func (e *ExportError) Unwrap() error { return e.Err }

func (e *ExportError) UserMessage() string {
	switch e.Stage {
	case StageValidate:
		if len(e.Issues) > 0 {
			msgs := make([]string, 0, len(e.Issues))
			for _, is := range e.Issues {
				msgs = append(msgs, is.String())
			}
			return "Fix the form before exporting: " + strings.Join(msgs, "; ")
		}
		return "The form cannot be exported as it is."
	case StageCredential:
		return "Your Google sign-in has expired. Sign in again and retry the export."
	case StageCreate:
		return "Google Forms could not create the form: " + e.platformMessage()
	case StageBatchUpdate:
		msg := "Google Forms rejected the questions: " + e.platformMessage()
		if e.FormID != "" {
			msg += fmt.Sprintf(". An incomplete form (id %s) was left in your Google Drive.", e.FormID)
		}
		return msg
	}
	return "The export failed."
}

func (e *ExportError) platformMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Credential is a Forms access token with its expiry. A zero Expiry means
// the caller does not know it.
type Credential struct {
	AccessToken string
	Expiry      time.Time
}

func (c Credential) check(now time.Time) error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return errors.New("access token is missing")
	}
	if !c.Expiry.IsZero() && !now.Before(c.Expiry) {
		return fmt.Errorf("access token expired at %s", c.Expiry.Format(time.RFC3339))
	}
	return nil
}

func (c Credential) token() *oauth2.Token {
	return &oauth2.Token{AccessToken: c.AccessToken, TokenType: "Bearer", Expiry: c.Expiry}
}

type ExportResult struct {
	FormID       string
	ResponderURL string
	EditURL      string
	Warnings     []string
}

// FormsExporter creates forms through the Forms REST API.
type FormsExporter struct {
	endpoint string
	log      *logger.Logger
	now      func() time.Time
}

// NewFormsExporter builds an exporter. An empty endpoint uses Google's.
func NewFormsExporter(endpoint string, log *logger.Logger) *FormsExporter {
	if log == nil {
		log = logger.Nop()
	}
	return &FormsExporter{
		endpoint: endpoint,
		log:      log.With("service", "FormsExporter"),
		now:      time.Now,
	}
}

// CreateRemoteForm creates the shell form, then fills it with one
// batchUpdate. Nothing is retried or rolled back.
func (e *FormsExporter) CreateRemoteForm(ctx context.Context, form *models.Form, cred Credential) (*ExportResult, error) {
	requests, err := BuildRequests(form)
	if err != nil {
		return nil, err
	}
	if err := cred.check(e.now()); err != nil {
		return nil, &ExportError{Stage: StageCredential, Status: http.StatusUnauthorized, Err: err}
	}

	opts := []option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(cred.token()))}
	if e.endpoint != "" {
		opts = append(opts, option.WithEndpoint(e.endpoint))
	}
	svc, err := forms.NewService(ctx, opts...)
	if err != nil {
		return nil, &ExportError{Stage: StageCreate, Err: fmt.Errorf("forms client: %w", err)}
	}

	created, err := svc.Forms.Create(&forms.Form{
		Info: &forms.Info{Title: form.Title, DocumentTitle: form.Title},
	}).Context(ctx).Do()
	if err != nil {
		e.log.Error("Form create failed", "error", err)
		return nil, platformError(StageCreate, "", err)
	}

	_, err = svc.Forms.BatchUpdate(created.FormId, &forms.BatchUpdateFormRequest{
		Requests:              requests,
		IncludeFormInResponse: false,
	}).Context(ctx).Do()
	if err != nil {
		e.log.Error("Form batchUpdate failed", "form_id", created.FormId, "error", err)
		return nil, platformError(StageBatchUpdate, created.FormId, err)
	}

	report := models.ValidateForm(form)
	e.log.Info("Form exported", "form_id", created.FormId, "items", len(form.Items))
	return &ExportResult{
		FormID:       created.FormId,
		ResponderURL: created.ResponderUri,
		EditURL:      fmt.Sprintf("https://docs.google.com/forms/d/%s/edit", created.FormId),
		Warnings:     report.WarningMessages(),
	}, nil
}

func platformError(stage Stage, formID string, err error) *ExportError {
	out := &ExportError{Stage: stage, FormID: formID, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		out.Status = gerr.Code
		out.Message = gerr.Message
	}
	return out
}
