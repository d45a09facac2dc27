package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	forms "google.golang.org/api/forms/v1"

	"quizform-backend/internal/models"
)

func pts(v float64) *float64 { return &v }

func sampleForm() *models.Form {
	return &models.Form{
		Title:       "Geography quiz",
		Description: "Capitals and rivers",
		Items: []models.FormItem{
			{Title: "Name", Type: models.ItemShortAnswer, Required: true},
			{Title: "Part 1", Type: models.ItemSectionHeader, Description: "Read the passage."},
			{
				Title:         "Capital of Japan?",
				Type:          models.ItemMultipleChoice,
				Options:       []string{"Osaka", "Tokyo", "Kyoto"},
				Points:        pts(1),
				CorrectAnswer: models.SingleAnswer("Tokyo"),
			},
			{
				Title:         "Pick the rivers",
				Type:          models.ItemCheckboxes,
				Options:       []string{"Nile", "Alps", "Amazon"},
				Points:        pts(2),
				CorrectAnswer: models.MultiAnswer("Nile", "Amazon"),
			},
			{Title: "Largest ocean", Type: models.ItemDropdown, Options: []string{"Pacific", "Atlantic"}, Points: pts(1), CorrectAnswer: models.SingleAnswer("Pacific")},
			{Title: "Capital of France", Type: models.ItemShortAnswer, Points: pts(1), CorrectAnswer: models.SingleAnswer("Paris")},
			{Title: "Explain erosion", Type: models.ItemParagraph},
		},
	}
}

func TestBuildRequests_OrderAndShape(t *testing.T) {
	form := sampleForm()
	reqs, err := BuildRequests(form)
	require.NoError(t, err)
	require.Len(t, reqs, len(form.Items)+2)

	require.NotNil(t, reqs[0].UpdateSettings)
	assert.True(t, reqs[0].UpdateSettings.Settings.QuizSettings.IsQuiz)
	assert.Equal(t, "quizSettings.isQuiz", reqs[0].UpdateSettings.UpdateMask)

	last := reqs[len(reqs)-1]
	require.NotNil(t, last.UpdateFormInfo)
	assert.Equal(t, "Capitals and rivers", last.UpdateFormInfo.Info.Description)
	assert.Equal(t, "description", last.UpdateFormInfo.UpdateMask)

	creates := reqs[1 : len(reqs)-1]
	for i, r := range creates {
		require.NotNil(t, r.CreateItem, "request %d", i+1)
		assert.Equal(t, int64(0), r.CreateItem.Location.Index)
		// Inserted at the top one after another, so the last item comes first.
		assert.Equal(t, form.Items[len(form.Items)-1-i].Title, r.CreateItem.Item.Title)
	}

	raw, err := json.Marshal(creates[0].CreateItem.Location)
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":0}`, string(raw))
}

func TestBuildRequests_ItemMapping(t *testing.T) {
	reqs, err := BuildRequests(sampleForm())
	require.NoError(t, err)

	byTitle := map[string]*forms.Item{}
	for _, r := range reqs {
		if r.CreateItem != nil {
			byTitle[r.CreateItem.Item.Title] = r.CreateItem.Item
		}
	}

	name := byTitle["Name"].QuestionItem.Question
	assert.True(t, name.Required)
	assert.False(t, name.TextQuestion.Paragraph)
	assert.Nil(t, name.Grading)

	header := byTitle["Part 1"]
	assert.NotNil(t, header.TextItem)
	assert.Nil(t, header.QuestionItem)
	assert.Equal(t, "Read the passage.", header.Description)

	mc := byTitle["Capital of Japan?"].QuestionItem.Question
	assert.Equal(t, "RADIO", mc.ChoiceQuestion.Type)
	require.Len(t, mc.ChoiceQuestion.Options, 3)
	assert.Equal(t, "Tokyo", mc.ChoiceQuestion.Options[1].Value)
	require.NotNil(t, mc.Grading)
	assert.Equal(t, int64(1), mc.Grading.PointValue)
	assert.Equal(t, "Tokyo", mc.Grading.CorrectAnswers.Answers[0].Value)

	cb := byTitle["Pick the rivers"].QuestionItem.Question
	assert.Equal(t, "CHECKBOX", cb.ChoiceQuestion.Type)
	assert.Equal(t, int64(2), cb.Grading.PointValue)
	require.Len(t, cb.Grading.CorrectAnswers.Answers, 2)
	assert.Equal(t, "Amazon", cb.Grading.CorrectAnswers.Answers[1].Value)

	assert.Equal(t, "DROP_DOWN", byTitle["Largest ocean"].QuestionItem.Question.ChoiceQuestion.Type)

	sa := byTitle["Capital of France"].QuestionItem.Question
	require.NotNil(t, sa.Grading)
	assert.Equal(t, "Paris", sa.Grading.CorrectAnswers.Answers[0].Value)

	para := byTitle["Explain erosion"].QuestionItem.Question
	assert.True(t, para.TextQuestion.Paragraph)
	assert.Nil(t, para.Grading)
}

func TestBuildRequests_NoGradingWithoutAnswer(t *testing.T) {
	form := &models.Form{Title: "t", Items: []models.FormItem{
		{Title: "q", Type: models.ItemMultipleChoice, Options: []string{"a", "b"}, Points: pts(3)},
	}}
	reqs, err := BuildRequests(form)
	require.NoError(t, err)
	assert.Nil(t, reqs[1].CreateItem.Item.QuestionItem.Question.Grading)
}

func TestBuildRequests_RejectsInvalidForm(t *testing.T) {
	form := &models.Form{Title: "t", Items: []models.FormItem{
		{Title: "q", Type: models.ItemCheckboxes, Options: []string{"a", "b"}, Points: pts(1), CorrectAnswer: models.MultiAnswer("a", "c")},
	}}
	_, err := BuildRequests(form)
	require.Error(t, err)

	var exportErr *ExportError
	require.True(t, errors.As(err, &exportErr))
	assert.Equal(t, StageValidate, exportErr.Stage)
	assert.Contains(t, exportErr.UserMessage(), `"c" is not one of the options`)
}

func TestPointValue(t *testing.T) {
	assert.Equal(t, int64(1), pointValue(0.2))
	assert.Equal(t, int64(2), pointValue(1.5))
	assert.Equal(t, int64(5), pointValue(5))
}

// fakeFormsAPI records calls to the two Forms endpoints the exporter uses.
type fakeFormsAPI struct {
	mu          sync.Mutex
	creates     int
	batches     int
	batchBody   forms.BatchUpdateFormRequest
	authHeader  string
	batchStatus int
	batchError  string
}

func (f *fakeFormsAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authHeader = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/forms":
			f.creates++
			var body forms.Form
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Geography quiz", body.Info.Title)
			json.NewEncoder(w).Encode(map[string]any{
				"formId":       "form-123",
				"responderUri": "https://docs.google.com/forms/d/e/form-123/viewform",
				"info":         map[string]any{"title": body.Info.Title},
			})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
			f.batches++
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &f.batchBody))
			if f.batchStatus != 0 {
				w.WriteHeader(f.batchStatus)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": f.batchStatus, "message": f.batchError, "status": "INVALID_ARGUMENT"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"replies": []any{}})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestExporter(t *testing.T, api *fakeFormsAPI) *FormsExporter {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)
	return NewFormsExporter(server.URL+"/", nil)
}

func TestCreateRemoteForm_Success(t *testing.T) {
	api := &fakeFormsAPI{}
	exp := newTestExporter(t, api)

	form := sampleForm()
	res, err := exp.CreateRemoteForm(context.Background(), form, Credential{
		AccessToken: "ya29.token",
		Expiry:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, "form-123", res.FormID)
	assert.Equal(t, "https://docs.google.com/forms/d/e/form-123/viewform", res.ResponderURL)
	assert.Equal(t, "https://docs.google.com/forms/d/form-123/edit", res.EditURL)
	assert.Equal(t, 1, api.creates)
	assert.Equal(t, 1, api.batches)
	assert.Equal(t, "Bearer ya29.token", api.authHeader)

	creates := 0
	for _, r := range api.batchBody.Requests {
		if r.CreateItem != nil {
			creates++
		}
	}
	assert.Equal(t, len(form.Items), creates)
	assert.False(t, api.batchBody.IncludeFormInResponse)
}

func TestCreateRemoteForm_ExpiredCredentialMakesNoCalls(t *testing.T) {
	api := &fakeFormsAPI{}
	exp := newTestExporter(t, api)

	_, err := exp.CreateRemoteForm(context.Background(), sampleForm(), Credential{
		AccessToken: "ya29.token",
		Expiry:      time.Now().Add(-time.Minute),
	})
	var exportErr *ExportError
	require.True(t, errors.As(err, &exportErr))
	assert.Equal(t, StageCredential, exportErr.Stage)
	assert.Equal(t, 0, api.creates)
	assert.Equal(t, 0, api.batches)
}

func TestCreateRemoteForm_InvalidFormMakesNoCalls(t *testing.T) {
	api := &fakeFormsAPI{}
	exp := newTestExporter(t, api)

	form := sampleForm()
	form.Title = ""
	_, err := exp.CreateRemoteForm(context.Background(), form, Credential{AccessToken: "tok"})
	var exportErr *ExportError
	require.True(t, errors.As(err, &exportErr))
	assert.Equal(t, StageValidate, exportErr.Stage)
	assert.Equal(t, 0, api.creates)
}

func TestCreateRemoteForm_BatchFailureSurfacesPlatformMessage(t *testing.T) {
	api := &fakeFormsAPI{
		batchStatus: http.StatusBadRequest,
		batchError:  "Invalid requests[3].createItem: Duplicate choice option values.",
	}
	exp := newTestExporter(t, api)

	_, err := exp.CreateRemoteForm(context.Background(), sampleForm(), Credential{AccessToken: "tok"})
	var exportErr *ExportError
	require.True(t, errors.As(err, &exportErr))
	assert.Equal(t, StageBatchUpdate, exportErr.Stage)
	assert.Equal(t, http.StatusBadRequest, exportErr.Status)
	assert.Equal(t, "Invalid requests[3].createItem: Duplicate choice option values.", exportErr.Message)
	assert.Equal(t, "form-123", exportErr.FormID)
	assert.Contains(t, exportErr.UserMessage(), "Duplicate choice option values.")
	assert.Equal(t, 1, api.batches, "the batch is not retried")
}

func TestBuildScript_OneStatementPerItem(t *testing.T) {
	form := sampleForm()
	script := BuildScript(form)

	assert.Contains(t, script, `FormApp.create("Geography quiz")`)
	assert.Contains(t, script, "form.setIsQuiz(true);")
	assert.Equal(t, len(form.Items), strings.Count(script, "= form.add"))

	for _, call := range []string{
		"form.addTextItem()",
		"form.addSectionHeaderItem()",
		"form.addMultipleChoiceItem()",
		"form.addCheckboxItem()",
		"form.addListItem()",
		"form.addParagraphTextItem()",
	} {
		assert.Contains(t, script, call)
	}

	assert.Contains(t, script, `item3.createChoice("Tokyo", true)`)
	assert.Contains(t, script, `item3.createChoice("Osaka", false)`)
	assert.Contains(t, script, `item4.createChoice("Amazon", true)`)
	assert.Contains(t, script, "item4.setPoints(2);")
	assert.Contains(t, script, "item1.setRequired(true);")
	assert.Contains(t, script, "Suggested answer: Paris")
	assert.Contains(t, script, "Logger.log('Edit URL: ' + form.getEditUrl());")

	// Items keep their order.
	assert.Less(t, strings.Index(script, "// 1. Name"), strings.Index(script, "// 7. Explain erosion"))
}

func TestBuildScript_HeaderInstructions(t *testing.T) {
	script := BuildScript(sampleForm())
	for _, step := range []string{"1. Open", "2. Delete", "3. Save", "4. Pick createQuizForm", "5. Approve", "6. Open the Execution log"} {
		assert.Contains(t, script, step)
	}
}

func TestBuildScript_Escaping(t *testing.T) {
	form := &models.Form{
		Title: `He said "hi" */ <b>`,
		Items: []models.FormItem{
			{Title: "Line one\nline two \\ done", Type: models.ItemParagraph},
		},
	}
	script := BuildScript(form)

	assert.Contains(t, script, `FormApp.create("He said \"hi\" */ <b>")`)
	assert.Contains(t, script, `item1.setTitle("Line one\nline two \\ done");`)
	assert.Contains(t, script, `Creates the quiz "He said \"hi\" * / <b>"`)
}

func TestBuildScript_Warnings(t *testing.T) {
	form := &models.Form{Title: "t", Items: []models.FormItem{
		{Title: "no answer", Type: models.ItemMultipleChoice, Options: []string{"a", "b"}, Points: pts(1)},
		{Title: "graded text", Type: models.ItemShortAnswer, Points: pts(1)},
	}}
	script := BuildScript(form)

	assert.Contains(t, script, "WARNING: no correct answer was identified")
	assert.Contains(t, script, "Add the correct answer in the form's answer key")
	assert.Contains(t, script, `item1.createChoice("a", false)`)
	assert.Contains(t, script, `item1.createChoice("b", false)`)
}

func TestBuildScript_AnswerOutsideChoices(t *testing.T) {
	form := &models.Form{Title: "t", Items: []models.FormItem{
		{Title: "rivers", Type: models.ItemCheckboxes, Options: []string{"Nile", "Amazon"}, Points: pts(2), CorrectAnswer: models.MultiAnswer("Nile", "Danube")},
		{Title: "capital", Type: models.ItemMultipleChoice, Options: []string{"Osaka", "Kyoto"}, Points: pts(1), CorrectAnswer: models.SingleAnswer("Tokyo")},
		{Title: "all good", Type: models.ItemCheckboxes, Options: []string{"x", "y"}, Points: pts(1), CorrectAnswer: models.MultiAnswer("x", "y")},
	}}
	script := BuildScript(form)

	assert.Contains(t, script, `item1.createChoice("Nile", true)`)
	assert.Contains(t, script, "WARNING: the answers Danube match none of the choices and were left out of the answer key.")
	assert.Contains(t, script, "WARNING: the answer Tokyo matches none of the choices.")
	assert.Equal(t, 2, strings.Count(script, "WARNING:"), "fully matched items get no warning")
}

func TestSelectMode(t *testing.T) {
	assert.Equal(t, ModeAPI, SelectMode(ModeConfig{GoogleClientID: "id", GoogleClientSecret: "secret"}))
	assert.Equal(t, ModeScript, SelectMode(ModeConfig{GoogleClientID: "id"}))
	assert.Equal(t, ModeScript, SelectMode(ModeConfig{}))
}
