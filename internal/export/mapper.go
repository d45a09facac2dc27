// Package export turns a generated Form into a Google Form, either directly
// through the Forms REST API or as an Apps Script the user runs themselves.
package export

import (
	"fmt"
	"math"

	forms "google.golang.org/api/forms/v1"

	"quizform-backend/internal/models"
)

// Choice question kinds in the Forms API.
const (
	choiceRadio    = "RADIO"
	choiceCheckbox = "CHECKBOX"
	choiceDropDown = "DROP_DOWN"
)

// BuildRequests maps a form to the single batchUpdate sent after the shell
// form is created: quiz mode first, then one createItem per item, then the
// description.
//
// Every item is inserted at index 0, which pushes earlier inserts down, so
// the items are emitted last to first to come out in their original order.
func BuildRequests(form *models.Form) ([]*forms.Request, error) {
	if report := models.ValidateForm(form); !report.OK() {
		return nil, &ExportError{Stage: StageValidate, Issues: report.Errors}
	}

	requests := make([]*forms.Request, 0, len(form.Items)+2)
	requests = append(requests, &forms.Request{
		UpdateSettings: &forms.UpdateSettingsRequest{
			Settings:   &forms.FormSettings{QuizSettings: &forms.QuizSettings{IsQuiz: true}},
			UpdateMask: "quizSettings.isQuiz",
		},
	})

	for i := len(form.Items) - 1; i >= 0; i-- {
		item, err := mapItem(form.Items[i])
		if err != nil {
			return nil, &ExportError{Stage: StageValidate, Err: fmt.Errorf("item %d: %w", i+1, err)}
		}
		requests = append(requests, &forms.Request{
			CreateItem: &forms.CreateItemRequest{
				Item: item,
				Location: &forms.Location{
					Index:           0,
					ForceSendFields: []string{"Index"},
				},
			},
		})
	}

	requests = append(requests, &forms.Request{
		UpdateFormInfo: &forms.UpdateFormInfoRequest{
			Info:       &forms.Info{Description: form.Description},
			UpdateMask: "description",
		},
	})
	return requests, nil
}

func mapItem(it models.FormItem) (*forms.Item, error) {
	item := &forms.Item{Title: it.Title}

	switch it.Type {
	case models.ItemShortAnswer:
		q := &forms.Question{Required: it.Required, TextQuestion: &forms.TextQuestion{Paragraph: false}}
		q.Grading = grading(it)
		item.QuestionItem = &forms.QuestionItem{Question: q}
	case models.ItemParagraph:
		q := &forms.Question{Required: it.Required, TextQuestion: &forms.TextQuestion{Paragraph: true}}
		item.QuestionItem = &forms.QuestionItem{Question: q}
	case models.ItemMultipleChoice:
		item.QuestionItem = &forms.QuestionItem{Question: choiceQuestion(it, choiceRadio)}
	case models.ItemCheckboxes:
		item.QuestionItem = &forms.QuestionItem{Question: choiceQuestion(it, choiceCheckbox)}
	case models.ItemDropdown:
		item.QuestionItem = &forms.QuestionItem{Question: choiceQuestion(it, choiceDropDown)}
	case models.ItemSectionHeader:
		item.Description = it.Description
		item.TextItem = &forms.TextItem{}
	default:
		return nil, fmt.Errorf("unknown item type %q", it.Type)
	}
	return item, nil
}

func choiceQuestion(it models.FormItem, kind string) *forms.Question {
	options := make([]*forms.Option, 0, len(it.Options))
	for _, o := range it.Options {
		options = append(options, &forms.Option{Value: o})
	}
	return &forms.Question{
		Required: it.Required,
		ChoiceQuestion: &forms.ChoiceQuestion{
			Type:    kind,
			Options: options,
		},
		Grading: grading(it),
	}
}

// grading returns the answer key for an item with points and an answer, or
// nil. The Forms API has no way to grade without an answer key.
func grading(it models.FormItem) *forms.Grading {
	if !it.Graded() || !it.HasAnswer() {
		return nil
	}
	answers := make([]*forms.CorrectAnswer, 0, len(it.CorrectAnswer.Values()))
	for _, v := range it.CorrectAnswer.Values() {
		answers = append(answers, &forms.CorrectAnswer{Value: v})
	}
	return &forms.Grading{
		PointValue:     pointValue(*it.Points),
		CorrectAnswers: &forms.CorrectAnswers{Answers: answers},
	}
}

// pointValue rounds to the whole points both export targets accept. Any
// positive value is worth at least one point.
func pointValue(p float64) int64 {
	v := int64(math.Round(p))
	if v < 1 {
		v = 1
	}
	return v
}
