package models

import (
	"fmt"
	"strings"
)

// Issue is one finding about a form. Index is the item position, or -1 for
// form-level findings.
type Issue struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Index < 0 {
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	}
	return fmt.Sprintf("item %d %s: %s", i.Index+1, i.Field, i.Message)
}

// ValidationReport splits findings into errors, which block export, and
// warnings, which must be shown to the user but do not block anything.
type ValidationReport struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r ValidationReport) OK() bool {
	return len(r.Errors) == 0
}

// WarningMessages flattens warnings for API responses and script comments.
func (r ValidationReport) WarningMessages() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, w.String())
	}
	return out
}

func (r *ValidationReport) errorf(index int, field, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Index: index, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationReport) warnf(index int, field, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Index: index, Field: field, Message: fmt.Sprintf(format, args...)})
}

// ValidateForm checks the structural and grading invariants of a form.
func ValidateForm(f *Form) ValidationReport {
	var r ValidationReport
	if f == nil {
		r.errorf(-1, "form", "form is missing")
		return r
	}
	if strings.TrimSpace(f.Title) == "" {
		r.errorf(-1, "title", "form title is required")
	}
	if len(f.Items) == 0 {
		r.warnf(-1, "items", "form has no items")
	}

	for i, it := range f.Items {
		if strings.TrimSpace(it.Title) == "" {
			r.errorf(i, "title", "item title is required")
		}
		if it.Points != nil && *it.Points < 0 {
			r.errorf(i, "points", "points must not be negative (got %v)", *it.Points)
		}

		switch it.Type {
		case ItemMultipleChoice, ItemDropdown:
			validateOptions(&r, i, it)
			if it.CorrectAnswer != nil {
				if it.CorrectAnswer.IsMulti() && len(it.CorrectAnswer.Values()) > 1 {
					r.errorf(i, "correctAnswer", "%s takes a single correct answer", it.Type)
				}
				for _, v := range it.CorrectAnswer.Values() {
					if v != "" && !contains(it.Options, v) {
						r.errorf(i, "correctAnswer", "answer %q is not one of the options", v)
					}
				}
			}
			warnUngraded(&r, i, it)
		case ItemCheckboxes:
			validateOptions(&r, i, it)
			if it.CorrectAnswer != nil {
				seen := make(map[string]bool)
				for _, v := range it.CorrectAnswer.Values() {
					if !contains(it.Options, v) {
						r.errorf(i, "correctAnswer", "answer %q is not one of the options", v)
					}
					if seen[v] {
						r.errorf(i, "correctAnswer", "answer %q is listed more than once", v)
					}
					seen[v] = true
				}
			}
			warnUngraded(&r, i, it)
		case ItemShortAnswer:
			rejectOptions(&r, i, it)
			if it.Graded() && !it.HasAnswer() {
				r.warnf(i, "correctAnswer", "item carries points but has no suggested answer; grade it manually")
			}
		case ItemParagraph:
			rejectOptions(&r, i, it)
			if it.Points != nil || it.CorrectAnswer != nil {
				r.warnf(i, "points", "paragraph items are never graded; grading fields will be dropped on export")
			}
		case ItemSectionHeader:
			rejectOptions(&r, i, it)
			if it.Points != nil || it.CorrectAnswer != nil {
				r.warnf(i, "points", "section headers are not questions; grading fields will be ignored")
			}
		default:
			r.errorf(i, "type", "unknown item type %q", it.Type)
			continue
		}

		if it.Description != "" && it.Type != ItemSectionHeader {
			r.warnf(i, "description", "description is only used by section headers and will be ignored")
		}
	}
	return r
}

func validateOptions(r *ValidationReport, i int, it FormItem) {
	if len(it.Options) == 0 {
		r.errorf(i, "options", "%s needs at least one option", it.Type)
		return
	}
	seen := make(map[string]bool, len(it.Options))
	for _, o := range it.Options {
		if strings.TrimSpace(o) == "" {
			r.errorf(i, "options", "options must not be blank")
			return
		}
		if seen[o] {
			r.errorf(i, "options", "option %q is listed more than once", o)
		}
		seen[o] = true
	}
}

func rejectOptions(r *ValidationReport, i int, it FormItem) {
	if len(it.Options) > 0 {
		r.errorf(i, "options", "%s must not have options", it.Type)
	}
}

func warnUngraded(r *ValidationReport, i int, it FormItem) {
	if it.Graded() && !it.HasAnswer() {
		r.warnf(i, "correctAnswer", "item carries points but no correct answer was identified; set the answer key manually")
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
