package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ItemType is the closed set of form item kinds. Consumers switch on it
// exhaustively and treat anything else as an error.
type ItemType string

const (
	ItemShortAnswer    ItemType = "SHORT_ANSWER"
	ItemParagraph      ItemType = "PARAGRAPH"
	ItemMultipleChoice ItemType = "MULTIPLE_CHOICE"
	ItemCheckboxes     ItemType = "CHECKBOXES"
	ItemDropdown       ItemType = "DROPDOWN"
	ItemSectionHeader  ItemType = "SECTION_HEADER"
)

// AllItemTypes lists every item type in schema order.
var AllItemTypes = []ItemType{
	ItemShortAnswer,
	ItemParagraph,
	ItemMultipleChoice,
	ItemCheckboxes,
	ItemDropdown,
	ItemSectionHeader,
}

func (t ItemType) Valid() bool {
	switch t {
	case ItemShortAnswer, ItemParagraph, ItemMultipleChoice, ItemCheckboxes, ItemDropdown, ItemSectionHeader:
		return true
	}
	return false
}

// IsChoice reports whether items of this type carry an options list.
func (t ItemType) IsChoice() bool {
	switch t {
	case ItemMultipleChoice, ItemCheckboxes, ItemDropdown:
		return true
	}
	return false
}

// Form is the root artifact produced by one generation call.
type Form struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Items       []FormItem `json:"items"`
}

type FormItem struct {
	Title         string   `json:"title"`
	Type          ItemType `json:"type"`
	Description   string   `json:"description,omitempty"`
	Options       []string `json:"options,omitempty"`
	Points        *float64 `json:"points,omitempty"`
	CorrectAnswer *Answer  `json:"correctAnswer,omitempty"`
	Required      bool     `json:"required,omitempty"`
}

// Graded reports whether the item carries a positive point value.
func (it FormItem) Graded() bool {
	return it.Points != nil && *it.Points > 0
}

// HasAnswer reports whether a non-blank correct answer is present.
func (it FormItem) HasAnswer() bool {
	return it.CorrectAnswer != nil && !it.CorrectAnswer.IsEmpty()
}

// Answer holds a correct answer that is either a single string or an
// ordered list of strings. It serializes back to the shape it was built with.
type Answer struct {
	values []string
	multi  bool
}

func SingleAnswer(v string) *Answer {
	return &Answer{values: []string{v}}
}

func MultiAnswer(vals ...string) *Answer {
	return &Answer{values: append([]string{}, vals...), multi: true}
}

// Values returns the answer normalized to a list.
func (a *Answer) Values() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.values))
	copy(out, a.values)
	return out
}

func (a *Answer) IsMulti() bool {
	return a != nil && a.multi
}

func (a *Answer) IsEmpty() bool {
	if a == nil {
		return true
	}
	for _, v := range a.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// String joins list answers with ", ". Used in script comments and CLI output.
func (a *Answer) String() string {
	if a == nil {
		return ""
	}
	return strings.Join(a.values, ", ")
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multi {
		vals := a.values
		if vals == nil {
			vals = []string{}
		}
		return json.Marshal(vals)
	}
	if len(a.values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(a.values[0])
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("correctAnswer: empty value")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("correctAnswer: %w", err)
		}
		a.values = []string{s}
		a.multi = false
		return nil
	case '[':
		vals := []string{}
		if err := json.Unmarshal(trimmed, &vals); err != nil {
			return fmt.Errorf("correctAnswer: %w", err)
		}
		a.values = vals
		a.multi = true
		return nil
	default:
		// Models occasionally emit bare numbers or booleans for numeric answers.
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			switch v.(type) {
			case float64, bool:
				a.values = []string{string(trimmed)}
				a.multi = false
				return nil
			}
		}
		return fmt.Errorf("correctAnswer: expected string or array of strings, got %s", string(trimmed))
	}
}
