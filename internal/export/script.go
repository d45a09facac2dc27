package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"quizform-backend/internal/models"
)

const scriptFunction = "createQuizForm"

// BuildScript renders a self-contained Apps Script that recreates the form
// in the account of whoever runs it. It never fails: anything the script
// cannot express becomes a comment next to the item it concerns.
func BuildScript(form *models.Form) string {
	if form == nil {
		form = &models.Form{}
	}

	var b strings.Builder
	writeHeader(&b, form)

	fmt.Fprintf(&b, "function %s() {\n", scriptFunction)
	fmt.Fprintf(&b, "  var form = FormApp.create(%s);\n", jsString(form.Title))
	if form.Description != "" {
		fmt.Fprintf(&b, "  form.setDescription(%s);\n", jsString(form.Description))
	}
	b.WriteString("  form.setIsQuiz(true);\n")

	for i, it := range form.Items {
		b.WriteString("\n")
		writeItem(&b, i+1, it)
	}

	b.WriteString("\n")
	b.WriteString("  Logger.log('Edit URL: ' + form.getEditUrl());\n")
	b.WriteString("  Logger.log('Published URL: ' + form.getPublishedUrl());\n")
	b.WriteString("}\n")
	return b.String()
}

func writeHeader(b *strings.Builder, form *models.Form) {
	b.WriteString("/**\n")
	fmt.Fprintf(b, " * Creates the quiz %q in your Google account.\n", commentText(form.Title))
	b.WriteString(" *\n")
	b.WriteString(" * How to run:\n")
	b.WriteString(" *   1. Open https://script.google.com and click \"New project\".\n")
	b.WriteString(" *   2. Delete the placeholder code and paste this whole script.\n")
	b.WriteString(" *   3. Save the project (Ctrl+S or the disk icon).\n")
	fmt.Fprintf(b, " *   4. Pick %s in the function list and click Run.\n", scriptFunction)
	b.WriteString(" *   5. Approve the permissions Google asks for.\n")
	b.WriteString(" *   6. Open the Execution log to find the edit and published links.\n")
	b.WriteString(" */\n")
}

func writeItem(b *strings.Builder, n int, it models.FormItem) {
	v := fmt.Sprintf("item%d", n)
	fmt.Fprintf(b, "  // %d. %s\n", n, commentText(it.Title))

	switch it.Type {
	case models.ItemShortAnswer:
		fmt.Fprintf(b, "  var %s = form.addTextItem();\n", v)
		writeTitleRequired(b, v, it)
		if it.Graded() {
			fmt.Fprintf(b, "  %s.setPoints(%d);\n", v, pointValue(*it.Points))
			if it.HasAnswer() {
				fmt.Fprintf(b, "  // NOTE: Apps Script cannot set the answer key for short answers. Suggested answer: %s\n", commentText(it.CorrectAnswer.String()))
			} else {
				b.WriteString("  // NOTE: no answer was identified. Add the correct answer in the form's answer key.\n")
			}
		}
	case models.ItemParagraph:
		fmt.Fprintf(b, "  var %s = form.addParagraphTextItem();\n", v)
		writeTitleRequired(b, v, it)
	case models.ItemMultipleChoice:
		fmt.Fprintf(b, "  var %s = form.addMultipleChoiceItem();\n", v)
		writeChoiceItem(b, v, it)
	case models.ItemCheckboxes:
		fmt.Fprintf(b, "  var %s = form.addCheckboxItem();\n", v)
		writeChoiceItem(b, v, it)
	case models.ItemDropdown:
		fmt.Fprintf(b, "  var %s = form.addListItem();\n", v)
		writeChoiceItem(b, v, it)
	case models.ItemSectionHeader:
		fmt.Fprintf(b, "  var %s = form.addSectionHeaderItem();\n", v)
		fmt.Fprintf(b, "  %s.setTitle(%s);\n", v, jsString(it.Title))
		if it.Description != "" {
			fmt.Fprintf(b, "  %s.setHelpText(%s);\n", v, jsString(it.Description))
		}
	default:
		fmt.Fprintf(b, "  // Skipped: unsupported item type %s\n", commentText(string(it.Type)))
	}
}

func writeTitleRequired(b *strings.Builder, v string, it models.FormItem) {
	fmt.Fprintf(b, "  %s.setTitle(%s);\n", v, jsString(it.Title))
	if it.Required {
		fmt.Fprintf(b, "  %s.setRequired(true);\n", v)
	}
}

func writeChoiceItem(b *strings.Builder, v string, it models.FormItem) {
	writeTitleRequired(b, v, it)

	correct := make(map[string]bool)
	for _, a := range it.CorrectAnswer.Values() {
		correct[a] = true
	}

	choices := make([]string, 0, len(it.Options))
	offered := make(map[string]bool, len(it.Options))
	for _, o := range it.Options {
		offered[o] = true
		choices = append(choices, fmt.Sprintf("%s.createChoice(%s, %t)", v, jsString(o), correct[o]))
	}
	var unmatched []string
	for _, a := range it.CorrectAnswer.Values() {
		if !offered[a] {
			unmatched = append(unmatched, a)
		}
	}
	fmt.Fprintf(b, "  %s.setChoices([\n", v)
	for i, c := range choices {
		sep := ","
		if i == len(choices)-1 {
			sep = ""
		}
		fmt.Fprintf(b, "    %s%s\n", c, sep)
	}
	b.WriteString("  ]);\n")

	if !it.Graded() {
		return
	}
	fmt.Fprintf(b, "  %s.setPoints(%d);\n", v, pointValue(*it.Points))
	switch {
	case !it.HasAnswer():
		b.WriteString("  // WARNING: no correct answer was identified. Mark the right choice in the answer key.\n")
	case len(unmatched) == len(it.CorrectAnswer.Values()):
		fmt.Fprintf(b, "  // WARNING: the answer %s matches none of the choices. Mark the right choice in the answer key.\n", commentText(it.CorrectAnswer.String()))
	case len(unmatched) > 0:
		fmt.Fprintf(b, "  // WARNING: the answers %s match none of the choices and were left out of the answer key.\n", commentText(strings.Join(unmatched, ", ")))
	}
}

// jsString quotes s as a JavaScript string literal. JSON string syntax is a
// subset of it, including the U+2028 and U+2029 escapes.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// commentText keeps free text from ending a comment early.
func commentText(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\u2028", " ", "\u2029", " ", "*/", "* /").Replace(s)
	return strings.TrimSpace(s)
}
