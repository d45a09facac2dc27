package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validForm = `{
  "title": "Geography",
  "description": "Capitals",
  "items": [
    {"title": "Name", "type": "SHORT_ANSWER", "required": true},
    {"title": "Capital of Japan?", "type": "MULTIPLE_CHOICE", "options": ["Osaka", "Tokyo"], "points": 1, "correctAnswer": "Tokyo"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, _, err := run(t, "validate", writeFile(t, "form.json", validForm))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 items, ready to export")
}

func TestValidateCommand_Errors(t *testing.T) {
	bad := `{"title": "", "items": [{"title": "q", "type": "CHECKBOXES", "options": ["a"], "correctAnswer": ["b"]}]}`
	out, _, err := run(t, "validate", writeFile(t, "bad.json", bad))
	require.Error(t, err)
	assert.Contains(t, out, "error:   title: form title is required")
	assert.Contains(t, out, `answer "b" is not one of the options`)
}

func TestValidateCommand_AcceptsEnvelope(t *testing.T) {
	out, _, err := run(t, "validate", writeFile(t, "wrapped.json", `{"form": `+validForm+`}`))
	require.NoError(t, err)
	assert.Contains(t, out, "2 items")
}

func TestScriptCommand(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "form.gs")
	_, stderr, err := run(t, "script", writeFile(t, "form.json", validForm), "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "✓ Wrote")

	script, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(script), `FormApp.create("Geography")`)
	assert.Contains(t, string(script), `item2.createChoice("Tokyo", true)`)
}

func TestExportCommand_RequiresToken(t *testing.T) {
	t.Setenv("GOOGLE_ACCESS_TOKEN", "")
	_, _, err := run(t, "export", writeFile(t, "form.json", validForm), "--token", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token is required")
}

func TestGenerateCommand_NeedsOneSource(t *testing.T) {
	_, _, err := run(t, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --file or --text")
}
