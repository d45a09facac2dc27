// Package cli implements the quizform command line tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"quizform-backend/internal/logger"
	"quizform-backend/internal/models"
)

var rootCmd = &cobra.Command{
	Use:           "quizform",
	Short:         "Turn documents into Google Forms quizzes",
	Long:          "quizform extracts text from PDF, DOCX, TXT and Markdown files, asks a generative model for a quiz, and exports it to Google Forms.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log pipeline steps to stderr")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(validateCmd)
}

// newLogger returns a development logger with --verbose and a silent one
// otherwise, so command output stays clean for piping.
func newLogger(cmd *cobra.Command) (*logger.Logger, error) {
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		return logger.New("dev")
	}
	return logger.Nop(), nil
}

func readForm(path string) (*models.Form, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read form: %w", err)
	}

	// Accept the API's {"form": {...}} envelope as well as a bare form.
	var wrapped models.FormRequest
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Form != nil {
		return wrapped.Form, nil
	}
	var form models.Form
	if err := json.Unmarshal(raw, &form); err != nil {
		return nil, fmt.Errorf("parse form %s: %w", path, err)
	}
	return &form, nil
}

// emit writes out to --out when set, or to the command's stdout, and copies
// it to the clipboard when --copy is set.
func emit(cmd *cobra.Command, out string) error {
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", path)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), out)
	}

	if c, _ := cmd.Flags().GetBool("copy"); c {
		if err := clipboard.WriteAll(out); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "✓ Copied to clipboard")
	}
	return nil
}

// userError carries a message meant for the person at the terminal.
type userError struct {
	msg string
	err error
}

func (e userError) Error() string { return e.msg }

func (e userError) Unwrap() error { return e.err }

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "! %s\n", w)
	}
}
