package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"quizform-backend/internal/app"
	"quizform-backend/internal/config"
	"quizform-backend/internal/models"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a quiz form as JSON from a document or text",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		text, _ := cmd.Flags().GetString("text")
		if (file == "") == (text == "") {
			return errors.New("pass exactly one of --file or --text")
		}

		opts, err := generationOptions(cmd)
		if err != nil {
			return err
		}

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		pipeline, err := app.NewPipeline(cmd.Context(), config.Load(), log)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		if file != "" {
			res, err := extractFile(cmd.Context(), pipeline.Extractor, file)
			if err != nil {
				return err
			}
			printWarnings(cmd, res.Warnings)
			text = res.Text
		} else if text == "-" {
			raw, err := readAllStdin()
			if err != nil {
				return err
			}
			text = raw
		}

		form, err := pipeline.Generator.Generate(cmd.Context(), text, opts)
		if err != nil {
			if ue, ok := err.(interface{ UserMessage() string }); ok {
				return userError{msg: ue.UserMessage(), err: err}
			}
			return err
		}

		report := models.ValidateForm(form)
		for _, e := range report.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "! Fix before export: %s\n", e)
		}
		printWarnings(cmd, report.WarningMessages())

		out, err := json.MarshalIndent(form, "", "  ")
		if err != nil {
			return err
		}
		return emit(cmd, string(out)+"\n")
	},
}

func init() {
	generateCmd.Flags().StringP("file", "f", "", "Document to build the quiz from")
	generateCmd.Flags().StringP("text", "t", "", "Document text to build the quiz from (- reads stdin)")
	generateCmd.Flags().StringP("out", "o", "", "Write the form JSON to a file instead of stdout")
	generateCmd.Flags().Bool("copy", false, "Copy the form JSON to the clipboard")
	generateCmd.Flags().Bool("no-choice", false, "Keep questions in their original form instead of converting them to choice questions")
	generateCmd.Flags().Bool("no-name", false, "Do not add a respondent name field")
	generateCmd.Flags().Float64("points", 1, "Points for each gradable question")
}

func generationOptions(cmd *cobra.Command) (models.GenerationOptions, error) {
	opts := models.DefaultGenerationOptions()
	if v, _ := cmd.Flags().GetBool("no-choice"); v {
		opts.PreferChoiceQuestions = false
	}
	if v, _ := cmd.Flags().GetBool("no-name"); v {
		opts.IncludeNameField = false
	}
	points, _ := cmd.Flags().GetFloat64("points")
	if points <= 0 {
		return opts, fmt.Errorf("--points must be positive, got %v", points)
	}
	opts.DefaultPoints = points
	return opts, nil
}

func readAllStdin() (string, error) {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(raw), nil
}
