package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizform-backend/internal/models"
)

var validateCmd = &cobra.Command{
	Use:   "validate <form.json>",
	Short: "Check a form for problems that would block or degrade export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := readForm(args[0])
		if err != nil {
			return err
		}

		report := models.ValidateForm(form)
		out := cmd.OutOrStdout()
		for _, e := range report.Errors {
			fmt.Fprintf(out, "error:   %s\n", e)
		}
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if !report.OK() {
			return fmt.Errorf("%d error(s) must be fixed before export", len(report.Errors))
		}
		fmt.Fprintf(out, "✓ %d items, ready to export\n", len(form.Items))
		return nil
	},
}
