package cli

import (
	"github.com/spf13/cobra"

	"quizform-backend/internal/export"
	"quizform-backend/internal/models"
)

var scriptCmd = &cobra.Command{
	Use:   "script <form.json>",
	Short: "Print an Apps Script that creates the form in your Google account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := readForm(args[0])
		if err != nil {
			return err
		}
		printWarnings(cmd, models.ValidateForm(form).WarningMessages())
		return emit(cmd, export.BuildScript(form))
	},
}

func init() {
	scriptCmd.Flags().StringP("out", "o", "", "Write the script to a file instead of stdout")
	scriptCmd.Flags().Bool("copy", false, "Copy the script to the clipboard")
}
