package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quizform-backend/internal/config"
	"quizform-backend/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <form.json>",
	Short: "Create the form directly in Google Forms",
	Long:  "Create the form through the Google Forms API using an OAuth access token with the forms.body scope.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			token = os.Getenv("GOOGLE_ACCESS_TOKEN")
		}
		if token == "" {
			return errors.New("an access token is required (--token or GOOGLE_ACCESS_TOKEN)")
		}

		form, err := readForm(args[0])
		if err != nil {
			return err
		}

		cred := export.Credential{AccessToken: token}
		if d, _ := cmd.Flags().GetDuration("expires-in"); d > 0 {
			cred.Expiry = time.Now().Add(d)
		}

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		exporter := export.NewFormsExporter(config.Load().FormsAPIEndpoint, log)

		res, err := exporter.CreateRemoteForm(cmd.Context(), form, cred)
		if err != nil {
			var exportErr *export.ExportError
			if errors.As(err, &exportErr) {
				return userError{msg: exportErr.UserMessage(), err: err}
			}
			return err
		}

		printWarnings(cmd, res.Warnings)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Form created: %s\n", res.FormID)
		fmt.Fprintf(out, "  Share: %s\n", res.ResponderURL)
		fmt.Fprintf(out, "  Edit:  %s\n", res.EditURL)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("token", "", "Google OAuth access token with the forms.body scope")
	exportCmd.Flags().Duration("expires-in", 0, "How long the token stays valid, e.g. 55m")
}
