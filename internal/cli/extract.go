package cli

import (
	"context"

	"github.com/spf13/cobra"

	"quizform-backend/internal/app"
	"quizform-backend/internal/config"
	"quizform-backend/internal/services"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the plain text of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		pipeline, err := app.NewPipeline(cmd.Context(), config.Load(), log)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		res, err := extractFile(cmd.Context(), pipeline.Extractor, args[0])
		if err != nil {
			return err
		}
		printWarnings(cmd, res.Warnings)
		return emit(cmd, res.Text+"\n")
	},
}

func init() {
	extractCmd.Flags().StringP("out", "o", "", "Write the text to a file instead of stdout")
}

func extractFile(ctx context.Context, extractor *services.FileExtractService, path string) (*services.ExtractResult, error) {
	res, err := extractor.ExtractTextFromPath(ctx, path)
	if err != nil {
		if ie, ok := err.(interface{ UserMessage() string }); ok {
			return nil, userError{msg: ie.UserMessage(), err: err}
		}
		return nil, err
	}
	return res, nil
}
