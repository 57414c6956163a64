package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studyassist",
		Short: "Document study assistant: upload lectures, get summaries and quizzes",
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDocsCmd())
	cmd.AddCommand(newQuizCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newResultsCmd())
	return cmd
}
