package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vakinola/Studyassist-MVP/internal/client"
	"github.com/vakinola/Studyassist-MVP/internal/config"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage uploaded documents",
	}
	cmd.AddCommand(newDocsListCmd())
	cmd.AddCommand(newDocsSummaryCmd())
	cmd.AddCommand(newDocsDeleteCmd())
	return cmd
}

func newDocsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadClient()
			transport := client.NewHTTPTransport(cfg.ServerURL)

			docs, err := transport.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no documents uploaded yet")
				return nil
			}
			for _, d := range docs {
				ready := " "
				if d.Summary != nil {
					ready = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s  (%s)\n", ready, d.Filename, d.UploadedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newDocsSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <filename>",
		Short: "Print the stored summary for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadClient()
			transport := client.NewHTTPTransport(cfg.ServerURL)

			summary, err := transport.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if summary == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no summary yet, processing may still be running")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func newDocsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <filename>",
		Short: "Delete a document and its stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadClient()
			transport := client.NewHTTPTransport(cfg.ServerURL)

			msg, err := transport.DeleteDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}
