package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vakinola/Studyassist-MVP/internal/client"
	"github.com/vakinola/Studyassist-MVP/internal/config"
	"github.com/vakinola/Studyassist-MVP/internal/services"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document and wait for its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, args[0])
		},
	}
}

func runUpload(cmd *cobra.Command, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if !services.IsSupportedExtension(path) {
		return fmt.Errorf("unsupported file type %q, use PDF, DOCX, PPTX or TXT", filepath.Ext(path))
	}

	cfg := config.LoadClient()
	transport := client.NewHTTPTransport(cfg.ServerURL)
	coord := client.NewCoordinator(transport, cfg.PollInterval)

	done := make(chan error, 1)
	coord.OnUpdate = func(s client.Snapshot) {
		fmt.Fprintf(cmd.OutOrStdout(), "\r%-12s %3d%%", s.Phase, s.Pct)
	}
	coord.OnCompleted = func(jobID string) {
		done <- nil
	}
	coord.OnFailure = func(err error) {
		done <- fmt.Errorf("processing failed: %w", err)
	}

	jobID, err := coord.Submit(cmd.Context(), path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "job %s\n", jobID)

	err = <-done
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	summary, err := transport.Summary(cmd.Context(), filepath.Base(path))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}
