package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/memsynth/internal/service"
)

var saveCwd string

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save extracted memories from stdin as a session record",
	Long: `Read the memory extractor's output from stdin and save the valid memories
as a new session record. Accepts the extraction object, an object with the
extraction in an "output" string, or text with the object embedded in it.
Meant to run when a session ends.

Examples:
  echo '{"memories": [{"category": "preferences", "content": "uses vim"}]}' | memsynth save`,
	Args: cobra.NoArgs,
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVar(&saveCwd, "cwd", "", "working directory to record (default current directory)")
}

func runSave(cmd *cobra.Command, args []string) error {
	payload, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	cwd := saveCwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			logger.Warn("failed to get working directory", "error", err)
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}

	result, err := service.NewIngestService(st, loadSettings(), logger).Ingest(cmd.Context(), payload, cwd)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if verbose && result.Path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d memories to %s\n", result.Saved, result.Path)
	}
	return nil
}
