package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/memsynth/internal/service"
)

var checkForce bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Start a background synthesis if one is due",
	Long: `Check the last synthesis time and the number of new session records, and
start a detached synthesis process when the configured interval has passed
and there is something to synthesize. Returns immediately; meant to run when
a session starts.

Examples:
  memsynth check
  memsynth check --force`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkForce, "force", false, "launch regardless of interval and backlog")
}

func runCheck(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	scheduler := service.NewScheduler(service.SchedulerConfig{
		Store:        st,
		SettingsFile: cfg.SettingsFile,
		Launcher:     newLauncher(cfg, logger),
		Logger:       logger,
	})

	result, err := scheduler.Check(cmd.Context(), checkForce)
	if err != nil {
		// Best effort: a failed check must not fail the session that ran it.
		logger.Warn("synthesis check failed", "error", err)
		return nil
	}

	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "decision=%s backlog=%d launched=%t\n",
			result.Decision, result.Backlog, result.Launched)
	}
	return nil
}
