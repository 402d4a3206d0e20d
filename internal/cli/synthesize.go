package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/memsynth/internal/metrics"
	"github.com/raphaelgruber/memsynth/internal/store"
	"github.com/raphaelgruber/memsynth/internal/synth"
)

var (
	synthesizeForce     bool
	synthesizeNoCleanup bool
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Consolidate session memories into the memory document",
	Long: `Load every session record, deduplicate memories per category, and rewrite
the memory document. Session records older than the retention window are
removed afterwards unless --no-cleanup is given.

Examples:
  memsynth synthesize
  memsynth synthesize --no-cleanup
  memsynth synthesize --force    # run even when disabled in settings`,
	Args: cobra.NoArgs,
	RunE: runSynthesize,
}

func init() {
	synthesizeCmd.Flags().BoolVar(&synthesizeForce, "force", false, "run even when synthesis is disabled")
	synthesizeCmd.Flags().BoolVar(&synthesizeNoCleanup, "no-cleanup", false, "skip removal of old session records")
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	settings := loadSettings()
	if !settings.Enabled && !synthesizeForce {
		fmt.Fprintln(out, "Synthesis is disabled (use --force to run anyway)")
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}

	synthesizer := synth.NewSynthesizer(synth.Deps{
		Store:    st,
		Settings: settings,
		Logger:   logger,
	})

	report, err := synthesizer.Run(cmd.Context(), synth.RunOptions{NoCleanup: synthesizeNoCleanup})
	if errors.Is(err, store.ErrLocked) {
		fmt.Fprintln(out, "Another synthesis is in progress")
		return nil
	}
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	printReport(out, report, st.DocumentPath(), settings.CleanupAfterDays)
	if verbose {
		printStageStats(out, synthesizer.Metrics().Snapshot())
	}
	return nil
}

func printReport(out io.Writer, report *synth.Report, documentPath string, cleanupDays int) {
	fmt.Fprintf(out, "Found %d memories in %d sessions", report.Entries, report.Files)
	if report.Skipped > 0 {
		fmt.Fprintf(out, " (%d unreadable skipped)", report.Skipped)
	}
	fmt.Fprintln(out)

	if report.NoMemories {
		fmt.Fprintln(out, "No memories to synthesize")
		return
	}

	fmt.Fprintf(out, "%d unique memories across %d categories\n", report.Unique, len(report.Categories))
	fmt.Fprintf(out, "Written to %s\n", documentPath)
	if report.Removed > 0 {
		fmt.Fprintf(out, "Removed %d sessions older than %d days\n", report.Removed, cleanupDays)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Memory summary:")
	for _, c := range report.Categories {
		fmt.Fprintf(out, "  %s: %d\n", c.DisplayName, c.Count)
	}
}

func printStageStats(out io.Writer, snap metrics.Snapshot) {
	if len(snap.Operations) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Stages:")
	for _, op := range snap.Operations {
		fmt.Fprintf(out, "  %s: %dms, %d items\n", op.Name, op.TotalTimeMs, op.Items)
	}
}
