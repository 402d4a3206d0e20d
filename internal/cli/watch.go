package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/memsynth/internal/service"
	"github.com/raphaelgruber/memsynth/internal/synth"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run in the foreground, synthesizing whenever it is due",
	Long: `Stay running and check whether synthesis is due on a cron schedule and
whenever a new session record is saved. Synthesis runs in-process.

Examples:
  memsynth watch
  memsynth watch --schedule "@every 30m"
  memsynth watch --schedule "0 9 * * *"`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", service.DefaultSchedule, "cron schedule for periodic checks")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}

	// Settings are re-read per pass so edits apply without a restart.
	runner := runnerFunc(func() *synth.Synthesizer {
		return synth.NewSynthesizer(synth.Deps{
			Store:    st,
			Settings: loadSettings(),
			Logger:   logger,
		})
	})
	manager := service.NewJobManager(runner, logger)
	defer manager.Wait()

	scheduler := service.NewScheduler(service.SchedulerConfig{
		Store:        st,
		SettingsFile: cfg.SettingsFile,
		Launcher:     &service.JobLauncher{Manager: manager},
		Logger:       logger,
	})

	watcher, err := service.NewWatcher(service.WatcherConfig{
		Checker:     scheduler,
		SessionsDir: cfg.SessionsDir,
		Schedule:    watchSchedule,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (schedule %s), Ctrl+C to stop\n", cfg.SessionsDir, watchSchedule)
	return watcher.Run(ctx)
}
