// Package cli provides the command-line interface for memsynth.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/memsynth/internal/config"
	"github.com/raphaelgruber/memsynth/internal/service"
	"github.com/raphaelgruber/memsynth/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	quiet   bool
	homeDir string

	// Global config and logger, set up before every command
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error

	// newLauncher builds the launcher used by check.
	newLauncher = func(c config.Config, logger *slog.Logger) service.Launcher {
		return service.NewProcessLauncher(c.HomeDir, c.SettingsFile, logger)
	}
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "memsynth",
	Short: "Consolidate session memories into one memory document",
	Long: `Memsynth collects the memories extracted at the end of each session and
periodically consolidates them into a single deduplicated, categorized
MEMORY.md.

Session hooks call "memsynth save" when a session ends and "memsynth check"
when one starts; check launches a synthesis in the background when it is due.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if homeDir != "" {
			loaded := cfg
			cfg = config.ForHome(homeDir)
			cfg.LogLevel = loaded.LogLevel
			// Explicit file locations win over the home layout.
			if os.Getenv("MEMSYNTH_LOG_FILE") != "" {
				cfg.LogFile = loaded.LogFile
			}
			if os.Getenv(service.SettingsEnv) != "" {
				cfg.SettingsFile = loaded.SettingsFile
			}
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		if err := cfg.EnsureDirs(); err != nil {
			return fmt.Errorf("create memory directories: %w", err)
		}

		var console io.Writer = cmd.ErrOrStderr()
		if quiet {
			console = io.Discard
		}
		logger, closeLog = config.SetupLoggerTo(console, cfg.LogFile, cfg.LogLevel)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close log file: %v\n", err)
			}
			closeLog = nil
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log to the log file only")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "memory home directory (default $MEMSYNTH_HOME or ~/.claude/memory)")

	// Add subcommands
	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

// openStore opens the store for the loaded config.
func openStore() (*store.Store, error) {
	st, err := store.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// loadSettings reads the settings file once for the current command.
func loadSettings() config.Settings {
	return config.LoadSettings(cfg.SettingsFile, logger)
}
