package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/memsynth/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the memory directories and a default settings file",
	Long: `Create the memory home, its sessions and synthesis directories, and write
the default settings file. An existing settings file is kept unless --force
is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing settings file")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// Directories were created before the command ran.
	fmt.Fprintf(out, "Memory home: %s\n", cfg.HomeDir)

	err := config.WriteSettings(cfg.SettingsFile, config.DefaultSettings(), initForce)
	if errors.Is(err, config.ErrSettingsExist) {
		fmt.Fprintf(out, "Keeping existing settings: %s\n", cfg.SettingsFile)
		return nil
	}
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	fmt.Fprintf(out, "Wrote default settings: %s\n", cfg.SettingsFile)
	return nil
}
