package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// ProcessLauncher runs synthesis in a detached child process, so the pass
// survives the exit of the process that launched it.
type ProcessLauncher struct {
	// Executable defaults to the running binary.
	Executable string
	Args       []string
	// Env is appended to the current environment.
	Env    []string
	Logger *slog.Logger
}

// SettingsEnv names the environment variable that points at the settings file.
const SettingsEnv = "MEMSYNTH_CONFIG"

// NewProcessLauncher returns a launcher that re-executes the running binary
// as "synthesize" against the given memory home and settings file, so the
// child runs with the settings the check was decided with.
func NewProcessLauncher(home, settingsFile string, logger *slog.Logger) *ProcessLauncher {
	return &ProcessLauncher{
		Args:   []string{"synthesize", "--home", home},
		Env:    []string{SettingsEnv + "=" + settingsFile},
		Logger: logger,
	}
}

// Launch starts the child and returns without waiting for it. The child's
// stdio is the null device and it runs in its own session.
func (l *ProcessLauncher) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	exe := l.Executable
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
	}

	// Not CommandContext: the child must outlive ctx.
	cmd := exec.Command(exe, l.Args...)
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", exe, err)
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("synthesis process started", "pid", cmd.Process.Pid)

	return cmd.Process.Release()
}
