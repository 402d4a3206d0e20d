// Package config resolves memsynth's on-disk layout, logging setup and the
// user-editable synthesis settings.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// File and directory names inside the memory home.
const (
	SettingsFileName = "memory-config.json"
	DocumentFileName = "MEMORY.md"
	SessionsDirName  = "sessions"
	SynthesisDirName = "synthesis"
	LogFileName      = "memsynth.log"
)

// Config holds process-level configuration: where things live and how to log.
// Synthesis behaviour lives in Settings, which is read from SettingsFile.
type Config struct {
	// Layout
	HomeDir      string
	SettingsFile string
	DocumentFile string
	SessionsDir  string
	SynthesisDir string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
//
// The memory home is MEMSYNTH_HOME, else $CLAUDE_HOME/memory, else
// ~/.claude/memory.
func Load() Config {
	home := resolveHome()
	return Config{
		HomeDir:      home,
		SettingsFile: getEnv("MEMSYNTH_CONFIG", filepath.Join(home, SettingsFileName)),
		DocumentFile: filepath.Join(home, DocumentFileName),
		SessionsDir:  filepath.Join(home, SessionsDirName),
		SynthesisDir: filepath.Join(home, SynthesisDirName),

		LogFile:  getEnv("MEMSYNTH_LOG_FILE", filepath.Join(home, LogFileName)),
		LogLevel: parseLogLevel(getEnv("MEMSYNTH_LOG_LEVEL", "INFO")),
	}
}

// ForHome returns the layout rooted at an explicit memory home, with default
// logging. Used by tests and by the --home flag.
func ForHome(home string) Config {
	return Config{
		HomeDir:      home,
		SettingsFile: filepath.Join(home, SettingsFileName),
		DocumentFile: filepath.Join(home, DocumentFileName),
		SessionsDir:  filepath.Join(home, SessionsDirName),
		SynthesisDir: filepath.Join(home, SynthesisDirName),
		LogFile:      filepath.Join(home, LogFileName),
		LogLevel:     slog.LevelInfo,
	}
}

// EnsureDirs creates the memory home and its subdirectories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.HomeDir, c.SessionsDir, c.SynthesisDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func resolveHome() string {
	if home := os.Getenv("MEMSYNTH_HOME"); home != "" {
		return home
	}
	if claudeHome := os.Getenv("CLAUDE_HOME"); claudeHome != "" {
		return filepath.Join(claudeHome, "memory")
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".claude", "memory")
	}
	return filepath.Join(userHome, ".claude", "memory")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
