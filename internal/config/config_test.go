package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_HomeResolution(t *testing.T) {
	t.Run("explicit home", func(t *testing.T) {
		t.Setenv("MEMSYNTH_HOME", "/tmp/memhome")
		t.Setenv("MEMSYNTH_CONFIG", "")
		t.Setenv("MEMSYNTH_LOG_FILE", "")
		cfg := Load()
		assert.Equal(t, "/tmp/memhome", cfg.HomeDir)
		assert.Equal(t, filepath.Join("/tmp/memhome", "sessions"), cfg.SessionsDir)
		assert.Equal(t, filepath.Join("/tmp/memhome", "synthesis"), cfg.SynthesisDir)
		assert.Equal(t, filepath.Join("/tmp/memhome", "MEMORY.md"), cfg.DocumentFile)
		assert.Equal(t, filepath.Join("/tmp/memhome", "memory-config.json"), cfg.SettingsFile)
	})

	t.Run("claude home", func(t *testing.T) {
		t.Setenv("MEMSYNTH_HOME", "")
		t.Setenv("CLAUDE_HOME", "/tmp/claude")
		cfg := Load()
		assert.Equal(t, filepath.Join("/tmp/claude", "memory"), cfg.HomeDir)
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	got := LoadSettings(filepath.Join(t.TempDir(), "nope.json"), quietLogger())
	assert.Equal(t, DefaultSettings(), got)
}

func TestLoadSettings_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory-config.json")
	writeFile(t, path, `{
	"enabled": false,
	"categories": ["preferences", "custom"],
	"synthesis_interval_hours": 1.5,
	"max_memories_per_category": 3,
	"unknown_key": "ignored"
}`)

	got := LoadSettings(path, quietLogger())

	assert.False(t, got.Enabled)
	assert.Equal(t, []string{"preferences", "custom"}, got.Categories)
	assert.Equal(t, 90*time.Minute, got.SynthesisInterval)
	assert.Equal(t, 3, got.MaxMemoriesPerCategory)
	// untouched keys keep defaults
	assert.Equal(t, 5, got.MinMessages)
	assert.Equal(t, 30, got.CleanupAfterDays)
}

func TestLoadSettings_BadValuesIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory-config.json")
	writeFile(t, path, `{
	"enabled": "yes",
	"categories": ["ok", 7],
	"max_memories_per_category": 2.5,
	"cleanup_after_days": 7
}`)

	var logs bytes.Buffer
	got := LoadSettings(path, slog.New(slog.NewTextHandler(&logs, nil)))

	def := DefaultSettings()
	assert.Equal(t, def.Enabled, got.Enabled)
	assert.Equal(t, def.Categories, got.Categories)
	assert.Equal(t, def.MaxMemoriesPerCategory, got.MaxMemoriesPerCategory)
	assert.Equal(t, 7, got.CleanupAfterDays)
	assert.Contains(t, logs.String(), "ignoring settings key")
}

func TestLoadSettings_InvalidFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory-config.json")
	writeFile(t, path, `{not json`)

	assert.Equal(t, DefaultSettings(), LoadSettings(path, quietLogger()))
}

func TestLoadSettings_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory-config.yaml")
	writeFile(t, path, "enabled: true\nsynthesis_interval_hours: 6\ncategories:\n  - preferences\n")

	got := LoadSettings(path, quietLogger())
	assert.Equal(t, 6*time.Hour, got.SynthesisInterval)
	assert.Equal(t, []string{"preferences"}, got.Categories)
}

func TestAllowsCategory(t *testing.T) {
	s := DefaultSettings()
	assert.True(t, s.AllowsCategory("preferences"))
	assert.False(t, s.AllowsCategory("Preferences"))
	assert.False(t, s.AllowsCategory("other"))

	s.Categories = nil
	assert.True(t, s.AllowsCategory("anything"))
}

func TestWriteSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "memory-config.json")
	require.NoError(t, WriteSettings(path, DefaultSettings(), false))

	assert.Equal(t, DefaultSettings(), LoadSettings(path, quietLogger()))

	err := WriteSettings(path, DefaultSettings(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSettingsExist)

	require.NoError(t, WriteSettings(path, DefaultSettings(), true))
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("synthesis complete", "unique", 3)

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "synthesis complete")
	assert.Contains(t, file.String(), `"unique":3`)
}

func TestEnsureDirs(t *testing.T) {
	cfg := ForHome(filepath.Join(t.TempDir(), "memory"))
	require.NoError(t, cfg.EnsureDirs())

	for _, dir := range []string{cfg.HomeDir, cfg.SessionsDir, cfg.SynthesisDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
