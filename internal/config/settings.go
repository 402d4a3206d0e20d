package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Canonical category names.
const (
	CategoryWorkContext       = "work_context"
	CategoryPreferences       = "preferences"
	CategoryTechnicalStyle    = "technical_style"
	CategoryOngoingProjects   = "ongoing_projects"
	CategoryToolsAndWorkflows = "tools_and_workflows"
)

// Settings are the user-editable synthesis settings. A value is loaded once per
// run and passed to each component; nothing reads the settings file directly.
type Settings struct {
	Enabled                bool
	MinMessages            int
	Categories             []string
	SynthesisInterval      time.Duration
	MaxMemoriesPerCategory int
	CleanupAfterDays       int
}

// DefaultSettings returns the built-in settings used for any key the settings
// file does not provide.
func DefaultSettings() Settings {
	return Settings{
		Enabled:     true,
		MinMessages: 5,
		Categories: []string{
			CategoryWorkContext,
			CategoryPreferences,
			CategoryTechnicalStyle,
			CategoryOngoingProjects,
			CategoryToolsAndWorkflows,
		},
		SynthesisInterval:      24 * time.Hour,
		MaxMemoriesPerCategory: 15,
		CleanupAfterDays:       30,
	}
}

// AllowsCategory reports whether entries of the given category are accepted.
// An empty allow-list accepts everything. Ingestion and loading share this
// predicate so the two paths cannot disagree.
func (s Settings) AllowsCategory(category string) bool {
	return len(s.Categories) == 0 || slices.Contains(s.Categories, category)
}

// LoadSettings reads the settings file at path and merges it over the
// defaults. A missing or unparseable file yields the defaults; a key with a
// value of the wrong type is ignored with a warning. Files ending in .yaml or
// .yml are decoded as YAML, everything else as JSON.
func LoadSettings(path string, logger *slog.Logger) Settings {
	if logger == nil {
		logger = slog.Default()
	}
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to read settings, using defaults", "path", path, "error", err)
		}
		return settings
	}

	raw, err := decodeSettings(path, data)
	if err != nil {
		logger.Warn("failed to parse settings, using defaults", "path", path, "error", err)
		return settings
	}

	settings.apply(raw, logger)
	return settings
}

func decodeSettings(path string, data []byte) (map[string]any, error) {
	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// apply overlays recognized keys from raw onto s.
func (s *Settings) apply(raw map[string]any, logger *slog.Logger) {
	ignore := func(key string, v any) {
		logger.Warn("ignoring settings key with unexpected value", "key", key, "value", v)
	}

	for key, v := range raw {
		switch key {
		case "enabled":
			if b, ok := v.(bool); ok {
				s.Enabled = b
			} else {
				ignore(key, v)
			}
		case "min_messages":
			if n, ok := asInt(v); ok {
				s.MinMessages = n
			} else {
				ignore(key, v)
			}
		case "categories":
			if cats, ok := asStrings(v); ok {
				s.Categories = cats
			} else {
				ignore(key, v)
			}
		case "synthesis_interval_hours":
			if h, ok := asFloat(v); ok {
				s.SynthesisInterval = time.Duration(h * float64(time.Hour))
			} else {
				ignore(key, v)
			}
		case "max_memories_per_category":
			if n, ok := asInt(v); ok {
				s.MaxMemoriesPerCategory = n
			} else {
				ignore(key, v)
			}
		case "cleanup_after_days":
			if n, ok := asInt(v); ok {
				s.CleanupAfterDays = n
			} else {
				ignore(key, v)
			}
		}
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asStrings(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, str)
	}
	return out, true
}

// ErrSettingsExist is returned by WriteSettings when it would overwrite a file.
var ErrSettingsExist = errors.New("settings file already exists")

// settingsFile is the on-disk shape written by WriteSettings.
type settingsFile struct {
	Enabled                bool     `json:"enabled"`
	MinMessages            int      `json:"min_messages"`
	Categories             []string `json:"categories"`
	SynthesisIntervalHours float64  `json:"synthesis_interval_hours"`
	MaxMemoriesPerCategory int      `json:"max_memories_per_category"`
	CleanupAfterDays       int      `json:"cleanup_after_days"`
}

// WriteSettings writes s to path as indented JSON. It refuses to overwrite an
// existing file unless overwrite is set.
func WriteSettings(path string, s Settings, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrSettingsExist, path)
		}
	}

	data, err := json.MarshalIndent(settingsFile{
		Enabled:                s.Enabled,
		MinMessages:            s.MinMessages,
		Categories:             s.Categories,
		SynthesisIntervalHours: s.SynthesisInterval.Hours(),
		MaxMemoriesPerCategory: s.MaxMemoriesPerCategory,
		CleanupAfterDays:       s.CleanupAfterDays,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
