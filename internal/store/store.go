// Package store provides file-backed persistence for session records, the
// synthesis state and the rendered memory document.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/raphaelgruber/memsynth/internal/config"
	"github.com/raphaelgruber/memsynth/internal/models"
)

// Store reads and writes everything under a memory home.
type Store struct {
	sessionsDir  string
	synthesisDir string
	documentFile string

	schema *jsonschema.Schema
	logger *slog.Logger
	loc    *time.Location
}

// New creates a store over the layout in cfg. Directories are not created
// here; see config.Config.EnsureDirs.
func New(cfg config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := compileSessionSchema()
	if err != nil {
		return nil, fmt.Errorf("compile session schema: %w", err)
	}
	return &Store{
		sessionsDir:  cfg.SessionsDir,
		synthesisDir: cfg.SynthesisDir,
		documentFile: cfg.DocumentFile,
		schema:       schema,
		logger:       logger,
		loc:          time.Local,
	}, nil
}

// SessionsDir returns the directory holding session records.
func (s *Store) SessionsDir() string {
	return s.sessionsDir
}

// DocumentPath returns the path of the rendered memory document.
func (s *Store) DocumentPath() string {
	return s.documentFile
}

// LoadResult is the outcome of LoadPending.
type LoadResult struct {
	// Entries in file-name order, then memory order within each file.
	Entries []models.EnrichedEntry
	// Files is the number of session files that loaded.
	Files int
	// Skipped counts files that could not be read or failed validation.
	Skipped int
	// Filtered counts entries dropped because their category is not allowed.
	Filtered int
}

// LoadPending reads every session record and flattens their memories into
// enriched entries. A file that cannot be read, decoded or validated is
// logged and skipped without contributing any entry. Entries whose category
// fails allow are dropped; a nil allow accepts every category. A missing
// sessions directory yields an empty result.
func (s *Store) LoadPending(ctx context.Context, allow func(category string) bool) (*LoadResult, error) {
	names, err := s.listSessionFiles()
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := s.readRecord(filepath.Join(s.sessionsDir, name))
		if err != nil {
			s.logger.Warn("skipping session file", "file", name, "error", err)
			result.Skipped++
			continue
		}
		result.Files++

		ts, _ := rec.Time(s.loc)
		for _, mem := range rec.Memories {
			if allow != nil && !allow(mem.Category) {
				result.Filtered++
				continue
			}
			result.Entries = append(result.Entries, models.EnrichedEntry{
				MemoryEntry:      mem,
				Timestamp:        ts,
				WorkingDirectory: rec.WorkingDirectory,
				SourceID:         name,
			})
		}
	}

	s.logger.Debug("loaded session records",
		"files", result.Files,
		"skipped", result.Skipped,
		"entries", len(result.Entries),
		"filtered", result.Filtered)

	return result, nil
}

// Backlog counts session records not yet incorporated into a synthesis. With
// a nil since every record counts. Otherwise records created after since
// count, and records whose id carries no parseable time are always counted.
// A record from the same second as since counts as incorporated.
func (s *Store) Backlog(ctx context.Context, since *time.Time) (int, error) {
	names, err := s.listSessionFiles()
	if err != nil {
		return 0, err
	}
	if since == nil {
		return len(names), nil
	}

	count := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		created, err := models.ParseSessionID(models.SessionIDFromFile(name), s.loc)
		// Session ids have second precision; compare at that precision.
		if err != nil || created.After(since.Truncate(time.Second)) {
			count++
		}
	}
	return count, nil
}

// readRecord decodes and validates a single session file.
func (s *Store) readRecord(path string) (*models.SessionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.decodeRecord(data)
}

func (s *Store) decodeRecord(data []byte) (*models.SessionRecord, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := s.schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	var rec models.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return &rec, nil
}

// listSessionFiles returns session file names sorted ascending, which is
// creation order for well-formed ids.
func (s *Store) listSessionFiles() ([]string, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !models.IsSessionFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, nil
}
