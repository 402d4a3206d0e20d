package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raphaelgruber/memsynth/internal/models"
)

const stateFileName = "last-synthesis.json"

// StatePath returns the path of the synthesis state file.
func (s *Store) StatePath() string {
	return filepath.Join(s.synthesisDir, stateFileName)
}

// LoadState returns the persisted synthesis state, or nil when synthesis has
// never completed.
func (s *Store) LoadState() (*models.SynthesisState, error) {
	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read synthesis state: %w", err)
	}

	var state models.SynthesisState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode synthesis state: %w", err)
	}
	return &state, nil
}

// SaveState records a synthesis completed at at. last_synthesis never moves
// backwards: if the stored instant is later than at, it is kept.
func (s *Store) SaveState(at time.Time) (models.SynthesisState, error) {
	state := models.SynthesisState{LastSynthesis: at, Version: models.StateVersion}

	prev, err := s.LoadState()
	if err != nil {
		s.logger.Warn("overwriting unreadable synthesis state", "error", err)
	} else if prev != nil && prev.LastSynthesis.After(at) {
		state.LastSynthesis = prev.LastSynthesis
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return state, fmt.Errorf("encode synthesis state: %w", err)
	}
	if err := writeFileAtomic(s.StatePath(), append(data, '\n'), 0o644); err != nil {
		return state, fmt.Errorf("write synthesis state: %w", err)
	}
	return state, nil
}

// WriteDocument atomically replaces the memory document.
func (s *Store) WriteDocument(content string) error {
	if err := writeFileAtomic(s.documentFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write memory document: %w", err)
	}
	return nil
}

// ReadDocument returns the current memory document. A missing document is
// reported with an error satisfying errors.Is(err, os.ErrNotExist).
func (s *Store) ReadDocument() (string, error) {
	data, err := os.ReadFile(s.documentFile)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
