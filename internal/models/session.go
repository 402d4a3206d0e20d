// Package models defines the records memsynth reads and writes.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StateVersion is written into every synthesis state file.
const StateVersion = "1.0"

// MemoryEntry is a single categorized fact extracted from a session.
type MemoryEntry struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// SessionRecord is the one-time snapshot of all memories from one session.
// Timestamp is kept as written (ISO-8601) so that records with a missing or
// malformed timestamp still load; use Time to interpret it.
type SessionRecord struct {
	SessionID        string        `json:"session_id"`
	Timestamp        string        `json:"timestamp"`
	Summary          string        `json:"summary"`
	Memories         []MemoryEntry `json:"memories"`
	WorkingDirectory string        `json:"working_directory"`
}

// Time parses the record timestamp in loc. ok is false when the timestamp is
// missing or unparseable.
func (r SessionRecord) Time(loc *time.Location) (t time.Time, ok bool) {
	t, err := ParseTimestamp(r.Timestamp, loc)
	return t, err == nil
}

// EnrichedEntry is a MemoryEntry carrying the context of the record it came
// from. It only exists inside a synthesis run.
type EnrichedEntry struct {
	MemoryEntry
	// Timestamp is the zero time when the record had none.
	Timestamp        time.Time
	WorkingDirectory string
	// SourceID is the session file name.
	SourceID string
}

// SynthesisState records when synthesis last completed.
type SynthesisState struct {
	LastSynthesis time.Time
	Version       string
}

type synthesisStateJSON struct {
	LastSynthesis string `json:"last_synthesis"`
	Version       string `json:"version"`
}

// MarshalJSON writes last_synthesis as RFC 3339.
func (s SynthesisState) MarshalJSON() ([]byte, error) {
	return json.Marshal(synthesisStateJSON{
		LastSynthesis: s.LastSynthesis.Format(time.RFC3339Nano),
		Version:       s.Version,
	})
}

// UnmarshalJSON accepts any timestamp form ParseTimestamp understands,
// including offset-less ISO-8601 which is read as local time.
func (s *SynthesisState) UnmarshalJSON(data []byte) error {
	var raw synthesisStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := ParseTimestamp(raw.LastSynthesis, time.Local)
	if err != nil {
		return fmt.Errorf("last_synthesis: %w", err)
	}
	s.LastSynthesis = t
	s.Version = raw.Version
	return nil
}
