// Package service provides the operations memsynth runs on behalf of its
// commands: ingesting hook payloads, deciding when to synthesize and running
// synthesis in the background.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/raphaelgruber/memsynth/internal/config"
	"github.com/raphaelgruber/memsynth/internal/models"
)

// DefaultSummary is used when a payload carries no session summary.
const DefaultSummary = "Session"

// SessionSaver persists new session records.
type SessionSaver interface {
	SaveSession(ctx context.Context, rec *models.SessionRecord) (string, error)
}

// IngestService turns upstream hook payloads into session records.
type IngestService struct {
	store    SessionSaver
	settings config.Settings
	logger   *slog.Logger
	now      func() time.Time
}

// NewIngestService creates a new ingest service.
func NewIngestService(store SessionSaver, settings config.Settings, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		store:    store,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// SaveResult summarizes an ingest. Path is empty when nothing was written.
type SaveResult struct {
	Path      string
	SessionID string
	Saved     int
	Dropped   int
}

// extraction is the memory extractor's output.
type extraction struct {
	Memories       json.RawMessage `json:"memories"`
	SessionSummary json.RawMessage `json:"session_summary"`
	Output         json.RawMessage `json:"output"`
}

// Ingest validates the memories in payload and writes them as one session
// record tagged with cwd. Payloads that carry no usable memory are not an
// error: nothing is written and the result has an empty Path. Entries without
// a string category and content, or with a category the settings do not
// allow, are dropped.
func (s *IngestService) Ingest(ctx context.Context, payload []byte, cwd string) (*SaveResult, error) {
	result := &SaveResult{}
	if !s.settings.Enabled {
		s.logger.Debug("memory collection disabled, ignoring payload")
		return result, nil
	}

	raw, summary := parsePayload(payload)
	if len(raw) == 0 {
		return result, nil
	}

	memories := make([]models.MemoryEntry, 0, len(raw))
	for _, item := range raw {
		entry, ok := decodeEntry(item)
		if !ok || !s.settings.AllowsCategory(entry.Category) {
			result.Dropped++
			continue
		}
		memories = append(memories, entry)
	}
	if result.Dropped > 0 {
		s.logger.Debug("dropped invalid memories", "count", result.Dropped)
	}
	if len(memories) == 0 {
		return result, nil
	}

	now := s.now()
	rec := &models.SessionRecord{
		SessionID:        models.NewSessionID(now),
		Timestamp:        now.Format("2006-01-02T15:04:05.000000"),
		Summary:          summary,
		Memories:         memories,
		WorkingDirectory: cwd,
	}
	path, err := s.store.SaveSession(ctx, rec)
	if err != nil {
		return nil, err
	}

	result.Path = path
	result.SessionID = rec.SessionID
	result.Saved = len(memories)
	s.logger.Info("session memories saved", "session_id", rec.SessionID, "memories", result.Saved)
	return result, nil
}

// parsePayload extracts the raw memory list and summary from any of the
// accepted shapes: the extraction object itself, an object whose "output"
// field holds the extraction as a JSON string, or free text with one JSON
// object embedded in it.
func parsePayload(payload []byte) ([]json.RawMessage, string) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, ""
	}

	var ext extraction
	if json.Valid(payload) {
		if err := json.Unmarshal(payload, &ext); err != nil {
			return nil, ""
		}
	} else {
		start := bytes.IndexByte(payload, '{')
		end := bytes.LastIndexByte(payload, '}')
		if start < 0 || end <= start {
			return nil, ""
		}
		if err := json.Unmarshal(payload[start:end+1], &ext); err != nil {
			return nil, ""
		}
	}

	if ext.Memories == nil && ext.Output != nil {
		var output string
		if err := json.Unmarshal(ext.Output, &output); err != nil {
			return nil, ""
		}
		inner := extraction{}
		if err := json.Unmarshal([]byte(output), &inner); err != nil {
			return nil, ""
		}
		ext = inner
	}

	var memories []json.RawMessage
	if err := json.Unmarshal(ext.Memories, &memories); err != nil {
		return nil, ""
	}

	summary := DefaultSummary
	var s string
	if err := json.Unmarshal(ext.SessionSummary, &s); err == nil && s != "" {
		summary = s
	}
	return memories, summary
}

func decodeEntry(raw json.RawMessage) (models.MemoryEntry, bool) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.MemoryEntry{}, false
	}
	category, ok := fields["category"].(string)
	if !ok {
		return models.MemoryEntry{}, false
	}
	content, ok := fields["content"].(string)
	if !ok {
		return models.MemoryEntry{}, false
	}
	return models.MemoryEntry{Category: category, Content: content}, true
}
