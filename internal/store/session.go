package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/raphaelgruber/memsynth/internal/models"
)

const maxSaveAttempts = 4

// SaveSession writes rec as a new session file and returns its path. Records
// are never overwritten: when another session already claimed the id, a short
// random suffix is appended and rec.SessionID is updated.
func (s *Store) SaveSession(ctx context.Context, rec *models.SessionRecord) (string, error) {
	if rec.SessionID == "" {
		return "", errors.New("session record has no id")
	}
	if err := os.MkdirAll(s.sessionsDir, 0o755); err != nil {
		return "", fmt.Errorf("create sessions directory: %w", err)
	}

	baseID := rec.SessionID
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if attempt > 0 {
			rec.SessionID = baseID + "_" + uuid.New().String()[:8]
		}

		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode session record: %w", err)
		}

		path := filepath.Join(s.sessionsDir, models.SessionFileName(rec.SessionID))
		err = writeFileExclusive(path, append(data, '\n'), 0o644)
		if err == nil {
			s.logger.Debug("session saved", "file", filepath.Base(path), "memories", len(rec.Memories))
			return path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("write session record: %w", err)
		}
	}
	return "", fmt.Errorf("write session record: id %s still taken after %d attempts", baseID, maxSaveAttempts)
}
