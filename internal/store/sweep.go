package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/raphaelgruber/memsynth/internal/models"
)

// Sweep deletes session records created strictly before now minus
// retentionDays, judged by the time encoded in the file name. Files whose id
// does not parse are kept. Failed deletions are logged and skipped. A
// non-positive retentionDays disables the sweep.
func (s *Store) Sweep(ctx context.Context, retentionDays int, now time.Time) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	names, err := s.listSessionFiles()
	if err != nil {
		return 0, err
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	removed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		created, err := models.ParseSessionID(models.SessionIDFromFile(name), now.Location())
		if err != nil || !created.Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.sessionsDir, name)); err != nil {
			s.logger.Debug("failed to remove expired session", "file", name, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("removed expired sessions", "count", removed, "retention_days", retentionDays)
	}
	return removed, nil
}
