package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/memsynth/internal/config"
	"github.com/raphaelgruber/memsynth/internal/models"
	"github.com/raphaelgruber/memsynth/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestStore(t *testing.T) (*store.Store, config.Config) {
	t.Helper()
	cfg := config.ForHome(t.TempDir())
	require.NoError(t, cfg.EnsureDirs())
	st, err := store.New(cfg, testLogger())
	require.NoError(t, err)
	return st, cfg
}

// writeSessions saves n one-memory records created at the given instants.
func writeSessions(t *testing.T, st *store.Store, created ...time.Time) {
	t.Helper()
	for _, at := range created {
		_, err := st.SaveSession(context.Background(), &models.SessionRecord{
			SessionID: models.NewSessionID(at),
			Timestamp: at.Format(time.RFC3339),
			Memories:  []models.MemoryEntry{{Category: config.CategoryPreferences, Content: "uses vim"}},
		})
		require.NoError(t, err)
	}
}

func writeSettingsFile(t *testing.T, cfg config.Config, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(cfg.SettingsFile, []byte(content), 0o644))
}

// recordingLauncher counts launches and optionally fails them.
type recordingLauncher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (l *recordingLauncher) Launch(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.err
}

func (l *recordingLauncher) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

var errLaunch = errors.New("launch failed")
