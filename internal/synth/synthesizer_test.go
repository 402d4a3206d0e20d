package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/memsynth/internal/config"
	"github.com/raphaelgruber/memsynth/internal/metrics"
	"github.com/raphaelgruber/memsynth/internal/models"
	"github.com/raphaelgruber/memsynth/internal/parser"
	"github.com/raphaelgruber/memsynth/internal/store"
)

type fixture struct {
	cfg   config.Config
	store *store.Store
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.ForHome(t.TempDir())
	require.NoError(t, cfg.EnsureDirs())
	st, err := store.New(cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	return &fixture{
		cfg:   cfg,
		store: st,
		now:   time.Date(2025, 6, 30, 18, 0, 0, 0, time.Local),
	}
}

func (f *fixture) synthesizer(settings config.Settings) *Synthesizer {
	return NewSynthesizer(Deps{
		Store:    f.store,
		Settings: settings,
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Now:      func() time.Time { return f.now },
	})
}

func (f *fixture) writeSession(t *testing.T, created time.Time, memories ...models.MemoryEntry) string {
	t.Helper()
	rec := models.SessionRecord{
		SessionID:        models.NewSessionID(created),
		Timestamp:        created.Format("2006-01-02T15:04:05.000000"),
		Summary:          "session",
		Memories:         memories,
		WorkingDirectory: "/src/project",
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	name := models.SessionFileName(rec.SessionID)
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.SessionsDir, name), data, 0o644))
	return name
}

func mem(category, content string) models.MemoryEntry {
	return models.MemoryEntry{Category: category, Content: content}
}

func bullets(t *testing.T, doc, heading string) []string {
	t.Helper()
	parsed, err := parser.ParseMemoryDocument(doc)
	require.NoError(t, err)
	if s := parsed.Section(heading); s != nil {
		return s.Items
	}
	return nil
}

func TestRun_NoSessions(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cfg.DocumentFile, []byte("previous document\n"), 0o644))

	report, err := f.synthesizer(config.DefaultSettings()).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, report.NoMemories)

	doc, err := os.ReadFile(f.cfg.DocumentFile)
	require.NoError(t, err)
	assert.Equal(t, "previous document\n", string(doc), "document untouched")

	state, err := f.store.LoadState()
	require.NoError(t, err)
	assert.Nil(t, state, "no state without a synthesis")
}

func TestRun_CollapsesOverlappingEntries(t *testing.T) {
	f := newFixture(t)
	f.writeSession(t, f.now.Add(-time.Hour),
		mem("preferences", "prefers vim as editor"),
		mem("preferences", "prefers vim as editor for every language"),
	)

	report, err := f.synthesizer(config.DefaultSettings()).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, 1, report.Unique)

	doc, err := f.store.ReadDocument()
	require.NoError(t, err)
	assert.Len(t, bullets(t, doc, "Preferences"), 1)
}

func TestRun_RecencyAcrossSessions(t *testing.T) {
	f := newFixture(t)
	f.writeSession(t, f.now.Add(-48*time.Hour), mem("technical_style", "writes table driven tests in go"))
	f.writeSession(t, f.now.Add(-time.Hour), mem("technical_style", "writes table driven tests in go with testify"))

	_, err := f.synthesizer(config.DefaultSettings()).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	doc, err := f.store.ReadDocument()
	require.NoError(t, err)
	assert.Equal(t, []string{"writes table driven tests in go with testify"}, bullets(t, doc, "Technical Style"))
}

func TestRun_CapsCategory(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 20; i++ {
		created := f.now.Add(-time.Duration(20-i) * time.Hour)
		f.writeSession(t, created, mem("work_context", fmt.Sprintf("project fact %02d", i)))
	}

	settings := config.DefaultSettings()
	settings.MaxMemoriesPerCategory = 15
	report, err := f.synthesizer(settings).Run(context.Background(), RunOptions{NoCleanup: true})
	require.NoError(t, err)
	require.Len(t, report.Categories, 1)
	assert.Equal(t, 15, report.Categories[0].Count)

	doc, err := f.store.ReadDocument()
	require.NoError(t, err)
	got := bullets(t, doc, "Work Context")
	require.Len(t, got, 15)
	assert.Equal(t, "project fact 19", got[0])
	assert.Equal(t, "project fact 05", got[14])
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.writeSession(t, f.now.Add(-3*time.Hour), mem("preferences", "uses vim"), mem("work_context", "billing team"))
	f.writeSession(t, f.now.Add(-2*time.Hour), mem("ongoing_projects", "migrating to postgres"))

	s := f.synthesizer(config.DefaultSettings())
	_, err := s.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	first, err := f.store.ReadDocument()
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	_, err = s.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	second, err := f.store.ReadDocument()
	require.NoError(t, err)

	stripTimestamp := func(doc string) string {
		var kept []string
		for _, line := range strings.Split(doc, "\n") {
			if !strings.HasPrefix(line, "*Last synthesized:") {
				kept = append(kept, line)
			}
		}
		return strings.Join(kept, "\n")
	}
	assert.NotEqual(t, first, second)
	assert.Equal(t, stripTimestamp(first), stripTimestamp(second))
}

func TestRun_WritesStateAndSweeps(t *testing.T) {
	f := newFixture(t)
	old := f.writeSession(t, f.now.AddDate(0, 0, -31), mem("preferences", "old preference"))
	recent := f.writeSession(t, f.now.AddDate(0, 0, -10), mem("preferences", "recent preference"))

	settings := config.DefaultSettings()
	settings.CleanupAfterDays = 30
	report, err := f.synthesizer(settings).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)

	// The old record still made it into this document before being swept.
	doc, err := f.store.ReadDocument()
	require.NoError(t, err)
	assert.Equal(t, []string{"recent preference", "old preference"}, bullets(t, doc, "Preferences"))

	assert.NoFileExists(t, filepath.Join(f.cfg.SessionsDir, old))
	assert.FileExists(t, filepath.Join(f.cfg.SessionsDir, recent))

	state, err := f.store.LoadState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, f.now.Equal(state.LastSynthesis))
}

func TestRun_NoCleanup(t *testing.T) {
	f := newFixture(t)
	old := f.writeSession(t, f.now.AddDate(0, 0, -90), mem("preferences", "ancient"))

	report, err := f.synthesizer(config.DefaultSettings()).Run(context.Background(), RunOptions{NoCleanup: true})
	require.NoError(t, err)
	assert.Zero(t, report.Removed)
	assert.FileExists(t, filepath.Join(f.cfg.SessionsDir, old))
}

func TestRun_RefiltersCategories(t *testing.T) {
	f := newFixture(t)
	f.writeSession(t, f.now.Add(-time.Hour), mem("preferences", "kept"), mem("secrets", "dropped"))

	report, err := f.synthesizer(config.DefaultSettings()).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Entries)

	doc, err := f.store.ReadDocument()
	require.NoError(t, err)
	assert.NotContains(t, doc, "dropped")
}

func TestRun_Locked(t *testing.T) {
	f := newFixture(t)
	f.writeSession(t, f.now.Add(-time.Hour), mem("preferences", "uses vim"))

	lease, err := f.store.AcquireLease()
	require.NoError(t, err)
	defer lease.Release()

	_, err = f.synthesizer(config.DefaultSettings()).Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, store.ErrLocked)
	assert.NoFileExists(t, f.cfg.DocumentFile)
}

func TestRun_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	f.writeSession(t, f.now.Add(-time.Hour), mem("preferences", "uses vim"))

	s := f.synthesizer(config.DefaultSettings())
	_, err := s.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	var names []string
	var items []int64
	for _, op := range s.Metrics().Snapshot().Operations {
		names = append(names, op.Name)
		items = append(items, op.Items)
		assert.Equal(t, int64(1), op.Count, op.Name)
	}
	assert.Equal(t, []string{metrics.OpLoad, metrics.OpDedupe, metrics.OpRender, metrics.OpCommit, metrics.OpSweep}, names)
	// One entry loaded and kept, one category rendered, one commit, nothing swept.
	assert.Equal(t, []int64{1, 1, 1, 1, 0}, items)
}

func TestRun_FailedCommitIsTimed(t *testing.T) {
	f := newFixture(t)
	f.writeSession(t, f.now.Add(-time.Hour), mem("preferences", "uses vim"))

	s := NewSynthesizer(Deps{Store: failingStore{f.store}, Settings: config.DefaultSettings()})
	_, err := s.Run(context.Background(), RunOptions{})
	require.Error(t, err)

	ops := s.Metrics().Snapshot().Operations
	require.Len(t, ops, 4, "sweep never runs after a failed commit")
	assert.Equal(t, metrics.OpCommit, ops[3].Name)
	assert.Zero(t, ops[3].Items)
}

type failingStore struct {
	*store.Store
}

func (failingStore) WriteDocument(string) error {
	return errors.New("disk full")
}

func TestRun_DocumentWriteFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.writeSession(t, f.now.Add(-time.Hour), mem("preferences", "uses vim"))

	s := NewSynthesizer(Deps{Store: failingStore{f.store}, Settings: config.DefaultSettings()})
	_, err := s.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	state, err := f.store.LoadState()
	require.NoError(t, err)
	assert.Nil(t, state, "state must not advance without a document")
}
