package service

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingChecker counts checks.
type countingChecker struct {
	calls atomic.Int32
}

func (c *countingChecker) Check(ctx context.Context, force bool) (*CheckResult, error) {
	c.calls.Add(1)
	return &CheckResult{Decision: DecisionIdle}, nil
}

func TestNewWatcher_Schedule(t *testing.T) {
	w, err := NewWatcher(WatcherConfig{Checker: &countingChecker{}, SessionsDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, w.spec)

	_, err = NewWatcher(WatcherConfig{Checker: &countingChecker{}, Schedule: "0 */6 * * *"})
	require.NoError(t, err)

	_, err = NewWatcher(WatcherConfig{Checker: &countingChecker{}, Schedule: "every now and then"})
	assert.Error(t, err)
}

func TestWatcher_ChecksOnNewSessions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	checker := &countingChecker{}
	w, err := NewWatcher(WatcherConfig{
		Checker:     checker,
		SessionsDir: dir,
		Schedule:    "@every 1h",
		Debounce:    20 * time.Millisecond,
		Logger:      testLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Startup check.
	require.Eventually(t, func() bool { return checker.calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	// A burst of session files collapses into one check.
	for _, name := range []string{"session_20250601_100000.json", "session_20250601_100001.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0o644))
	}
	require.Eventually(t, func() bool { return checker.calls.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_ScheduleTicks(t *testing.T) {
	checker := &countingChecker{}
	w, err := NewWatcher(WatcherConfig{
		Checker:     checker,
		SessionsDir: t.TempDir(),
		Schedule:    "@every 1s",
		Logger:      testLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}
