package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	cronlib "github.com/robfig/cron/v3"

	"github.com/raphaelgruber/memsynth/internal/models"
)

// DefaultSchedule is how often the watcher checks when nothing happens.
const DefaultSchedule = "@every 1h"

const defaultDebounce = 2 * time.Second

// Checker runs a scheduling check.
type Checker interface {
	Check(ctx context.Context, force bool) (*CheckResult, error)
}

// WatcherConfig holds the dependencies for a Watcher.
type WatcherConfig struct {
	Checker     Checker
	SessionsDir string
	// Schedule is a cron spec or descriptor; defaults to DefaultSchedule.
	Schedule string
	// Debounce delays the check after a burst of new session files.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher runs scheduling checks on a cron schedule and whenever a new
// session record appears.
type Watcher struct {
	checker     Checker
	sessionsDir string
	spec        string
	schedule    cronlib.Schedule
	debounce    time.Duration
	logger      *slog.Logger
}

// NewWatcher creates a Watcher, validating the schedule.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	spec := cfg.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cronlib.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		checker:     cfg.Checker,
		sessionsDir: cfg.SessionsDir,
		spec:        spec,
		schedule:    schedule,
		debounce:    debounce,
		logger:      logger,
	}, nil
}

// Run checks once at startup, then on every schedule tick and after new
// session files settle. It blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.sessionsDir, 0o755); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	if err := fsw.Add(w.sessionsDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.sessionsDir, err)
	}

	ticks := make(chan struct{}, 1)
	c := cronlib.New()
	c.Schedule(w.schedule, cronlib.FuncJob(func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}))
	c.Start()
	defer func() { <-c.Stop().Done() }()

	w.logger.Info("watcher started", "sessions_dir", w.sessionsDir, "schedule", w.spec)
	w.check(ctx, "startup")

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher stopped")
			return nil

		case <-ticks:
			w.check(ctx, "schedule")

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !models.IsSessionFile(filepath.Base(ev.Name)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("session watcher error", "error", err)

		case <-timerC:
			timerC = nil
			w.check(ctx, "session")
		}
	}
}

func (w *Watcher) check(ctx context.Context, reason string) {
	result, err := w.checker.Check(ctx, false)
	if err != nil {
		w.logger.Warn("synthesis check failed", "reason", reason, "error", err)
		return
	}
	w.logger.Debug("synthesis check done", "reason", reason, "decision", result.Decision, "launched", result.Launched)
}
