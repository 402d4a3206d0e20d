package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/memsynth/internal/config"
	"github.com/raphaelgruber/memsynth/internal/models"
)

// Decision is the outcome of a scheduling check.
type Decision string

const (
	DecisionIdle       Decision = "idle"
	DecisionTriggering Decision = "triggering"
)

// Decide reports whether a synthesis pass is due. Forced checks always
// trigger. Otherwise there must be a backlog, and either no synthesis has
// ever completed or the interval since the last one has elapsed.
func Decide(state *models.SynthesisState, backlog int, interval time.Duration, now time.Time, force bool) Decision {
	if force {
		return DecisionTriggering
	}
	if backlog <= 0 {
		return DecisionIdle
	}
	if state == nil || !now.Before(state.LastSynthesis.Add(interval)) {
		return DecisionTriggering
	}
	return DecisionIdle
}

// NextDue returns when the interval gate opens again, or the zero time when
// synthesis has never run.
func NextDue(state *models.SynthesisState, interval time.Duration) time.Time {
	if state == nil {
		return time.Time{}
	}
	return state.LastSynthesis.Add(interval)
}

// Launcher starts a synthesis pass without waiting for it.
type Launcher interface {
	Launch(ctx context.Context) error
}

// SchedulerStore is the state a scheduling check reads.
type SchedulerStore interface {
	LoadState() (*models.SynthesisState, error)
	Backlog(ctx context.Context, since *time.Time) (int, error)
}

// SchedulerConfig holds the dependencies for a Scheduler.
type SchedulerConfig struct {
	Store        SchedulerStore
	SettingsFile string
	Launcher     Launcher
	Logger       *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Scheduler decides when synthesis is due and launches it.
type Scheduler struct {
	store        SchedulerStore
	settingsFile string
	launcher     Launcher
	logger       *slog.Logger
	now          func() time.Time
}

// NewScheduler creates a Scheduler with the given config.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:        cfg.Store,
		settingsFile: cfg.SettingsFile,
		launcher:     cfg.Launcher,
		logger:       logger,
		now:          now,
	}
}

// CheckResult describes a scheduling check.
type CheckResult struct {
	Decision Decision
	Backlog  int
	State    *models.SynthesisState
	NextDue  time.Time
	// Launched is false when the decision was idle or the launch failed.
	Launched bool
}

// Check loads the settings, reads the synthesis state and backlog, and
// launches synthesis when due. The launch is fire-and-forget: a failure to
// launch is logged and never returned. An unreadable state file counts as no
// state. Only a failure to read the sessions directory is an error.
func (s *Scheduler) Check(ctx context.Context, force bool) (*CheckResult, error) {
	settings := config.LoadSettings(s.settingsFile, s.logger)
	result := &CheckResult{Decision: DecisionIdle}

	if !settings.Enabled && !force {
		s.logger.Debug("synthesis disabled")
		return result, nil
	}

	state, err := s.store.LoadState()
	if err != nil {
		s.logger.Warn("ignoring unreadable synthesis state", "error", err)
		state = nil
	}
	result.State = state
	result.NextDue = NextDue(state, settings.SynthesisInterval)

	var since *time.Time
	if state != nil {
		since = &state.LastSynthesis
	}
	backlog, err := s.store.Backlog(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("count pending sessions: %w", err)
	}
	result.Backlog = backlog

	result.Decision = Decide(state, backlog, settings.SynthesisInterval, s.now(), force)
	s.logger.Debug("synthesis check", "decision", result.Decision, "backlog", backlog, "force", force)
	if result.Decision != DecisionTriggering {
		return result, nil
	}

	if s.launcher == nil {
		s.logger.Warn("synthesis due but no launcher configured")
		return result, nil
	}
	if err := s.launcher.Launch(ctx); err != nil {
		s.logger.Warn("failed to launch synthesis", "error", err)
		return result, nil
	}
	result.Launched = true
	s.logger.Info("synthesis launched", "backlog", backlog, "force", force)
	return result, nil
}
