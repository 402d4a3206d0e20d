package synth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/memsynth/internal/config"
	"github.com/raphaelgruber/memsynth/internal/metrics"
	"github.com/raphaelgruber/memsynth/internal/models"
	"github.com/raphaelgruber/memsynth/internal/store"
)

// Store is the persistence a synthesis run needs.
type Store interface {
	AcquireLease() (*store.Lease, error)
	LoadPending(ctx context.Context, allow func(category string) bool) (*store.LoadResult, error)
	WriteDocument(content string) error
	SaveState(at time.Time) (models.SynthesisState, error)
	Sweep(ctx context.Context, retentionDays int, now time.Time) (int, error)
}

// Deps holds the collaborators of a Synthesizer. Only Store is required.
type Deps struct {
	Store      Store
	Settings   config.Settings
	Renderer   *Renderer
	Similarity Similarity
	Metrics    *metrics.Collector
	Logger     *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Synthesizer runs the load, dedupe, render, commit and sweep pipeline.
type Synthesizer struct {
	store      Store
	settings   config.Settings
	renderer   *Renderer
	similarity Similarity
	metrics    *metrics.Collector
	logger     *slog.Logger
	now        func() time.Time
}

// NewSynthesizer creates a Synthesizer, filling unset dependencies with
// defaults.
func NewSynthesizer(deps Deps) *Synthesizer {
	s := &Synthesizer{
		store:      deps.Store,
		settings:   deps.Settings,
		renderer:   deps.Renderer,
		similarity: deps.Similarity,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.renderer == nil {
		s.renderer = NewRenderer()
	}
	if s.similarity == nil {
		s.similarity = DefaultSimilarity
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Metrics returns the collector the synthesizer records stage timings into.
func (s *Synthesizer) Metrics() *metrics.Collector {
	return s.metrics
}

// RunOptions tunes a single run.
type RunOptions struct {
	// NoCleanup skips the retention sweep.
	NoCleanup bool
}

// CategoryCount is the number of memories rendered for a category.
type CategoryCount struct {
	Category    string
	DisplayName string
	Count       int
}

// Report summarizes a synthesis run.
type Report struct {
	// NoMemories is set when there was nothing to synthesize; nothing was
	// written in that case.
	NoMemories bool

	Files   int
	Skipped int
	Entries int
	Unique  int
	// Categories in document order.
	Categories []CategoryCount

	SynthesizedAt time.Time
	State         models.SynthesisState
	Removed       int
}

// Run performs one synthesis pass. It returns store.ErrLocked when another
// run holds the lease. Failing to write the document or the state is an
// error; a failed sweep is only logged, since the document is already
// committed by then.
func (s *Synthesizer) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	lease, err := s.store.AcquireLease()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(); err != nil {
			s.logger.Warn("failed to release synthesis lease", "error", err)
		}
	}()

	report := &Report{}

	var loaded *store.LoadResult
	s.metrics.Time(metrics.OpLoad, func() int {
		loaded, err = s.store.LoadPending(ctx, s.settings.AllowsCategory)
		if err != nil {
			return 0
		}
		return len(loaded.Entries)
	})
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	report.Files = loaded.Files
	report.Skipped = loaded.Skipped
	report.Entries = len(loaded.Entries)

	if len(loaded.Entries) == 0 {
		s.logger.Info("no memories to synthesize", "files", loaded.Files, "skipped", loaded.Skipped)
		report.NoMemories = true
		return report, nil
	}

	var buckets []Bucket
	var arranged []Bucket
	s.metrics.Time(metrics.OpDedupe, func() int {
		buckets = Dedupe(loaded.Entries, s.settings.MaxMemoriesPerCategory, s.similarity)
		arranged = s.renderer.Arrange(buckets)
		for _, b := range arranged {
			report.Unique += len(b.Entries)
			report.Categories = append(report.Categories, CategoryCount{
				Category:    b.Category,
				DisplayName: s.renderer.DisplayName(b.Category),
				Count:       len(b.Entries),
			})
		}
		return report.Unique
	})

	now := s.now()
	report.SynthesizedAt = now

	var doc string
	s.metrics.Time(metrics.OpRender, func() int {
		doc = s.renderer.Render(buckets, now)
		return len(arranged)
	})

	s.metrics.Time(metrics.OpCommit, func() int {
		if err = s.store.WriteDocument(doc); err != nil {
			return 0
		}
		report.State, err = s.store.SaveState(now)
		return 1
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("memory document written",
		"entries", report.Entries,
		"unique", report.Unique,
		"categories", len(report.Categories))

	if !opts.NoCleanup {
		s.metrics.Time(metrics.OpSweep, func() int {
			removed, err := s.store.Sweep(ctx, s.settings.CleanupAfterDays, now)
			if err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
			}
			report.Removed = removed
			return removed
		})
	}

	for _, op := range s.metrics.Snapshot().Operations {
		s.logger.Debug("synthesis stage", "stage", op.Name, "ms", op.TotalTimeMs, "items", op.Items)
	}

	return report, nil
}
