package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/memsynth/internal/synth"
)

// ErrJobRunning is returned when a synthesis job is already in progress.
var ErrJobRunning = errors.New("synthesis job already running")

// JobStatus represents the state of a background job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job represents one background synthesis pass.
type Job struct {
	ID          string
	Status      JobStatus
	Options     synth.RunOptions
	Report      *synth.Report
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// Snapshot returns a thread-safe copy of job state.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Job{
		ID:          j.ID,
		Status:      j.Status,
		Options:     j.Options,
		Report:      j.Report,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

// Runner runs one synthesis pass.
type Runner interface {
	Run(ctx context.Context, opts synth.RunOptions) (*synth.Report, error)
}

// DefaultJobHistory is how many jobs a JobManager remembers.
const DefaultJobHistory = 20

// JobManager runs synthesis passes in background goroutines and tracks them.
// At most one job runs at a time; only the most recent jobs are kept.
type JobManager struct {
	runner  Runner
	logger  *slog.Logger
	maxJobs int

	jobs map[string]*Job
	mu   sync.RWMutex
	wg   sync.WaitGroup
}

// NewJobManager creates a new job manager.
func NewJobManager(runner Runner, logger *slog.Logger) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{
		runner:  runner,
		logger:  logger,
		maxJobs: DefaultJobHistory,
		jobs:    make(map[string]*Job),
	}
}

// Start launches a synthesis job and returns immediately. The job does not
// inherit ctx's cancellation.
func (m *JobManager) Start(ctx context.Context, opts synth.RunOptions) (*Job, error) {
	m.mu.Lock()
	for _, job := range m.jobs {
		if job.Snapshot().Status == JobStatusRunning {
			m.mu.Unlock()
			return nil, ErrJobRunning
		}
	}
	job := &Job{
		ID:        uuid.New().String()[:8], // Short ID for convenience
		Status:    JobStatusRunning,
		Options:   opts,
		StartedAt: time.Now(),
	}
	m.pruneLocked()
	m.jobs[job.ID] = job
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("job started", "job_id", job.ID)

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("job goroutine panicked", "job_id", job.ID, "panic", r)
				m.Fail(job, fmt.Errorf("internal panic: %v", r))
			}
		}()

		report, err := m.runner.Run(bgCtx, opts)
		if err != nil {
			m.Fail(job, err)
			return
		}
		m.Complete(job, report)
	}()

	return job, nil
}

// pruneLocked drops the oldest jobs so that one more fits in the history.
// No job is running when it is called. Caller must hold write lock.
func (m *JobManager) pruneLocked() {
	excess := len(m.jobs) - m.maxJobs + 1
	if excess <= 0 {
		return
	}
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b *Job) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	for _, job := range jobs[:excess] {
		delete(m.jobs, job.ID)
	}
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all jobs, most recent first.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}

	slices.SortFunc(jobs, func(a, b *Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return jobs
}

// Wait blocks until every started job has finished.
func (m *JobManager) Wait() {
	m.wg.Wait()
}

// Complete marks job as completed with its report.
func (m *JobManager) Complete(job *Job, report *synth.Report) {
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Report = report
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	if report != nil {
		m.logger.Info("job completed", "job_id", job.ID, "unique", report.Unique, "removed", report.Removed)
		return
	}
	m.logger.Info("job completed", "job_id", job.ID)
}

// Fail marks job as failed with error.
func (m *JobManager) Fail(job *Job, err error) {
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = err.Error()
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	m.logger.Error("job failed", "job_id", job.ID, "error", err)
}

// JobLauncher launches synthesis as an in-process job. It suits long-lived
// processes; a short-lived caller should use ProcessLauncher.
type JobLauncher struct {
	Manager *JobManager
	Options synth.RunOptions
}

// Launch starts a job.
func (l *JobLauncher) Launch(ctx context.Context) error {
	_, err := l.Manager.Start(ctx, l.Options)
	return err
}
