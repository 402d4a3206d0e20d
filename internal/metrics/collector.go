// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"slices"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Items processed across all calls (entries, files, ...).
	Items int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Name        string
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
	Items       int64
}

// Snapshot represents collected statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	// Operations in pipeline order.
	Operations []OperationSnapshot
}

// Synthesis stage names, in pipeline order.
const (
	OpLoad   = "load"
	OpDedupe = "dedupe"
	OpRender = "render"
	OpCommit = "commit"
	OpSweep  = "sweep"
)

var stageOrder = []string{OpLoad, OpDedupe, OpRender, OpCommit, OpSweep}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordItems records timing plus the number of items an operation handled.
func (c *Collector) RecordItems(op string, duration time.Duration, items int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	m.Items += int64(items)

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Time runs fn and records its duration under op.
func (c *Collector) Time(op string, fn func() int) {
	start := time.Now()
	items := fn()
	c.RecordItems(op, time.Since(start), items)
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(name string, m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Name:        name,
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
		Items:       m.Items,
	}
}

// Snapshot returns a point-in-time snapshot of all metrics. Known stages come
// first in pipeline order, then any other operations by name.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		if !slices.Contains(stageOrder, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = append(slices.Clone(stageOrder), names...)

	snap := Snapshot{UptimeSeconds: time.Since(c.startTime).Seconds()}
	for _, name := range names {
		if op := snapshotOp(name, c.ops[name]); op != nil {
			snap.Operations = append(snap.Operations, *op)
		}
	}
	return snap
}
