// Package perf records layout execution timings and derives the engine's
// performance report.
package perf

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowlayout/pkg/clock"
)

// Defaults for [New].
const (
	DefaultHistorySize   = 100
	DefaultSlowThreshold = time.Second
	// DefaultMinHitRate is the cache hit rate under which the report raises
	// an alert, once at least minLookupsForAlert lookups were made.
	DefaultMinHitRate  = 0.8
	minLookupsForAlert = 10
)

// StageTiming is the duration of one pipeline stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Outcome summarizes a finished run for [Measure.End].
type Outcome struct {
	Success   bool
	FromCache bool
	Nodes     int
	Layers    int
	Warnings  int
	Err       error
}

// Execution is one recorded run.
type Execution struct {
	ID        string        `json:"id"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Stages    []StageTiming `json:"stages,omitempty"`
	Success   bool          `json:"success"`
	FromCache bool          `json:"from_cache"`
	Nodes     int           `json:"nodes"`
	Layers    int           `json:"layers"`
	Warnings  int           `json:"warnings"`
	Error     string        `json:"error,omitempty"`
	Slow      bool          `json:"slow,omitempty"`
}

// StageStats aggregates the timings of one stage across runs.
type StageStats struct {
	Count   int           `json:"count"`
	Total   time.Duration `json:"total"`
	Average time.Duration `json:"average"`
	Max     time.Duration `json:"max"`
}

// Report is a snapshot of the monitor.
type Report struct {
	Executions   int                   `json:"executions"`
	Total        time.Duration         `json:"total"`
	Average      time.Duration         `json:"average"`
	Min          time.Duration         `json:"min"`
	Max          time.Duration         `json:"max"`
	Last         time.Duration         `json:"last"`
	CacheHits    int64                 `json:"cache_hits"`
	CacheMisses  int64                 `json:"cache_misses"`
	CacheHitRate float64               `json:"cache_hit_rate"`
	Errors       int64                 `json:"errors"`
	Warnings     int64                 `json:"warnings"`
	SlowRuns     int64                 `json:"slow_runs"`
	Stages       map[string]StageStats `json:"stages,omitempty"`
	Recent       []Execution           `json:"recent,omitempty"`
	Alerts       []string              `json:"alerts,omitempty"`
}

// Monitor accumulates execution records. It is safe for concurrent use.
type Monitor struct {
	mu       sync.Mutex
	clock    clock.Clock
	logger   *log.Logger
	slow     time.Duration
	minHit   float64
	capacity int

	history []Execution
	next    int
	rep     Report
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option { return func(m *Monitor) { m.clock = c } }

// WithLogger sets the logger used for slow-run warnings.
func WithLogger(l *log.Logger) Option { return func(m *Monitor) { m.logger = l } }

// WithSlowThreshold sets the duration above which a run is logged as slow.
func WithSlowThreshold(d time.Duration) Option { return func(m *Monitor) { m.slow = d } }

// WithHistorySize bounds the number of recent executions kept.
func WithHistorySize(n int) Option { return func(m *Monitor) { m.capacity = max(n, 1) } }

// New returns an empty monitor.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		clock:    clock.Real(),
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		slow:     DefaultSlowThreshold,
		minHit:   DefaultMinHitRate,
		capacity: DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reset()
	return m
}

func (m *Monitor) reset() {
	m.history = make([]Execution, 0, m.capacity)
	m.next = 0
	m.rep = Report{Stages: make(map[string]StageStats)}
}

// Measure times one run. It is owned by a single goroutine.
type Measure struct {
	m      *Monitor
	id     string
	start  time.Time
	last   time.Time
	stages []StageTiming
}

// Begin starts timing the run id.
func (m *Monitor) Begin(id string) *Measure {
	now := m.clock.Now()
	return &Measure{m: m, id: id, start: now, last: now}
}

// Mark records that stage finished now; its duration runs from the
// previous mark, or from Begin.
func (ms *Measure) Mark(stage string) time.Duration {
	now := ms.m.clock.Now()
	d := now.Sub(ms.last)
	ms.last = now
	ms.stages = append(ms.stages, StageTiming{Stage: stage, Duration: d})
	return d
}

// Stages returns the marks recorded so far.
func (ms *Measure) Stages() []StageTiming {
	return slices.Clone(ms.stages)
}

// Elapsed returns the time since Begin.
func (ms *Measure) Elapsed() time.Duration {
	return ms.m.clock.Since(ms.start)
}

// End records the run and returns its execution record.
func (ms *Measure) End(o Outcome) Execution {
	e := Execution{
		ID:        ms.id,
		Started:   ms.start,
		Duration:  ms.Elapsed(),
		Stages:    ms.Stages(),
		Success:   o.Success,
		FromCache: o.FromCache,
		Nodes:     o.Nodes,
		Layers:    o.Layers,
		Warnings:  o.Warnings,
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	e.Slow = ms.m.slow > 0 && e.Duration > ms.m.slow
	ms.m.record(e)
	return e
}

func (m *Monitor) record(e Execution) {
	m.mu.Lock()
	r := &m.rep
	r.Executions++
	r.Total += e.Duration
	r.Average = r.Total / time.Duration(r.Executions)
	if r.Executions == 1 || e.Duration < r.Min {
		r.Min = e.Duration
	}
	r.Max = max(r.Max, e.Duration)
	r.Last = e.Duration
	if e.Error != "" {
		r.Errors++
	}
	if e.Slow {
		r.SlowRuns++
	}
	for _, st := range e.Stages {
		s := r.Stages[st.Stage]
		s.Count++
		s.Total += st.Duration
		s.Average = s.Total / time.Duration(s.Count)
		s.Max = max(s.Max, st.Duration)
		r.Stages[st.Stage] = s
	}

	if len(m.history) < m.capacity {
		m.history = append(m.history, e)
	} else {
		m.history[m.next] = e
	}
	m.next = (m.next + 1) % m.capacity
	m.mu.Unlock()

	if e.Slow {
		m.logger.Warn("slow layout", "id", e.ID, "duration", e.Duration, "threshold", m.slow, "nodes", e.Nodes)
	}
}

// RecordCacheHit counts a cache hit.
func (m *Monitor) RecordCacheHit() {
	m.mu.Lock()
	m.rep.CacheHits++
	m.mu.Unlock()
}

// RecordCacheMiss counts a cache miss.
func (m *Monitor) RecordCacheMiss() {
	m.mu.Lock()
	m.rep.CacheMisses++
	m.mu.Unlock()
}

// RecordError counts an error that did not end a run, such as a cache
// failure.
func (m *Monitor) RecordError() {
	m.mu.Lock()
	m.rep.Errors++
	m.mu.Unlock()
}

// RecordWarnings counts n warnings.
func (m *Monitor) RecordWarnings(n int) {
	m.mu.Lock()
	m.rep.Warnings += int64(n)
	m.mu.Unlock()
}

// Report returns a snapshot. Recent lists executions from oldest to newest.
func (m *Monitor) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rep
	r.Stages = maps.Clone(m.rep.Stages)
	if total := r.CacheHits + r.CacheMisses; total > 0 {
		r.CacheHitRate = float64(r.CacheHits) / float64(total)
	}

	r.Recent = make([]Execution, 0, len(m.history))
	if len(m.history) == m.capacity {
		r.Recent = append(r.Recent, m.history[m.next:]...)
		r.Recent = append(r.Recent, m.history[:m.next]...)
	} else {
		r.Recent = append(r.Recent, m.history...)
	}

	if m.slow > 0 && r.Executions > 0 && r.Average > m.slow {
		r.Alerts = append(r.Alerts, fmt.Sprintf("average layout time %s exceeds %s", r.Average, m.slow))
	}
	if r.CacheHits+r.CacheMisses >= minLookupsForAlert && r.CacheHitRate < m.minHit {
		r.Alerts = append(r.Alerts, fmt.Sprintf("cache hit rate %.0f%% is below %.0f%%", r.CacheHitRate*100, m.minHit*100))
	}
	return r
}

// Reset clears all counters and history.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}
