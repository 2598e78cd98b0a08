package pipeline

import (
	"github.com/matzehuels/flowlayout/pkg/cache"
	"github.com/matzehuels/flowlayout/pkg/debounce"
	"github.com/matzehuels/flowlayout/pkg/lock"
	"github.com/matzehuels/flowlayout/pkg/perf"
)

// Report is a snapshot of the engine's counters.
type Report struct {
	State       State            `json:"state"`
	Performance perf.Report      `json:"performance"`
	Cache       *cache.Stats     `json:"cache,omitempty"`
	Lock        lock.Metrics     `json:"lock"`
	Locks       []lock.Info      `json:"locks,omitempty"`
	Debounce    debounce.Metrics `json:"debounce"`
}

// GetPerformanceReport returns run timings, cache statistics, lock and
// debounce metrics.
func (e *Engine) GetPerformanceReport() Report {
	rep := Report{
		State:       e.State(),
		Performance: e.perf.Report(),
		Lock:        e.locks.Metrics(),
		Locks:       e.locks.Snapshot(),
		Debounce:    e.debs.Metrics(),
	}
	if sr, ok := e.cache.(cache.StatsReporter); ok {
		s := sr.Stats()
		rep.Cache = &s
	}
	return rep
}
