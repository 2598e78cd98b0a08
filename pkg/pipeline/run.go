package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/flowlayout/pkg/cache"
	"github.com/matzehuels/flowlayout/pkg/dag"
	"github.com/matzehuels/flowlayout/pkg/dag/transform"
	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/layout"
	"github.com/matzehuels/flowlayout/pkg/lock"
	"github.com/matzehuels/flowlayout/pkg/observability"
	"github.com/matzehuels/flowlayout/pkg/perf"
)

// cachedLayout is the cache entry of one computed layout.
type cachedLayout struct {
	Layout json.RawMessage `json:"layout"`
	Stats  layout.Stats    `json:"stats"`
}

// run is the state of one ExecuteLayout call. It is owned by a single
// goroutine.
type run struct {
	e       *Engine
	ctx     context.Context
	graph   graph.Graph
	preview PreviewManager
	opts    ExecuteOptions
	hooks   observability.PipelineHooks
	measure *perf.Measure
	res     *Result

	dag      *dag.DAG
	hier     *transform.Hierarchy
	recs     *layout.Records
	cacheKey string
	lock     *lock.Handle
}

func newRun(e *Engine, ctx context.Context, g graph.Graph, preview PreviewManager, opts ExecuteOptions) *run {
	if opts.Reason == "" {
		opts.Reason = defaultLockReason
	}
	id := uuid.NewString()
	return &run{
		e:       e,
		ctx:     ctx,
		graph:   g,
		preview: preview,
		opts:    opts,
		hooks:   observability.Pipeline(),
		measure: e.perf.Begin(id),
		res:     &Result{ExecutionID: id, DryRun: opts.DryRun},
	}
}

func (r *run) execute() *Result {
	nodes := len(r.graph.Nodes())
	r.ctx = r.hooks.OnLayoutStart(r.ctx, r.res.ExecutionID, nodes)
	r.e.logger.Debug("layout started", "id", r.res.ExecutionID, "reason", r.opts.Reason, "nodes", nodes,
		"force", r.opts.Force, "skip_cache", r.opts.SkipCache, "dry_run", r.opts.DryRun)

	err := r.pipeline()
	r.releaseLock(err)
	return r.finish(err)
}

func (r *run) pipeline() error {
	if err := r.stage(StagePreprocessing, r.preprocess); err != nil {
		return err
	}
	if err := r.acquireLock(); err != nil {
		return err
	}

	if !r.lookup() {
		steps := []struct {
			name    string
			fn      func() error
			enabled bool
		}{
			{StageLayerAssignment, r.assignLayers, true},
			{StageHierarchicalBuild, r.buildHierarchy, true},
			{StagePositioning, r.position, true},
			{StageLayerOptimization, r.optimizeLayers, r.e.cfg.Optimize.Layer},
			{StageGlobalOptimization, r.optimizeGlobal, r.e.cfg.Optimize.Global},
		}
		for _, s := range steps {
			if !s.enabled {
				r.e.logger.Debug("stage disabled", "stage", s.name)
				continue
			}
			if err := r.stage(s.name, s.fn); err != nil {
				return err
			}
		}
		r.collect()
		r.store()
	}

	if r.opts.DryRun {
		return r.checkCancelled(StageApplication)
	}
	return r.stage(StageApplication, r.apply)
}

// stage runs fn as the named stage. The context is checked first, so a
// cancelled run stops between stages. Errors and panics become stage
// errors; validation errors keep their code.
func (r *run) stage(name string, fn func() error) error {
	if err := r.checkCancelled(name); err != nil {
		return err
	}
	sctx := r.hooks.OnStageStart(r.ctx, name)
	err := safely(fn)
	d := r.measure.Mark(name)
	if err != nil && !flerrors.Is(err, flerrors.ErrCodeValidation) {
		err = flerrors.Stage(name, err)
	}
	r.hooks.OnStageComplete(sctx, name, d, err)
	if err != nil {
		r.res.Stage = name
		return err
	}
	r.e.logger.Debug("stage completed", "id", r.res.ExecutionID, "stage", name, "duration", d)
	return nil
}

func (r *run) checkCancelled(next string) error {
	if err := r.ctx.Err(); err != nil {
		r.res.Stage = next
		return flerrors.Wrap(flerrors.ErrCodeCancelled, err, "layout cancelled before %s", next)
	}
	return nil
}

func safely(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func (r *run) warn(msg string) {
	r.res.Warnings = append(r.res.Warnings, msg)
	r.e.logger.Warn("layout warning", "id", r.res.ExecutionID, "warning", msg)
}

// =============================================================================
// Stages
// =============================================================================

func (r *run) preprocess() error {
	out, err := r.e.pre.Run(r.graph)
	if err != nil {
		return err
	}
	r.dag = out.DAG
	r.res.Integrity = &out.Report
	for _, w := range out.Report.Warnings {
		r.warn(w)
	}
	return nil
}

func (r *run) assignLayers() error {
	a := transform.AssignLayers(r.dag)
	for _, w := range a.Warnings {
		r.warn(w)
	}
	if len(a.Fallback) > 0 {
		r.e.logger.Debug("layering fell back", "nodes", len(a.Fallback), "cycles", len(a.Cycles))
	}
	return nil
}

func (r *run) buildHierarchy() error {
	r.hier = transform.BuildHierarchy(r.dag, r.e.params.MaxLayers)
	for _, w := range r.hier.Warnings {
		r.warn(w)
	}
	return nil
}

func (r *run) position() error {
	r.recs = layout.Position(r.dag, r.hier, r.e.params)
	return nil
}

func (r *run) optimizeLayers() error {
	var sync layout.SyncFunc
	if r.e.cfg.Optimize.LiveSync && !r.opts.DryRun {
		sync = layout.LiveSync(r.graph)
	}
	rep := layout.OptimizeLayers(r.dag, r.hier, r.recs, r.e.params, sync)
	for _, w := range rep.Warnings {
		r.warn(w)
	}
	r.res.LayerReport = &rep
	return nil
}

func (r *run) optimizeGlobal() error {
	rep := layout.OptimizeGlobal(r.hier, r.recs, r.e.params)
	r.res.GlobalReport = &rep
	return nil
}

func (r *run) apply() error {
	applied := layout.Apply(r.graph, r.recs)
	r.res.Applied = applied
	if len(applied.Errors) > 0 {
		return fmt.Errorf("%d position write(s) failed: %s", len(applied.Errors), strings.Join(applied.Errors, "; "))
	}
	return nil
}

// collect fills the result from a freshly computed layout.
func (r *run) collect() {
	l := layout.BuildLayout(r.dag, r.hier, r.recs)
	stats := layout.ComputeStats(r.dag, r.hier, r.recs, r.e.params)
	r.res.Layout = &l
	r.res.Layers = l.Layers
	r.res.Positions = r.recs.Points()
	r.res.Stats = &stats
	if stats.SpacingViolations > 0 {
		r.warn(fmt.Sprintf("%d spacing violation(s) in the final layout", stats.SpacingViolations))
	}
}

// =============================================================================
// Cache
// =============================================================================

func (r *run) keyOpts() cache.LayoutKeyOpts {
	p := r.e.params
	return cache.LayoutKeyOpts{
		BaseY:            p.BaseY,
		BaseHeight:       p.BaseHeight,
		MaxLayers:        p.MaxLayers,
		MinSpacing:       p.MinSpacing,
		PreferredSpacing: p.PreferredSpacing,
		CenterX:          p.CenterX,
		Exclude:          r.e.cfg.Filter.Exclude,
		LayerOptimize:    r.e.cfg.Optimize.Layer,
		GlobalOptimize:   r.e.cfg.Optimize.Global,
	}
}

// lookup loads the layout from the cache. It reports whether the run can
// skip to application. Cache failures are warnings and count as misses.
func (r *run) lookup() bool {
	if r.opts.SkipCache {
		return false
	}
	r.cacheKey = r.e.keyer.LayoutKey(cache.HashString(r.dag.Canonical()), r.keyOpts())
	if r.opts.Force {
		return false
	}

	chooks := observability.Cache()
	data, hit, err := r.e.cache.Get(r.ctx, r.cacheKey)
	if err != nil {
		chooks.OnCacheError(r.ctx, "get", err)
		r.warn(flerrors.CacheFailure("get", err).Error())
	}
	if hit {
		if err = r.restore(data); err == nil {
			chooks.OnCacheHit(r.ctx)
			r.e.perf.RecordCacheHit()
			r.e.logger.Debug("layout cache hit", "id", r.res.ExecutionID, "key", r.cacheKey)
			return true
		}
		chooks.OnCacheError(r.ctx, "decode", err)
		r.warn(flerrors.CacheFailure("decode", err).Error())
	}
	chooks.OnCacheMiss(r.ctx)
	r.e.perf.RecordCacheMiss()
	return false
}

func (r *run) restore(data []byte) error {
	var entry cachedLayout
	if err := json.Unmarshal(data, &entry); err != nil {
		return err
	}
	l, err := graph.UnmarshalLayout(entry.Layout)
	if err != nil {
		return err
	}
	points := make(map[string]graph.Point, len(l.Nodes))
	for _, n := range l.Nodes {
		points[n.ID] = graph.Point{X: n.X, Y: n.Y}
	}
	stats := entry.Stats
	// The key ignores edge ids, so edges come from the current graph.
	l.Edges = layout.LayoutEdges(r.dag)

	r.recs = layout.RecordsFromPoints(points, l.Layers)
	r.res.Layout = &l
	r.res.Layers = l.Layers
	r.res.Positions = points
	r.res.Stats = &stats
	r.res.FromCache = true
	return nil
}

func (r *run) store() {
	if r.opts.SkipCache || r.cacheKey == "" {
		return
	}
	raw, err := graph.MarshalLayout(*r.res.Layout)
	if err == nil {
		var data []byte
		data, err = json.Marshal(cachedLayout{Layout: raw, Stats: *r.res.Stats})
		if err == nil {
			err = r.e.cache.Set(r.ctx, r.cacheKey, data, r.e.cfg.Cache.TTL.Std())
			if err == nil {
				observability.Cache().OnCacheSet(r.ctx, len(data))
				return
			}
		}
	}
	observability.Cache().OnCacheError(r.ctx, "set", err)
	r.warn(flerrors.CacheFailure("set", err).Error())
}

// =============================================================================
// Lock
// =============================================================================

// acquireLock takes the layout lock and locks the preview collaborator.
// Failing to get the lock in time is a warning; only cancellation aborts.
func (r *run) acquireLock() error {
	if r.opts.DryRun {
		return nil
	}
	cfg := r.e.cfg.Lock
	start := r.e.clock.Now()
	h, err := r.e.locks.Acquire(r.ctx, cfg.ID, lock.Options{
		Timeout:     cfg.Timeout.Std(),
		WaitTimeout: r.e.cfg.LockWaitTimeout(),
		Reason:      r.opts.Reason,
	})
	if err != nil {
		if cerr := r.checkCancelled(StageLayerAssignment); cerr != nil {
			return cerr
		}
		observability.Lock().OnLockTimeout(r.ctx, cfg.ID)
		r.warn(flerrors.LockTimeout(cfg.ID, err).Error())
		return nil
	}
	r.lock = h
	observability.Lock().OnLockAcquired(r.ctx, cfg.ID, r.e.clock.Since(start))

	if err := r.preview.Lock(cfg.ID, LockOptions{Timeout: cfg.Timeout.Std(), Reason: r.opts.Reason}); err != nil {
		r.warn(fmt.Sprintf("preview lock: %v", err))
	}
	return nil
}

// releaseLock releases the layout lock if the run still holds it. An
// expired lock was already unlocked by the expiry handler.
func (r *run) releaseLock(err error) {
	if r.lock == nil {
		return
	}
	info := r.lock.Info()
	if !r.lock.Release() {
		return
	}
	reason := UnlockCompleted
	switch {
	case flerrors.Is(err, flerrors.ErrCodeCancelled):
		reason = UnlockCancelled
	case err != nil:
		reason = UnlockFailed
	}
	observability.Lock().OnLockReleased(r.ctx, info.ID, r.e.clock.Since(info.Acquired), reason)
	if uerr := r.preview.Unlock(info.ID, UnlockOptions{Reason: reason}); uerr != nil {
		r.warn(fmt.Sprintf("preview unlock: %v", uerr))
	}
}

// =============================================================================
// Completion
// =============================================================================

func (r *run) finish(err error) *Result {
	res := r.res
	if err == nil {
		res.Success = true
	} else {
		res.Err = err
		res.Error = flerrors.UserMessage(err)
		res.Code = flerrors.GetCode(err)
		if flerrors.Is(err, flerrors.ErrCodeCancelled) {
			res.Reason = ReasonCancelled
			r.e.logger.Info("layout cancelled", "id", res.ExecutionID, "stage", res.Stage)
		} else {
			r.e.logger.Error("layout failed", "id", res.ExecutionID, "stage", res.Stage, "code", res.Code, "err", err)
		}
	}

	layers := len(res.Layers)
	exec := r.measure.End(perf.Outcome{
		Success:   res.Success,
		FromCache: res.FromCache,
		Nodes:     r.nodeCount(),
		Layers:    layers,
		Warnings:  len(res.Warnings),
		Err:       err,
	})
	r.e.perf.RecordWarnings(len(res.Warnings))
	res.Duration = exec.Duration
	res.StageTimings = exec.Stages

	r.hooks.OnLayoutComplete(r.ctx, res.ExecutionID, observability.LayoutSummary{
		Nodes:     r.nodeCount(),
		Layers:    layers,
		Applied:   res.Applied.AppliedNodes,
		Warnings:  len(res.Warnings),
		FromCache: res.FromCache,
	}, res.Duration, err)

	if res.Success {
		r.e.logger.Info("layout completed",
			"id", res.ExecutionID,
			"nodes", r.nodeCount(),
			"layers", layers,
			"applied", res.Applied.AppliedNodes,
			"cached", res.FromCache,
			"duration", res.Duration)
	}
	return res
}

func (r *run) nodeCount() int {
	if r.dag == nil {
		return 0
	}
	return r.dag.NodeCount()
}
