package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowlayout/pkg/clock"
	"github.com/matzehuels/flowlayout/pkg/config"
	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/layout"
	"github.com/matzehuels/flowlayout/pkg/lock"
)

func diamond(t *testing.T) *graph.Memory {
	t.Helper()
	g := graph.NewMemory()
	for _, id := range []string{"start", "A", "B", "end"} {
		_, err := g.AddNode(id, nil, graph.Point{}, graph.Size{Width: 100, Height: 40})
		require.NoError(t, err)
	}
	for _, e := range [][2]string{{"start", "A"}, {"start", "B"}, {"A", "end"}, {"B", "end"}} {
		_, err := g.AddEdge(e[0]+"->"+e[1], e[0], e[1], nil)
		require.NoError(t, err)
	}
	return g
}

func newEngine(t *testing.T, g graph.Graph, p PreviewManager, mutate func(*config.Config), opts ...Option) *Engine {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(g, p, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Dispose)
	return e
}

// recordingPreview records lock calls and optionally runs a callback while
// the layout lock is held.
type recordingPreview struct {
	mu      sync.Mutex
	locks   []LockOptions
	unlocks []string
	onLock  func()
	lockErr error
}

func (p *recordingPreview) Lock(_ string, opts LockOptions) error {
	p.mu.Lock()
	p.locks = append(p.locks, opts)
	cb := p.onLock
	p.mu.Unlock()
	if cb != nil {
		cb()
	}
	return p.lockErr
}

func (p *recordingPreview) Unlock(_ string, opts UnlockOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlocks = append(p.unlocks, opts.Reason)
	return nil
}

func (p *recordingPreview) unlockReasons() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.unlocks...)
}

// faultyGraph wraps a graph so that position writes fail or panic.
type faultyGraph struct {
	*graph.Memory
	failID string
	panics bool
}

func (g *faultyGraph) CellByID(id string) (graph.Node, bool) {
	n, ok := g.Memory.CellByID(id)
	if !ok {
		return nil, false
	}
	return &faultyNode{Node: n, fail: id == g.failID, panics: g.panics}, true
}

type faultyNode struct {
	graph.Node
	fail   bool
	panics bool
}

func (n *faultyNode) SetPosition(x, y float64) error {
	if n.panics {
		panic("host graph exploded")
	}
	if n.fail {
		return errors.New("node is read-only")
	}
	return n.Node.SetPosition(x, y)
}

func TestScenarioDiamond(t *testing.T) {
	g := diamond(t)
	e := newEngine(t, g, nil, nil)

	res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, [][]string{{"start"}, {"A", "B"}, {"end"}}, res.Layers)
	assert.NotEmpty(t, res.ExecutionID)
	assert.False(t, res.FromCache)

	d := layout.LayerSpacing(3, config.DefaultBaseHeight)
	pos := res.Positions
	assert.InDelta(t, 0, pos["start"].X, 0.01)
	assert.InDelta(t, 0, pos["end"].X, 0.01)
	assert.InDelta(t, -pos["A"].X, pos["B"].X, 0.01, "A and B are symmetric about the center")
	assert.GreaterOrEqual(t, pos["B"].X-pos["A"].X, config.EnforcedMinSpacing)
	assert.Equal(t, pos["A"].Y, pos["B"].Y)
	assert.InDelta(t, 0, pos["start"].Y, 0.01)
	assert.InDelta(t, d, pos["A"].Y, 0.01)
	assert.InDelta(t, 2*d, pos["end"].Y, 0.01)

	// start stays at the origin, the other three move.
	assert.Equal(t, 3, res.Applied.AppliedNodes)
	assert.Equal(t, 1, res.Applied.Unchanged)
	written := g.Positions()
	assert.Equal(t, graph.Point{X: -80, Y: 133}, written["A"])
	assert.Equal(t, graph.Point{X: 80, Y: 133}, written["B"])

	require.NotNil(t, res.Stats)
	assert.Equal(t, 3, res.Stats.Layers)
	assert.Zero(t, res.Stats.Crossings)
	require.NotNil(t, res.Integrity)
	assert.Equal(t, 4, res.Integrity.Nodes)

	var stages []string
	for _, st := range res.StageTimings {
		stages = append(stages, st.Stage)
	}
	assert.Equal(t, Stages, stages)
	assert.Equal(t, StateCompleted, e.State())
}

func TestIdempotentWithoutCache(t *testing.T) {
	g := diamond(t)
	e := newEngine(t, g, nil, func(c *config.Config) { c.Cache.Enabled = false })

	first := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	second := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.False(t, second.FromCache)
	assert.Equal(t, first.Positions, second.Positions)
	assert.Equal(t, first.Layers, second.Layers)
	assert.Zero(t, second.Applied.AppliedNodes, "positions already match")
}

func TestCacheHit(t *testing.T) {
	e := newEngine(t, diamond(t), nil, nil)
	ctx := context.Background()

	first := e.ExecuteLayout(ctx, ExecuteOptions{})
	require.True(t, first.Success)
	assert.False(t, first.FromCache)

	// A structurally identical graph hits the same entry.
	e.UpdateGraph(diamond(t))
	second := e.ExecuteLayout(ctx, ExecuteOptions{})
	require.True(t, second.Success, second.Error)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Positions, second.Positions)
	assert.Equal(t, first.Layers, second.Layers)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, 3, second.Applied.AppliedNodes)

	var stages []string
	for _, st := range second.StageTimings {
		stages = append(stages, st.Stage)
	}
	assert.Equal(t, []string{StagePreprocessing, StageApplication}, stages)

	rep := e.GetPerformanceReport()
	assert.Equal(t, int64(1), rep.Performance.CacheHits)
	assert.Equal(t, int64(1), rep.Performance.CacheMisses)
	require.NotNil(t, rep.Cache)
	assert.Equal(t, 1, rep.Cache.Size)
}

func TestCacheHitUsesCurrentEdgeIDs(t *testing.T) {
	e := newEngine(t, diamond(t), nil, nil)
	ctx := context.Background()
	require.True(t, e.ExecuteLayout(ctx, ExecuteOptions{}).Success)

	renamed := edgeGraph(t, []string{"start", "A", "B", "end"},
		[][2]string{{"start", "A"}, {"start", "B"}, {"A", "end"}, {"B", "end"}})
	e.UpdateGraph(renamed)
	res := e.ExecuteLayout(ctx, ExecuteOptions{})
	require.True(t, res.Success, res.Error)
	require.True(t, res.FromCache)

	require.NotNil(t, res.Layout)
	var ids []string
	for _, edge := range res.Layout.Edges {
		ids = append(ids, edge.ID)
	}
	assert.ElementsMatch(t, []string{"e0", "e1", "e2", "e3"}, ids)
}

// edgeGraph builds a graph whose edges are named e0, e1, ... in order.
func edgeGraph(t *testing.T, nodes []string, edges [][2]string) *graph.Memory {
	t.Helper()
	g := graph.NewMemory()
	for _, id := range nodes {
		_, err := g.AddNode(id, nil, graph.Point{}, graph.Size{Width: 100, Height: 40})
		require.NoError(t, err)
	}
	for i, e := range edges {
		_, err := g.AddEdge(fmt.Sprintf("e%d", i), e[0], e[1], nil)
		require.NoError(t, err)
	}
	return g
}

func TestCyclicGraphs(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
	}{
		{
			name:  "two node cycle",
			nodes: []string{"a", "b"},
			edges: [][2]string{{"a", "b"}, {"b", "a"}},
		},
		{
			name:  "cycle below a source",
			nodes: []string{"r", "x", "y", "z"},
			edges: [][2]string{{"r", "x"}, {"x", "y"}, {"y", "z"}, {"z", "x"}},
		},
		{
			name:  "cycle beside a chain",
			nodes: []string{"start", "p", "end", "u", "v", "w"},
			edges: [][2]string{{"start", "p"}, {"p", "end"}, {"u", "v"}, {"v", "w"}, {"w", "u"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, edgeGraph(t, tt.nodes, tt.edges), nil, nil)

			res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
			require.True(t, res.Success, res.Error)
			assert.NotEmpty(t, res.Warnings)
			require.NotNil(t, res.Stats)
			assert.Zero(t, res.Stats.SpacingViolations)
			assert.Len(t, res.Positions, len(tt.nodes))

			for _, layer := range res.Layers {
				require.NotEmpty(t, layer)
				for _, id := range layer[1:] {
					assert.Equal(t, res.Positions[layer[0]].Y, res.Positions[id].Y, "layer of %s", id)
				}
				for i := 1; i < len(layer); i++ {
					gap := res.Positions[layer[i]].X - res.Positions[layer[i-1]].X
					assert.GreaterOrEqual(t, gap, config.EnforcedMinSpacing)
				}
			}
		})
	}
}

func TestBrokenEdgeWarnedOnce(t *testing.T) {
	g := edgeGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
	_, err := g.AddEdge("dangling", "b", "gone", nil)
	require.NoError(t, err)

	res := newEngine(t, g, nil, nil).ExecuteLayout(context.Background(), ExecuteOptions{})
	require.True(t, res.Success, res.Error)

	var broken []string
	for _, w := range res.Warnings {
		if strings.Contains(w, "dangling") {
			broken = append(broken, w)
		}
	}
	assert.Len(t, broken, 1)
	require.NotNil(t, res.Integrity)
	assert.Equal(t, []string{"dangling"}, res.Integrity.BrokenEdges)
}

func TestCacheOptions(t *testing.T) {
	tests := []struct {
		name      string
		opts      ExecuteOptions
		wantCache bool
	}{
		{"default", ExecuteOptions{}, true},
		{"force", ExecuteOptions{Force: true}, false},
		{"skip cache", ExecuteOptions{SkipCache: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, diamond(t), nil, nil)
			require.True(t, e.ExecuteLayout(context.Background(), ExecuteOptions{}).Success)
			res := e.ExecuteLayout(context.Background(), tt.opts)
			require.True(t, res.Success)
			assert.Equal(t, tt.wantCache, res.FromCache)
		})
	}
}

func TestClearCache(t *testing.T) {
	e := newEngine(t, diamond(t), nil, nil)
	require.True(t, e.ExecuteLayout(context.Background(), ExecuteOptions{}).Success)
	require.NoError(t, e.ClearCache())
	res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	assert.False(t, res.FromCache)
}

func TestDryRun(t *testing.T) {
	g := diamond(t)
	p := &recordingPreview{}
	e := newEngine(t, g, p, nil)

	res := e.ExecuteLayout(context.Background(), ExecuteOptions{DryRun: true})
	require.True(t, res.Success)
	assert.True(t, res.DryRun)
	assert.NotEmpty(t, res.Positions)
	assert.Zero(t, res.Applied.AppliedNodes)
	for _, pt := range g.Positions() {
		assert.Equal(t, graph.Point{}, pt, "dry run must not write")
	}
	assert.Empty(t, p.locks, "dry run does not lock the preview")
}

func TestEmptyGraph(t *testing.T) {
	e := newEngine(t, graph.NewMemory(), nil, nil)
	res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, ReasonEmptyGraph, res.Reason)
	assert.Equal(t, StateIdle, e.State())

	e.UpdateGraph(nil)
	assert.Equal(t, ReasonEmptyGraph, e.ExecuteLayout(context.Background(), ExecuteOptions{}).Reason)
}

func TestValidationFailure(t *testing.T) {
	g := diamond(t)
	_, err := g.AddNode("", nil, graph.Point{X: 5}, graph.Size{})
	require.NoError(t, err)
	e := newEngine(t, g, nil, nil)

	res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, flerrors.ErrCodeValidation, res.Code)
	assert.Equal(t, StagePreprocessing, res.Stage)
	assert.Zero(t, res.Applied.AppliedNodes)
	for _, pt := range g.Positions() {
		if pt.X != 5 {
			assert.Equal(t, graph.Point{}, pt, "no position is written before validation passes")
		}
	}
	assert.Equal(t, StateFailed, e.State())
}

func TestApplicationFailure(t *testing.T) {
	tests := []struct {
		name      string
		g         func(*graph.Memory) graph.Graph
		wantIDs   []string
		wantInMsg string
	}{
		{
			name:      "partial write",
			g:         func(m *graph.Memory) graph.Graph { return &faultyGraph{Memory: m, failID: "end"} },
			wantIDs:   []string{"A", "B"},
			wantInMsg: "read-only",
		},
		{
			name:      "panic",
			g:         func(m *graph.Memory) graph.Graph { return &faultyGraph{Memory: m, panics: true} },
			wantInMsg: "host graph exploded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingPreview{}
			e := newEngine(t, tt.g(diamond(t)), p, nil)

			res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
			assert.False(t, res.Success)
			assert.Equal(t, flerrors.ErrCodeStage, res.Code)
			assert.Equal(t, StageApplication, res.Stage)
			assert.Equal(t, StageApplication, flerrors.StageOf(res.Err))
			assert.Contains(t, res.Error, tt.wantInMsg)
			assert.Equal(t, tt.wantIDs, res.Applied.IDs)
			assert.Equal(t, []string{UnlockFailed}, p.unlockReasons())
			assert.Equal(t, StateFailed, e.State())
		})
	}
}

func TestAlreadyExecuting(t *testing.T) {
	p := &recordingPreview{}
	e := newEngine(t, diamond(t), p, nil)

	var nested *Result
	p.onLock = func() { nested = e.ExecuteLayout(context.Background(), ExecuteOptions{}) }

	res := e.ExecuteLayout(context.Background(), ExecuteOptions{Reason: "outer"})
	require.True(t, res.Success)
	require.NotNil(t, nested)
	assert.False(t, nested.Success)
	assert.Equal(t, ReasonAlreadyExecuting, nested.Reason)
	assert.Equal(t, flerrors.ErrCodeAlreadyExecuting, nested.Code)
	assert.Equal(t, "outer", p.locks[0].Reason)
	assert.Equal(t, config.DefaultLockTimeout, p.locks[0].Timeout)
	assert.Equal(t, []string{UnlockCompleted}, p.unlockReasons())
}

func TestCancelDuringRun(t *testing.T) {
	g := diamond(t)
	p := &recordingPreview{}
	e := newEngine(t, g, p, nil)
	p.onLock = e.Cancel

	res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.Equal(t, flerrors.ErrCodeCancelled, res.Code)
	assert.Equal(t, StageLayerAssignment, res.Stage)
	assert.Equal(t, StateCancelled, e.State())
	assert.Equal(t, []string{UnlockCancelled}, p.unlockReasons())
	for _, pt := range g.Positions() {
		assert.Equal(t, graph.Point{}, pt)
	}

	p.onLock = nil
	assert.True(t, e.ExecuteLayout(context.Background(), ExecuteOptions{}).Success, "the next run starts fresh")
}

func TestCancelledContext(t *testing.T) {
	e := newEngine(t, diamond(t), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.ExecuteLayout(ctx, ExecuteOptions{})
	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.Equal(t, StagePreprocessing, res.Stage)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestLockTimeoutIsWarning(t *testing.T) {
	p := &recordingPreview{}
	e := newEngine(t, diamond(t), p, func(c *config.Config) {
		c.Lock.WaitTimeout = config.Duration(20 * time.Millisecond)
	})

	h, err := e.LockManager().Acquire(context.Background(), config.DefaultLockID, lock.Options{Timeout: time.Minute})
	require.NoError(t, err)
	defer h.Release()

	res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	require.True(t, res.Success, res.Error)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], string(flerrors.ErrCodeLockTimeout))
	assert.Empty(t, p.locks, "the preview is not locked without the layout lock")
	assert.Equal(t, int64(1), e.GetPerformanceReport().Lock.WaitTimeouts)
}

func TestLockExpiryUnlocksPreview(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	p := &recordingPreview{}
	e := newEngine(t, diamond(t), p, nil, WithClock(fc))

	_, err := e.LockManager().Acquire(context.Background(), config.DefaultLockID, lock.Options{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	assert.True(t, e.LockManager().IsLocked(config.DefaultLockID))

	fc.Advance(100 * time.Millisecond)
	assert.False(t, e.LockManager().IsLocked(config.DefaultLockID))
	assert.Equal(t, []string{UnlockTimeout}, p.unlockReasons())
}

func TestPreviewLockErrorIsWarning(t *testing.T) {
	p := &recordingPreview{lockErr: errors.New("preview busy")}
	e := newEngine(t, diamond(t), p, nil)

	res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	require.True(t, res.Success)
	assert.Contains(t, res.Warnings, "preview lock: preview busy")
}

func TestUpdatePreviewManager(t *testing.T) {
	first := &recordingPreview{}
	second := &recordingPreview{}
	e := newEngine(t, diamond(t), first, nil)

	e.UpdatePreviewManager(second)
	require.True(t, e.ExecuteLayout(context.Background(), ExecuteOptions{}).Success)
	assert.Empty(t, first.locks)
	assert.Len(t, second.locks, 1)

	e.UpdatePreviewManager(nil)
	assert.True(t, e.ExecuteLayout(context.Background(), ExecuteOptions{SkipCache: true}).Success)
}

func TestDisabledOptimizers(t *testing.T) {
	e := newEngine(t, diamond(t), nil, func(c *config.Config) {
		c.Optimize.Layer = false
		c.Optimize.Global = false
	})
	res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	require.True(t, res.Success)
	assert.Nil(t, res.LayerReport)
	assert.Nil(t, res.GlobalReport)
	for _, st := range res.StageTimings {
		assert.NotEqual(t, StageLayerOptimization, st.Stage)
		assert.NotEqual(t, StageGlobalOptimization, st.Stage)
	}
}

func TestDebouncedCoalescing(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	e := newEngine(t, diamond(t), nil, nil, WithClock(fc))

	const callers = 10
	out := make(chan *Result, callers)
	for range callers {
		go func() {
			res, err := e.ExecuteLayoutDebounced(context.Background(), "auto", ExecuteOptions{})
			assert.NoError(t, err)
			out <- res
		}()
	}
	require.Eventually(t, func() bool { return e.debs.Waiters("auto") == callers }, time.Second, time.Millisecond)

	fc.Advance(config.DefaultDebounceDelay)
	var ids []string
	for range callers {
		select {
		case res := <-out:
			require.True(t, res.Success)
			ids = append(ids, res.ExecutionID)
		case <-time.After(time.Second):
			t.Fatal("debounced caller never returned")
		}
	}
	for _, id := range ids {
		assert.Equal(t, ids[0], id, "every caller receives the same run")
	}
	assert.Equal(t, 1, e.GetPerformanceReport().Performance.Executions)
}

func TestDebouncedCancelAndDispose(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	e := newEngine(t, diamond(t), nil, nil, WithClock(fc))

	errc := make(chan error, 1)
	go func() {
		_, err := e.ExecuteLayoutDebounced(context.Background(), "auto", ExecuteOptions{})
		errc <- err
	}()
	require.Eventually(t, func() bool { return e.debs.Waiters("auto") == 1 }, time.Second, time.Millisecond)
	e.Cancel()
	assert.ErrorIs(t, <-errc, ErrCancelled)

	go func() {
		_, err := e.ExecuteLayoutDebounced(context.Background(), "auto", ExecuteOptions{})
		errc <- err
	}()
	require.Eventually(t, func() bool { return e.debs.Waiters("auto") == 1 }, time.Second, time.Millisecond)
	e.Dispose()
	assert.ErrorIs(t, <-errc, ErrDisposed)

	_, err := e.ExecuteLayoutDebounced(context.Background(), "auto", ExecuteOptions{})
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestFlushDebounced(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	e := newEngine(t, diamond(t), nil, nil, WithClock(fc))

	out := make(chan *Result, 1)
	go func() {
		res, _ := e.ExecuteLayoutDebounced(context.Background(), "auto", ExecuteOptions{})
		out <- res
	}()
	require.Eventually(t, func() bool { return e.debs.Waiters("auto") == 1 }, time.Second, time.Millisecond)
	assert.True(t, e.FlushDebounced("auto"))
	assert.True(t, (<-out).Success)
	assert.False(t, e.FlushDebounced("auto"))
}

func TestDispose(t *testing.T) {
	p := &recordingPreview{}
	e := newEngine(t, diamond(t), p, nil)

	_, err := e.LockManager().Acquire(context.Background(), "drag", lock.Options{Timeout: time.Minute})
	require.NoError(t, err)

	e.Dispose()
	e.Dispose()
	assert.Equal(t, StateDisposed, e.State())
	assert.Equal(t, []string{UnlockDisposed}, p.unlockReasons())

	res := e.ExecuteLayout(context.Background(), ExecuteOptions{})
	assert.Equal(t, ReasonDisposed, res.Reason)
	assert.Equal(t, flerrors.ErrCodeDisposed, res.Code)
}

func TestPerformanceReport(t *testing.T) {
	e := newEngine(t, diamond(t), nil, nil)
	for range 3 {
		require.True(t, e.ExecuteLayout(context.Background(), ExecuteOptions{}).Success)
	}

	rep := e.GetPerformanceReport()
	assert.Equal(t, StateCompleted, rep.State)
	assert.Equal(t, 3, rep.Performance.Executions)
	assert.Len(t, rep.Performance.Recent, 3)
	assert.Equal(t, 1, rep.Performance.Stages[StagePositioning].Count)
	assert.Equal(t, 3, rep.Performance.Stages[StageApplication].Count)
	assert.Equal(t, int64(3), rep.Lock.Created)
	assert.Equal(t, int64(3), rep.Lock.Released)
	assert.Zero(t, rep.Lock.Active)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"negative spacing", func(c *config.Config) { c.Node.MinSpacing = -1 }},
		{"bad rule", func(c *config.Config) { c.Filter.Exclude = []string{"id =="} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			_, err := New(diamond(t), nil, cfg)
			require.Error(t, err)
			assert.True(t, flerrors.Is(err, flerrors.ErrCodeInvalidConfig))
		})
	}
}
