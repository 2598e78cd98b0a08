package pipeline

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowlayout/pkg/cache"
	"github.com/matzehuels/flowlayout/pkg/clock"
	"github.com/matzehuels/flowlayout/pkg/config"
	"github.com/matzehuels/flowlayout/pkg/debounce"
	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/layout"
	"github.com/matzehuels/flowlayout/pkg/lock"
	"github.com/matzehuels/flowlayout/pkg/observability"
	"github.com/matzehuels/flowlayout/pkg/perf"
	"github.com/matzehuels/flowlayout/pkg/preprocess"
)

// Errors returned by [Engine.ExecuteLayoutDebounced] when the pending call
// is dropped instead of executed.
var (
	ErrCancelled = debounce.ErrCancelled
	ErrDisposed  = debounce.ErrDisposed
)

const (
	cacheKeyScope  = "v1:"
	redisDialLimit = 2 * time.Second
)

// Engine lays out one host graph. It is safe for concurrent use, but runs
// never overlap: a call made while another run is in flight returns at
// once with [ReasonAlreadyExecuting].
type Engine struct {
	cfg    config.Config
	params layout.Params
	pre    *preprocess.Preprocessor

	clock  clock.Clock
	logger *log.Logger
	cache  cache.Cache
	keyer  cache.Keyer
	locks  *lock.Manager
	debs   *debounce.Manager[*Result]
	perf   *perf.Monitor

	mu        sync.RWMutex
	graph     graph.Graph
	preview   PreviewManager
	cancelRun context.CancelFunc
	state     State

	executing atomic.Bool
	disposed  atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithClock sets the time source for the debouncer, lock expiry, cache TTL
// and timings.
func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithCache replaces the cache built from the configuration.
func WithCache(c cache.Cache) Option { return func(e *Engine) { e.cache = c } }

// WithKeyer replaces the cache key scheme.
func WithKeyer(k cache.Keyer) Option { return func(e *Engine) { e.keyer = k } }

// WithPerfMonitor replaces the performance monitor, for example to share
// one across engines.
func WithPerfMonitor(m *perf.Monitor) Option { return func(e *Engine) { e.perf = m } }

// New creates an engine for g. A nil preview selects [NoopPreview]. The
// configuration is validated; zero values are filled with defaults first.
//
// When the configuration enables caching, the engine keeps an in-process
// LRU, backed by Redis if Cache.Redis.Addr is set. An unreachable Redis
// server is logged and the engine runs with the LRU alone.
func New(g graph.Graph, preview PreviewManager, cfg config.Config, opts ...Option) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		params:  layout.ParamsFromConfig(cfg),
		clock:   clock.Real(),
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
		graph:   g,
		preview: preview,
		state:   StateIdle,
	}
	if e.preview == nil {
		e.preview = NoopPreview{}
	}
	for _, opt := range opts {
		opt(e)
	}

	pre, err := preprocess.New(cfg.Filter.Exclude, preprocess.WithLogger(e.logger))
	if err != nil {
		return nil, flerrors.Wrap(flerrors.ErrCodeInvalidConfig, err, "compile exclusion rules")
	}
	e.pre = pre

	if e.keyer == nil {
		e.keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), cacheKeyScope)
	}
	if e.cache == nil {
		e.cache = e.newCache()
	}
	if e.perf == nil {
		e.perf = perf.New(perf.WithClock(e.clock), perf.WithLogger(e.logger))
	}
	e.locks = lock.New(
		lock.WithClock(e.clock),
		lock.WithLogger(e.logger),
		lock.WithDefaultTimeout(cfg.Lock.Timeout.Std()),
		lock.WithMaxLocks(cfg.Lock.MaxLocks),
		lock.WithExpiryHandler(e.lockExpired),
	)
	e.debs = debounce.New[*Result](
		cfg.Debounce.Delay.Std(),
		cfg.Debounce.MaxWait.Std(),
		debounce.WithClock(e.clock),
		debounce.WithLogger(e.logger),
	)
	return e, nil
}

func (e *Engine) newCache() cache.Cache {
	cc := e.cfg.Cache
	if !cc.Enabled {
		return cache.NewNullCache()
	}
	lru := cache.NewLRU(cc.MaxSize, cc.TTL.Std(), cache.WithClock(e.clock))
	if cc.Redis.Addr == "" {
		return lru
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisDialLimit)
	defer cancel()
	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     cc.Redis.Addr,
		Password: cc.Redis.Password,
		DB:       cc.Redis.DB,
		Prefix:   cc.Redis.Prefix,
		TTL:      cc.TTL.Std(),
	})
	if err != nil {
		e.logger.Warn("redis unavailable, using local cache only", "addr", cc.Redis.Addr, "err", err)
		return lru
	}
	e.logger.Debug("cache tiers ready", "l1", "lru", "l2", "redis", "addr", cc.Redis.Addr)
	return cache.NewTiered(lru, r)
}

// Config returns the resolved configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// LockManager exposes the engine's locks. Hosts may hold the layout lock
// (Config().Lock.ID) themselves to keep runs from writing positions while
// they do; a run waits up to Lock.WaitTimeout and then proceeds with a
// warning.
func (e *Engine) LockManager() *lock.Manager { return e.locks }

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	if e.state != StateDisposed {
		e.state = s
	}
	e.mu.Unlock()
}

// UpdateGraph replaces the host graph used by subsequent runs.
func (e *Engine) UpdateGraph(g graph.Graph) {
	e.mu.Lock()
	e.graph = g
	e.mu.Unlock()
}

// UpdatePreviewManager replaces the preview collaborator. A nil manager
// selects [NoopPreview].
func (e *Engine) UpdatePreviewManager(p PreviewManager) {
	if p == nil {
		p = NoopPreview{}
	}
	e.mu.Lock()
	e.preview = p
	e.mu.Unlock()
}

func (e *Engine) collaborators() (graph.Graph, PreviewManager) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph, e.preview
}

// ExecuteLayout lays out the current graph. It never panics and always
// returns a non-nil result.
func (e *Engine) ExecuteLayout(ctx context.Context, opts ExecuteOptions) *Result {
	if e.disposed.Load() {
		return skipped("", ReasonDisposed, flerrors.ErrCodeDisposed)
	}
	if !e.executing.CompareAndSwap(false, true) {
		e.logger.Debug("layout skipped", "reason", ReasonAlreadyExecuting)
		return skipped("", ReasonAlreadyExecuting, flerrors.ErrCodeAlreadyExecuting)
	}
	defer e.executing.Store(false)

	g, preview := e.collaborators()
	if g == nil || len(g.Nodes()) == 0 {
		e.logger.Debug("layout skipped", "reason", ReasonEmptyGraph)
		return skipped("", ReasonEmptyGraph, "")
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancelRun = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		e.cancelRun = nil
		e.mu.Unlock()
	}()

	e.setState(StateRunning)
	r := newRun(e, runCtx, g, preview, opts)
	res := r.execute()

	switch {
	case res.Success:
		e.setState(StateCompleted)
	case res.Reason == ReasonCancelled:
		e.setState(StateCancelled)
	default:
		e.setState(StateFailed)
	}
	return res
}

// ExecuteLayoutDebounced coalesces calls sharing key. The run starts once
// no call for key arrived for Debounce.Delay, or Debounce.MaxWait after the
// first call of the burst; every coalesced caller receives the same result.
// The options of the latest call win.
//
// The error is [ErrCancelled] or [ErrDisposed] when the pending run was
// dropped, or the caller's context error if it gave up waiting.
func (e *Engine) ExecuteLayoutDebounced(ctx context.Context, key string, opts ExecuteOptions) (*Result, error) {
	if e.disposed.Load() {
		return nil, ErrDisposed
	}
	return e.debs.Do(ctx, key, func(ctx context.Context) (*Result, error) {
		return e.ExecuteLayout(ctx, opts), nil
	})
}

// FlushDebounced runs the pending call for key now. It reports whether one
// was pending.
func (e *Engine) FlushDebounced(key string) bool { return e.debs.Flush(key) }

// Cancel stops the run in flight at its next stage boundary and drops every
// pending debounced call.
func (e *Engine) Cancel() {
	e.cancelInFlight()
	if n := e.debs.CancelAll(); n > 0 {
		e.logger.Debug("debounced layouts cancelled", "count", n)
	}
}

func (e *Engine) cancelInFlight() {
	e.mu.RLock()
	cancel := e.cancelRun
	e.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// ClearCache drops every cached layout.
func (e *Engine) ClearCache() error {
	if err := e.cache.Clear(context.Background()); err != nil {
		observability.Cache().OnCacheError(context.Background(), "clear", err)
		return flerrors.CacheFailure("clear", err)
	}
	e.logger.Debug("layout cache cleared")
	return nil
}

// CleanupCache removes expired entries from caches that support it and
// returns how many were removed.
func (e *Engine) CleanupCache() int {
	if c, ok := e.cache.(cache.Cleaner); ok {
		return c.Cleanup()
	}
	return 0
}

// Dispose cancels outstanding work, releases every lock (unlocking the
// preview collaborator), and closes the cache. Later calls return
// [ReasonDisposed]. Dispose is idempotent.
func (e *Engine) Dispose() {
	if !e.disposed.CompareAndSwap(false, true) {
		return
	}
	// Pending debounced callers must see ErrDisposed, not ErrCancelled.
	e.debs.Dispose()
	e.cancelInFlight()

	held := e.locks.Snapshot()
	e.locks.ReleaseAll()
	e.locks.Close()
	_, preview := e.collaborators()
	for _, info := range held {
		if err := preview.Unlock(info.ID, UnlockOptions{Reason: UnlockDisposed}); err != nil {
			e.logger.Warn("preview unlock failed", "id", info.ID, "err", err)
		}
	}

	if err := e.cache.Close(); err != nil {
		e.logger.Warn("close cache", "err", err)
	}
	e.perf.Reset()

	e.mu.Lock()
	e.graph = nil
	e.preview = NoopPreview{}
	e.state = StateDisposed
	e.mu.Unlock()
	e.logger.Debug("engine disposed")
}

// lockExpired runs when a lock was auto-released by its timeout.
func (e *Engine) lockExpired(info lock.Info) {
	ctx := context.Background()
	observability.Lock().OnLockReleased(ctx, info.ID, info.Timeout, UnlockTimeout)
	_, preview := e.collaborators()
	if err := preview.Unlock(info.ID, UnlockOptions{Reason: UnlockTimeout}); err != nil {
		e.logger.Warn("preview unlock failed", "id", info.ID, "reason", UnlockTimeout, "err", err)
	}
	e.logger.Warn("layout lock expired", "id", info.ID, "timeout", info.Timeout)
}
