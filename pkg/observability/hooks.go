// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events through the registered hooks without depending on
// any observability backend. Backends live in subpackages:
// [github.com/matzehuels/flowlayout/pkg/observability/metrics] for
// Prometheus and [github.com/matzehuels/flowlayout/pkg/observability/tracing]
// for OpenTelemetry.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := metrics.New(prometheus.DefaultRegisterer)
//	    observability.SetPipelineHooks(observability.MultiPipeline(m, tracing.New(nil)))
//	    observability.SetCacheHooks(m)
//	    // ... run application
//	}
//
// The engine calls hooks around every run:
//
//	ctx = observability.Pipeline().OnLayoutStart(ctx, id, nodes)
//	// ... stages ...
//	observability.Pipeline().OnLayoutComplete(ctx, id, summary, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// LayoutSummary describes a finished layout run.
type LayoutSummary struct {
	Nodes     int
	Layers    int
	Applied   int
	Warnings  int
	FromCache bool
}

// PipelineHooks receives events from the layout engine.
//
// The start methods return the context that the engine passes to the
// matching completion call and to nested events, so a tracing backend can
// attach spans to it.
type PipelineHooks interface {
	OnLayoutStart(ctx context.Context, executionID string, nodeCount int) context.Context
	OnLayoutComplete(ctx context.Context, executionID string, summary LayoutSummary, duration time.Duration, err error)

	OnStageStart(ctx context.Context, stage string) context.Context
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from layout cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context)
	OnCacheMiss(ctx context.Context)
	// OnCacheSet records a cache write of size bytes.
	OnCacheSet(ctx context.Context, size int)
	// OnCacheError records a failed lookup or write; op is "get" or "set".
	OnCacheError(ctx context.Context, op string, err error)
}

// =============================================================================
// Lock Hooks
// =============================================================================

// LockHooks receives events from the preview lock protocol.
type LockHooks interface {
	// OnLockAcquired records a granted lock and how long the engine waited.
	OnLockAcquired(ctx context.Context, lockID string, wait time.Duration)
	// OnLockReleased records a release; reason is "completed" or "timeout".
	OnLockReleased(ctx context.Context, lockID string, held time.Duration, reason string)
	// OnLockTimeout records a lock that could not be acquired in time.
	OnLockTimeout(ctx context.Context, lockID string)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP service.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLayoutStart(ctx context.Context, _ string, _ int) context.Context {
	return ctx
}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, string, LayoutSummary, time.Duration, error) {
}
func (NoopPipelineHooks) OnStageStart(ctx context.Context, _ string) context.Context { return ctx }
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context)                  {}
func (NoopCacheHooks) OnCacheMiss(context.Context)                 {}
func (NoopCacheHooks) OnCacheSet(context.Context, int)             {}
func (NoopCacheHooks) OnCacheError(context.Context, string, error) {}

// NoopLockHooks is a no-op implementation of LockHooks.
type NoopLockHooks struct{}

func (NoopLockHooks) OnLockAcquired(context.Context, string, time.Duration)         {}
func (NoopLockHooks) OnLockReleased(context.Context, string, time.Duration, string) {}
func (NoopLockHooks) OnLockTimeout(context.Context, string)                         {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Fan-out
// =============================================================================

type multiPipeline []PipelineHooks

// MultiPipeline returns hooks that forward every event to each of hs in
// order. Contexts returned by start methods are threaded through.
func MultiPipeline(hs ...PipelineHooks) PipelineHooks {
	return multiPipeline(hs)
}

func (m multiPipeline) OnLayoutStart(ctx context.Context, id string, n int) context.Context {
	for _, h := range m {
		ctx = h.OnLayoutStart(ctx, id, n)
	}
	return ctx
}

func (m multiPipeline) OnLayoutComplete(ctx context.Context, id string, s LayoutSummary, d time.Duration, err error) {
	for _, h := range m {
		h.OnLayoutComplete(ctx, id, s, d, err)
	}
}

func (m multiPipeline) OnStageStart(ctx context.Context, stage string) context.Context {
	for _, h := range m {
		ctx = h.OnStageStart(ctx, stage)
	}
	return ctx
}

func (m multiPipeline) OnStageComplete(ctx context.Context, stage string, d time.Duration, err error) {
	for _, h := range m {
		h.OnStageComplete(ctx, stage, d, err)
	}
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	lockHooks     LockHooks     = NoopLockHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers pipeline hooks. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetLockHooks registers lock hooks. A nil h is ignored.
func SetLockHooks(h LockHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		lockHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Lock returns the registered lock hooks.
func Lock() LockHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return lockHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	lockHooks = NoopLockHooks{}
	httpHooks = NoopHTTPHooks{}
}
