package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	assert.Equal(t, ctx, p.OnLayoutStart(ctx, "exec-1", 4))
	assert.Equal(t, ctx, p.OnStageStart(ctx, "positioning"))
	p.OnStageComplete(ctx, "positioning", time.Millisecond, nil)
	p.OnLayoutComplete(ctx, "exec-1", LayoutSummary{Nodes: 4}, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx)
	c.OnCacheMiss(ctx)
	c.OnCacheSet(ctx, 1024)
	c.OnCacheError(ctx, "get", errors.New("down"))

	l := NoopLockHooks{}
	l.OnLockAcquired(ctx, "layout_execution", 0)
	l.OnLockReleased(ctx, "layout_execution", time.Second, "completed")
	l.OnLockTimeout(ctx, "layout_execution")

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/layout")
	h.OnResponse(ctx, "POST", "/v1/layout", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	assert.IsType(t, NoopPipelineHooks{}, Pipeline())
	assert.IsType(t, NoopCacheHooks{}, Cache())
	assert.IsType(t, NoopLockHooks{}, Lock())
	assert.IsType(t, NoopHTTPHooks{}, HTTP())

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	assert.Same(t, customPipeline, Pipeline())

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	assert.Same(t, customCache, Cache())

	customLock := &testLockHooks{}
	SetLockHooks(customLock)
	assert.Same(t, customLock, Lock())

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	assert.Same(t, customHTTP, HTTP())

	Reset()
	assert.IsType(t, NoopPipelineHooks{}, Pipeline())
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)
	assert.Same(t, custom, Pipeline())
}

type ctxKey string

// recordingHooks records the order of events and tags the context.
type recordingHooks struct {
	NoopPipelineHooks
	name   string
	events *[]string
}

func (r recordingHooks) OnLayoutStart(ctx context.Context, id string, _ int) context.Context {
	*r.events = append(*r.events, r.name+":start:"+id)
	return context.WithValue(ctx, ctxKey(r.name), true)
}

func (r recordingHooks) OnStageComplete(ctx context.Context, stage string, _ time.Duration, _ error) {
	tagged := ctx.Value(ctxKey("a")) != nil && ctx.Value(ctxKey("b")) != nil
	if tagged {
		*r.events = append(*r.events, r.name+":stage:"+stage)
	}
}

func TestMultiPipeline(t *testing.T) {
	var events []string
	m := MultiPipeline(recordingHooks{name: "a", events: &events}, recordingHooks{name: "b", events: &events})

	ctx := m.OnLayoutStart(context.Background(), "x", 1)
	ctx = m.OnStageStart(ctx, "positioning")
	m.OnStageComplete(ctx, "positioning", 0, nil)
	m.OnLayoutComplete(ctx, "x", LayoutSummary{}, 0, nil)

	assert.Equal(t, []string{"a:start:x", "b:start:x", "a:stage:positioning", "b:stage:positioning"}, events)
}

type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testLockHooks struct{ NoopLockHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
