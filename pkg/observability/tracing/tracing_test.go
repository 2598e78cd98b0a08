package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/observability"
)

func newRecorder(t *testing.T) (*Hooks, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return New(tp), rec
}

func TestRunAndStageSpans(t *testing.T) {
	h, rec := newRecorder(t)

	ctx := h.OnLayoutStart(context.Background(), "exec-1", 4)
	for _, stage := range []string{"preprocessing", "positioning"} {
		sctx := h.OnStageStart(ctx, stage)
		h.OnStageComplete(sctx, stage, time.Millisecond, nil)
	}
	h.OnLayoutComplete(ctx, "exec-1", observability.LayoutSummary{Nodes: 4, Layers: 3}, time.Millisecond, nil)

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "preprocessing", spans[0].Name())
	assert.Equal(t, "positioning", spans[1].Name())
	root := spans[2]
	assert.Equal(t, "layout", root.Name())
	assert.Equal(t, codes.Ok, root.Status().Code)
	for _, s := range spans[:2] {
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID(), "stage spans are children of the run")
	}
}

func TestErrorStatus(t *testing.T) {
	h, rec := newRecorder(t)

	ctx := h.OnLayoutStart(context.Background(), "exec-2", 1)
	err := flerrors.Stage("positioning", errors.New("boom"))
	sctx := h.OnStageStart(ctx, "positioning")
	h.OnStageComplete(sctx, "positioning", 0, err)
	h.OnLayoutComplete(ctx, "exec-2", observability.LayoutSummary{}, 0, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, codes.Error, s.Status().Code)
		assert.NotEmpty(t, s.Events(), "error is recorded as an event")
	}
}

func TestGlobalProvider(t *testing.T) {
	h := New(nil)
	ctx := h.OnLayoutStart(context.Background(), "x", 0)
	h.OnLayoutComplete(ctx, "x", observability.LayoutSummary{}, 0, nil)
}
