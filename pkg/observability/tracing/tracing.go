// Package tracing is an OpenTelemetry backend for the pipeline hooks. Each
// layout run becomes a span named "layout", with one child span per stage.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/observability"
)

const instrumentation = "github.com/matzehuels/flowlayout"

// Hooks implements [observability.PipelineHooks] with spans.
type Hooks struct {
	tracer trace.Tracer
}

// New returns hooks that use tp, or the global provider when tp is nil.
func New(tp trace.TracerProvider) *Hooks {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Hooks{tracer: tp.Tracer(instrumentation)}
}

func (h *Hooks) OnLayoutStart(ctx context.Context, id string, nodes int) context.Context {
	ctx, _ = h.tracer.Start(ctx, "layout", trace.WithAttributes(
		attribute.String("layout.execution_id", id),
		attribute.Int("layout.nodes", nodes),
	))
	return ctx
}

func (h *Hooks) OnLayoutComplete(ctx context.Context, _ string, s observability.LayoutSummary, _ time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int("layout.layers", s.Layers),
		attribute.Int("layout.applied", s.Applied),
		attribute.Int("layout.warnings", s.Warnings),
		attribute.Bool("layout.from_cache", s.FromCache),
	)
	end(span, err)
}

func (h *Hooks) OnStageStart(ctx context.Context, stage string) context.Context {
	ctx, _ = h.tracer.Start(ctx, stage, trace.WithAttributes(attribute.String("layout.stage", stage)))
	return ctx
}

func (h *Hooks) OnStageComplete(ctx context.Context, _ string, _ time.Duration, err error) {
	end(trace.SpanFromContext(ctx), err)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if code := flerrors.GetCode(err); code != "" {
			span.SetAttributes(attribute.String("error.code", string(code)))
		}
		span.SetStatus(codes.Error, flerrors.UserMessage(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

var _ observability.PipelineHooks = (*Hooks)(nil)
