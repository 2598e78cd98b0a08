package cli

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/matzehuels/flowlayout/pkg/observability"
	"github.com/matzehuels/flowlayout/pkg/observability/tracing"
)

// setupTracing installs span hooks that print every layout run and its
// stages to w. The returned function flushes and removes them.
func setupTracing(w io.Writer) (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	observability.SetPipelineHooks(tracing.New(tp))

	return func(ctx context.Context) error {
		observability.SetPipelineHooks(observability.NoopPipelineHooks{})
		return tp.Shutdown(ctx)
	}, nil
}
