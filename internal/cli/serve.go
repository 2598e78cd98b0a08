package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowlayout/internal/server"
	"github.com/matzehuels/flowlayout/pkg/observability"
)

// serveCommand creates the serve command that runs the HTTP service.
func (c *CLI) serveCommand() *cobra.Command {
	var opts server.Options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout engine over HTTP",
		Long: `Serve the layout engine over HTTP.

Routes:
  POST   /v1/layout   lay out a graph document ({"graph": ..., "options": ...})
  GET    /v1/report   performance, cache, lock and debounce report
  DELETE /v1/cache    drop every cached layout
  GET    /healthz     liveness and build information
  GET    /metrics     Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().Float64Var(&opts.RateLimit, "rate", server.DefaultRateLimit, "requests per second on /v1 routes (negative disables)")
	cmd.Flags().IntVar(&opts.Burst, "burst", server.DefaultBurst, "request burst on /v1 routes")
	cmd.Flags().Int64Var(&opts.MaxBodyBytes, "max-body", server.DefaultMaxBodyBytes, "maximum request body size in bytes")
	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", server.DefaultShutdownTimeout, "graceful shutdown limit")
	cmd.Flags().StringVar(&opts.JanitorSchedule, "janitor", server.DefaultJanitorSchedule, `cron schedule for cache cleanup ("-" disables)`)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts server.Options) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := server.New(opts, cfg, server.WithLogger(c.Logger), server.WithRegistry(reg))
	if err != nil {
		return err
	}
	installMetricsHooks(srv)
	defer observability.Reset()

	start := time.Now()
	err = srv.Run(ctx)
	c.Logger.Info("server stopped", "uptime", time.Since(start).Round(time.Second))
	return err
}

// installMetricsHooks feeds the server's Prometheus collectors from every
// hook family, keeping pipeline hooks installed earlier (e.g. --trace).
func installMetricsHooks(srv *server.Server) {
	m := srv.Metrics()
	observability.SetPipelineHooks(observability.MultiPipeline(observability.Pipeline(), m))
	observability.SetCacheHooks(m)
	observability.SetLockHooks(m)
	observability.SetHTTPHooks(m)
}
