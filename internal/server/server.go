// Package server exposes the layout engine over HTTP.
//
// The service is stateless apart from the engine's in-memory cache: clients
// post a graph document and receive the computed positions, the layout and
// the run statistics. Identical documents posted concurrently are computed
// once and the result is shared.
//
// # Routes
//
//	POST   /v1/layout   lay out a graph document
//	GET    /v1/report   performance, cache, lock and debounce report
//	DELETE /v1/cache    drop every cached layout
//	GET    /healthz     liveness and build information
//	GET    /metrics     Prometheus metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/matzehuels/flowlayout/pkg/config"
	"github.com/matzehuels/flowlayout/pkg/observability/metrics"
	"github.com/matzehuels/flowlayout/pkg/pipeline"
)

// Defaults applied by [Options.SetDefaults].
const (
	DefaultAddr            = ":8080"
	DefaultRateLimit       = 20
	DefaultBurst           = 40
	DefaultMaxBodyBytes    = 4 << 20
	DefaultShutdownTimeout = 5 * time.Second
	DefaultJanitorSchedule = "@every 1m"
)

// Options configure the HTTP service.
type Options struct {
	Addr            string
	RateLimit       float64 // requests per second across all clients; negative disables limiting
	Burst           int
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
	JanitorSchedule string // cron expression; "-" disables the janitor
}

// SetDefaults fills zero values.
func (o *Options) SetDefaults() {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.RateLimit == 0 {
		o.RateLimit = DefaultRateLimit
	}
	if o.Burst <= 0 {
		o.Burst = DefaultBurst
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = DefaultShutdownTimeout
	}
	if o.JanitorSchedule == "" {
		o.JanitorSchedule = DefaultJanitorSchedule
	}
}

// Server serves layout requests with a single shared engine.
type Server struct {
	opts     Options
	logger   *log.Logger
	engine   *pipeline.Engine
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	limiter  *rate.Limiter
	janitor  *cron.Cron
	router   chi.Router

	flight singleflight.Group
	// runMu serializes engine runs; the engine rejects overlapping runs.
	runMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithRegistry sets the Prometheus registry that receives the engine and
// HTTP collectors and backs /metrics.
func WithRegistry(r *prometheus.Registry) Option { return func(s *Server) { s.registry = r } }

// New creates the server and its engine. The caller must call [Server.Close]
// unless [Server.Run] is used, which closes the server when it returns.
func New(opts Options, cfg config.Config, options ...Option) (*Server, error) {
	opts.SetDefaults()
	s := &Server{
		opts:   opts,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, o := range options {
		o(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = metrics.New(s.registry)

	engine, err := pipeline.New(nil, nil, cfg, pipeline.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.engine = engine

	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst)
	}
	if opts.JanitorSchedule != "-" {
		s.janitor = cron.New()
		if _, err := s.janitor.AddFunc(opts.JanitorSchedule, s.sweep); err != nil {
			engine.Dispose()
			return nil, fmt.Errorf("janitor schedule %q: %w", opts.JanitorSchedule, err)
		}
	}
	s.router = s.routes()
	return s, nil
}

// Engine returns the engine serving requests.
func (s *Server) Engine() *pipeline.Engine { return s.engine }

// Metrics returns the collectors registered by the server. Install them
// as observability hooks to feed /metrics from the engine.
func (s *Server) Metrics() *metrics.Metrics { return s.metrics }

// Handler returns the HTTP handler with every route and middleware.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler(s.registry))

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/layout", s.handleLayout)
		r.Get("/report", s.handleReport)
		r.Delete("/cache", s.handleClearCache)
	})
	return r
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully and disposes of the engine.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.janitor != nil {
		s.janitor.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.Close()
	return err
}

// Close stops the janitor and disposes of the engine.
func (s *Server) Close() {
	if s.janitor != nil {
		<-s.janitor.Stop().Done()
	}
	s.engine.Dispose()
}
