// Package metrics is a Prometheus backend for the observability hooks.
//
// A single [Metrics] value implements every hook interface:
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	observability.SetPipelineHooks(m)
//	observability.SetCacheHooks(m)
//	observability.SetLockHooks(m)
//	observability.SetHTTPHooks(m)
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/observability"
)

const namespace = "flowlayout"

// Metrics holds the collectors fed by the hooks.
type Metrics struct {
	LayoutsTotal   *prometheus.CounterVec
	LayoutDuration *prometheus.HistogramVec
	LayoutNodes    prometheus.Histogram
	StageDuration  *prometheus.HistogramVec
	StageErrors    *prometheus.CounterVec
	CacheRequests  *prometheus.CounterVec
	CacheBytes     prometheus.Histogram
	CacheErrors    *prometheus.CounterVec
	LockWait       prometheus.Histogram
	LockHeld       *prometheus.HistogramVec
	LockTimeouts   prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	HTTPInFlight   prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg
// registers nothing, which is useful in tests that read values directly.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LayoutsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "layouts_total",
			Help: "Layout runs by outcome (success, cached, failed) and error code.",
		}, []string{"outcome", "code"}),
		LayoutDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "layout_duration_seconds",
			Help:    "Layout run duration.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"outcome"}),
		LayoutNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "layout_nodes",
			Help:    "Layoutable nodes per run.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "stage_duration_seconds",
			Help:    "Pipeline stage duration.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"stage"}),
		StageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stage_errors_total",
			Help: "Pipeline stage failures.",
		}, []string{"stage"}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_requests_total",
			Help: "Layout cache lookups by result (hit, miss).",
		}, []string{"result"}),
		CacheBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "cache_entry_bytes",
			Help:    "Size of layouts written to the cache.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}),
		CacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_errors_total",
			Help: "Failed cache operations.",
		}, []string{"op"}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "lock_wait_seconds",
			Help:    "Time spent waiting for the layout lock.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		LockHeld: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "lock_held_seconds",
			Help:    "Time the layout lock was held, by release reason.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"reason"}),
		LockTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lock_timeouts_total",
			Help: "Lock acquisitions that timed out.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
			Help: "HTTP requests currently being served.",
		}),
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) OnLayoutStart(ctx context.Context, _ string, nodes int) context.Context {
	m.LayoutNodes.Observe(float64(nodes))
	return ctx
}

func (m *Metrics) OnLayoutComplete(_ context.Context, _ string, s observability.LayoutSummary, d time.Duration, err error) {
	outcome := "success"
	switch {
	case err != nil:
		outcome = "failed"
	case s.FromCache:
		outcome = "cached"
	}
	m.LayoutsTotal.WithLabelValues(outcome, string(flerrors.GetCode(err))).Inc()
	m.LayoutDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) OnStageStart(ctx context.Context, _ string) context.Context { return ctx }

func (m *Metrics) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.StageErrors.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) OnCacheHit(context.Context)  { m.CacheRequests.WithLabelValues("hit").Inc() }
func (m *Metrics) OnCacheMiss(context.Context) { m.CacheRequests.WithLabelValues("miss").Inc() }

func (m *Metrics) OnCacheSet(_ context.Context, size int) {
	m.CacheBytes.Observe(float64(size))
}

func (m *Metrics) OnCacheError(_ context.Context, op string, _ error) {
	m.CacheErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) OnLockAcquired(_ context.Context, _ string, wait time.Duration) {
	m.LockWait.Observe(wait.Seconds())
}

func (m *Metrics) OnLockReleased(_ context.Context, _ string, held time.Duration, reason string) {
	m.LockHeld.WithLabelValues(reason).Observe(held.Seconds())
}

func (m *Metrics) OnLockTimeout(context.Context, string) { m.LockTimeouts.Inc() }

func (m *Metrics) OnRequest(context.Context, string, string) { m.HTTPInFlight.Inc() }

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.HTTPInFlight.Dec()
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.LockHooks     = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
