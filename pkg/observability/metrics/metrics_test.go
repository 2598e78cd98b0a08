package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/observability"
)

func TestLayoutOutcomes(t *testing.T) {
	m := New(nil)
	ctx := context.Background()

	m.OnLayoutComplete(ctx, "a", observability.LayoutSummary{Nodes: 3}, time.Millisecond, nil)
	m.OnLayoutComplete(ctx, "b", observability.LayoutSummary{FromCache: true}, time.Millisecond, nil)
	m.OnLayoutComplete(ctx, "c", observability.LayoutSummary{}, time.Millisecond,
		flerrors.Stage("positioning", errors.New("boom")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LayoutsTotal.WithLabelValues("success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LayoutsTotal.WithLabelValues("cached", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LayoutsTotal.WithLabelValues("failed", string(flerrors.ErrCodeStage))))
}

func TestStageAndCache(t *testing.T) {
	m := New(nil)
	ctx := context.Background()

	m.OnStageComplete(ctx, "layer_optimization", time.Millisecond, nil)
	m.OnStageComplete(ctx, "application", time.Millisecond, errors.New("write failed"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageErrors.WithLabelValues("application")))

	m.OnCacheHit(ctx)
	m.OnCacheMiss(ctx)
	m.OnCacheMiss(ctx)
	m.OnCacheError(ctx, "get", errors.New("down"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheErrors.WithLabelValues("get")))
}

func TestLockAndHTTP(t *testing.T) {
	m := New(nil)
	ctx := context.Background()

	m.OnLockTimeout(ctx, "layout_execution")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LockTimeouts))

	m.OnRequest(ctx, "POST", "/v1/layout")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPInFlight))
	m.OnResponse(ctx, "POST", "/v1/layout", 200, time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/v1/layout", "200")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.OnCacheHit(context.Background())

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `flowlayout_cache_requests_total{result="hit"} 1`)
}
