package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowlayout/pkg/config"
	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/observability"
	"github.com/matzehuels/flowlayout/pkg/pipeline"
)

const diamondDoc = `{
  "nodes": [
    {"id": "start", "width": 100, "height": 40},
    {"id": "A", "width": 100, "height": 40},
    {"id": "B", "width": 100, "height": 40},
    {"id": "end", "width": 100, "height": 40}
  ],
  "edges": [
    {"source": "start", "target": "A"},
    {"source": "start", "target": "B"},
    {"source": "A", "target": "end"},
    {"source": "B", "target": "end"}
  ]
}`

func newServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.JanitorSchedule == "" {
		opts.JanitorSchedule = "-"
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = -1
	}
	s, err := New(opts, config.Default())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func layoutBody(graphJSON string, opts pipeline.ExecuteOptions) string {
	o, _ := json.Marshal(opts)
	return `{"graph": ` + graphJSON + `, "options": ` + string(o) + `}`
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeLayout(t *testing.T, rec *httptest.ResponseRecorder) LayoutResponse {
	t.Helper()
	var resp LayoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	require.NotNil(t, resp.Result)
	return resp
}

func TestHealth(t *testing.T) {
	s := newServer(t, Options{})
	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, pipeline.StateIdle, body.State)
	assert.NotEmpty(t, body.Version.GoVersion)
}

func TestLayout(t *testing.T) {
	s := newServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/v1/layout", layoutBody(diamondDoc, pipeline.ExecuteOptions{}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeLayout(t, rec)
	require.True(t, resp.Result.Success, resp.Result.Error)
	assert.False(t, resp.Result.FromCache)
	assert.Equal(t, [][]string{{"start"}, {"A", "B"}, {"end"}}, resp.Result.Layers)

	require.NotNil(t, resp.Graph)
	xs := map[string]float64{}
	for _, n := range resp.Graph.Nodes {
		xs[n.ID] = n.X
	}
	assert.Equal(t, -80.0, xs["A"])
	assert.Equal(t, 80.0, xs["B"])

	rec = do(t, s, http.MethodPost, "/v1/layout", layoutBody(diamondDoc, pipeline.ExecuteOptions{Reason: "again"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeLayout(t, rec).Result.FromCache)
}

func TestLayoutDryRunLeavesDocument(t *testing.T) {
	s := newServer(t, Options{})
	rec := do(t, s, http.MethodPost, "/v1/layout", layoutBody(diamondDoc, pipeline.ExecuteOptions{DryRun: true}))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeLayout(t, rec)
	assert.True(t, resp.Result.DryRun)
	for _, n := range resp.Graph.Nodes {
		assert.Zero(t, n.X, n.ID)
		assert.Zero(t, n.Y, n.ID)
	}
	assert.Equal(t, -80.0, resp.Result.Positions["A"].X)
}

func TestLayoutEmptyGraph(t *testing.T) {
	s := newServer(t, Options{})
	rec := do(t, s, http.MethodPost, "/v1/layout", layoutBody(`{"nodes": []}`, pipeline.ExecuteOptions{}))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeLayout(t, rec)
	assert.False(t, resp.Result.Success)
	assert.Equal(t, pipeline.ReasonEmptyGraph, resp.Result.Reason)
}

func TestLayoutRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxBytes int64
		status   int
		code     flerrors.Code
	}{
		{
			name:   "malformed json",
			body:   `{"graph": `,
			status: http.StatusBadRequest,
			code:   flerrors.ErrCodeInvalidInput,
		},
		{
			name:   "missing graph",
			body:   `{"options": {}}`,
			status: http.StatusBadRequest,
			code:   flerrors.ErrCodeInvalidInput,
		},
		{
			name:   "schema violation",
			body:   layoutBody(`{"nodes": [{"type": "start"}]}`, pipeline.ExecuteOptions{}),
			status: http.StatusBadRequest,
			code:   flerrors.ErrCodeValidation,
		},
		{
			name:   "duplicate node id",
			body:   layoutBody(`{"nodes": [{"id": "a"}, {"id": "a"}]}`, pipeline.ExecuteOptions{}),
			status: http.StatusBadRequest,
			code:   flerrors.ErrCodeValidation,
		},
		{
			name:     "body too large",
			body:     layoutBody(diamondDoc, pipeline.ExecuteOptions{}),
			maxBytes: 32,
			status:   http.StatusRequestEntityTooLarge,
			code:     flerrors.ErrCodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t, Options{MaxBodyBytes: tt.maxBytes})
			rec := do(t, s, http.MethodPost, "/v1/layout", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestLayoutConcurrentRequests(t *testing.T) {
	s := newServer(t, Options{})
	body := layoutBody(diamondDoc, pipeline.ExecuteOptions{})

	const n = 8
	var wg sync.WaitGroup
	codes := make([]int, n)
	results := make([]*pipeline.Result, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := do(t, s, http.MethodPost, "/v1/layout", body)
			codes[i] = rec.Code
			var resp LayoutResponse
			if json.Unmarshal(rec.Body.Bytes(), &resp) == nil {
				results[i] = resp.Result
			}
		}(i)
	}
	wg.Wait()

	for i := range n {
		assert.Equal(t, http.StatusOK, codes[i])
		require.NotNil(t, results[i])
		assert.True(t, results[i].Success, "request %d: %s", i, results[i].Reason)
	}
}

func TestReportAndClearCache(t *testing.T) {
	s := newServer(t, Options{})
	body := layoutBody(diamondDoc, pipeline.ExecuteOptions{})
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/layout", body).Code)

	rec := do(t, s, http.MethodGet, "/v1/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep pipeline.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, pipeline.StateCompleted, rep.State)
	assert.Equal(t, 1, rep.Performance.Executions)
	require.NotNil(t, rep.Cache)
	assert.Equal(t, 1, rep.Cache.Size)

	rec = do(t, s, http.MethodDelete, "/v1/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/layout", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeLayout(t, rec).Result.FromCache)
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, Options{RateLimit: 1, Burst: 1})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/v1/report", "").Code)

	rec := do(t, s, http.MethodGet, "/v1/report", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, flerrors.ErrCodeRateLimited, body.Code)

	// Health checks are not rate limited.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, Options{})
	observability.SetHTTPHooks(s.Metrics())
	t.Cleanup(observability.Reset)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, "flowlayout_http_requests_total")
	assert.Contains(t, out, `route="/healthz"`)
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t, Options{})
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v2/layout", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/v1/layout", "").Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		res  *pipeline.Result
		want int
	}{
		{"success", &pipeline.Result{Success: true}, http.StatusOK},
		{"skip", &pipeline.Result{Reason: pipeline.ReasonEmptyGraph}, http.StatusOK},
		{"validation", &pipeline.Result{Code: flerrors.ErrCodeValidation}, http.StatusUnprocessableEntity},
		{"busy", &pipeline.Result{Code: flerrors.ErrCodeAlreadyExecuting}, http.StatusConflict},
		{"disposed", &pipeline.Result{Code: flerrors.ErrCodeDisposed}, http.StatusServiceUnavailable},
		{"stage", &pipeline.Result{Code: flerrors.ErrCodeStage}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.res))
		})
	}
}

func TestJanitor(t *testing.T) {
	_, err := New(Options{JanitorSchedule: "every now and then"}, config.Default())
	require.Error(t, err)

	s := newServer(t, Options{})
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/layout", layoutBody(diamondDoc, pipeline.ExecuteOptions{})).Code)
	assert.NotPanics(t, s.sweep)
}

func TestRunShutsDown(t *testing.T) {
	s, err := New(Options{Addr: "127.0.0.1:0", JanitorSchedule: "@every 1h"}, config.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, pipeline.StateDisposed, s.Engine().State())
}

func TestDocumentRoundTripThroughServer(t *testing.T) {
	s := newServer(t, Options{})
	rec := do(t, s, http.MethodPost, "/v1/layout", layoutBody(diamondDoc, pipeline.ExecuteOptions{}))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeLayout(t, rec)
	data, err := graph.MarshalDocument(*resp.Graph)
	require.NoError(t, err)
	_, err = graph.UnmarshalDocument(data)
	assert.NoError(t, err)
}
