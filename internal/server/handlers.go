package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/matzehuels/flowlayout/pkg/buildinfo"
	"github.com/matzehuels/flowlayout/pkg/cache"
	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/pipeline"
)

// LayoutRequest is the body of POST /v1/layout.
type LayoutRequest struct {
	Graph   json.RawMessage         `json:"graph"`
	Options pipeline.ExecuteOptions `json:"options"`
}

// LayoutResponse is the body returned by POST /v1/layout. Graph carries the
// posted document with the computed positions written back.
type LayoutResponse struct {
	Result *pipeline.Result `json:"result"`
	Graph  *graph.Document  `json:"graph,omitempty"`
}

type errorResponse struct {
	Error string        `json:"error"`
	Code  flerrors.Code `json:"code"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	State   pipeline.State `json:"state"`
	Version buildinfo.Info `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		State:   s.engine.State(),
		Version: buildinfo.Get(),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.GetPerformanceReport())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearCache(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: "request body too large",
				Code:  flerrors.ErrCodeInvalidInput,
			})
			return
		}
		s.writeError(w, flerrors.Wrap(flerrors.ErrCodeInvalidInput, err, "read request body"))
		return
	}

	var req LayoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, flerrors.Wrap(flerrors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if len(req.Graph) == 0 {
		s.writeError(w, flerrors.New(flerrors.ErrCodeInvalidInput, "graph is required"))
		return
	}

	key := cache.Hash(body)
	v, err, shared := s.flight.Do(key, func() (any, error) {
		return s.layout(context.WithoutCancel(r.Context()), req)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if shared {
		s.logger.Debug("layout request coalesced", "key", key)
	}

	resp := v.(*LayoutResponse)
	writeJSON(w, statusFor(resp.Result), resp)
}

// layout runs the engine on one document. Runs are serialized so that
// concurrent requests for different documents queue instead of being
// rejected as already executing.
func (s *Server) layout(ctx context.Context, req LayoutRequest) (*LayoutResponse, error) {
	doc, err := graph.UnmarshalDocument(req.Graph)
	if err != nil {
		return nil, err
	}
	mem, err := doc.ToMemory()
	if err != nil {
		return nil, flerrors.Wrap(flerrors.ErrCodeInvalidInput, err, "build graph")
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.engine.UpdateGraph(mem)
	res := s.engine.ExecuteLayout(ctx, req.Options)

	out := graph.FromGraph(mem)
	return &LayoutResponse{Result: res, Graph: &out}, nil
}

// statusFor maps a run outcome to an HTTP status.
func statusFor(res *pipeline.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Code {
	case "":
		// Skipped without error, e.g. an empty graph.
		return http.StatusOK
	case flerrors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case flerrors.ErrCodeAlreadyExecuting:
		return http.StatusConflict
	case flerrors.ErrCodeDisposed, flerrors.ErrCodeCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var rl *flerrors.RateLimitedError
	if errors.As(err, &rl) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: rl.Error(), Code: rl.Code()})
		return
	}

	code := flerrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case flerrors.ErrCodeValidation, flerrors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case flerrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case flerrors.ErrCodeDisposed:
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	if code == "" {
		code = flerrors.ErrCodeInternal
	}
	writeJSON(w, status, errorResponse{Error: flerrors.UserMessage(err), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
