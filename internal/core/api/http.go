package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/solatis/jsonforge/internal/core/db"
	"github.com/solatis/jsonforge/internal/types"
)

type errorResponse struct {
	Error string      `json:"error"`
	RunID types.RunID `json:"run_id,omitempty"`
}

// ServeHTTP handles POST /v1/transform: the request body is the document,
// the response body the transformed document.
func (s *TransformService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// One byte over the limit is enough for Transform to reject it.
	input, err := io.ReadAll(io.LimitReader(r.Body, int64(s.maxSize)+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cannot read request body"})
		return
	}

	out, err := s.Transform(r.Context(), input)
	w.Header().Set(RunIDHeader, string(out.RunID))
	if err != nil {
		writeJSON(w, HTTPStatus(err), errorResponse{Error: err.Error(), RunID: out.RunID})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Rules-Applied", strconv.Itoa(out.Result.Applied))
	if out.Result.Stopped {
		w.Header().Set("X-Stopped-By", out.Result.StoppedBy)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Document)
}

// RunReader reads the run journal. *db.Journal implements it.
type RunReader interface {
	Get(ctx context.Context, id types.RunID) (db.Run, error)
	Recent(ctx context.Context, limit int) ([]db.Run, error)
}

// RunsHandler serves the run journal over HTTP.
type RunsHandler struct {
	runs RunReader
}

// NewRunsHandler creates the handler.
func NewRunsHandler(runs RunReader) *RunsHandler {
	return &RunsHandler{runs: runs}
}

const (
	defaultRecentRuns = 20
	maxRecentRuns     = 500
)

// Routes mounts GET / (recent runs, ?limit=n) and GET /{id}.
func (h *RunsHandler) Routes(r chi.Router) {
	r.Get("/", h.recent)
	r.Get("/{id}", h.get)
}

func (h *RunsHandler) recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentRuns
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentRuns)
	}
	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *RunsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	run, err := h.runs.Get(r.Context(), id)
	switch {
	case errors.Is(err, db.ErrRunNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
