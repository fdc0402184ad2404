package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/jsonforge/internal/core/db"
	"github.com/solatis/jsonforge/internal/types"
)

func TestServeHTTP(t *testing.T) {
	svc := newTestService(t, "STOP", WithMaxDocumentSize(32))

	tests := []struct {
		name      string
		body      string
		want      int
		wantBody  string
		stoppedBy string
	}{
		{"completed", `{"id":"1"}`, http.StatusOK, `{"id":"1","seen":"yes"}`, ""},
		{"stopped", `{"n":1}`, http.StatusOK, `{"n":1}`, "validate"},
		{"malformed", `[1,`, http.StatusBadRequest, "", ""},
		{"too large", `{"id":"` + strings.Repeat("x", 64) + `"}`, http.StatusRequestEntityTooLarge, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/transform", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(RunIDHeader))
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.want != http.StatusOK {
				var resp errorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Error)
				assert.Equal(t, rec.Header().Get(RunIDHeader), string(resp.RunID))
				return
			}
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.stoppedBy, rec.Header().Get("X-Stopped-By"))
		})
	}
}

func newRunsRouter(t *testing.T) (http.Handler, *db.Journal) {
	t.Helper()
	ctx := context.Background()
	database, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.MigrateUp(ctx, database))
	journal, err := db.NewJournal(database)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/v1/runs", NewRunsHandler(journal).Routes)
	return r, journal
}

func TestRunsHandler(t *testing.T) {
	router, journal := newRunsRouter(t)
	svc := newTestService(t, "ABORT", WithJournal(journal))

	out, err := svc.Transform(context.Background(), []byte(`{"id":"1"}`))
	require.NoError(t, err)
	_, err = svc.Transform(context.Background(), []byte(`{}`))
	require.Error(t, err)

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/"+string(out.RunID), nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var run db.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, out.RunID, run.ID)
		assert.Equal(t, db.RunCompleted, run.State)
	})

	t.Run("recent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/?limit=1", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var runs []db.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		assert.Len(t, runs, 1)
	})

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"unknown run", "/v1/runs/" + string(types.NewRunID()), http.StatusNotFound},
		{"bad id", "/v1/runs/not-a-uuid", http.StatusBadRequest},
		{"bad limit", "/v1/runs/?limit=zero", http.StatusBadRequest},
		{"negative limit", "/v1/runs/?limit=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
