package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/pipeline"
	"github.com/solatis/jsonforge/internal/registry"
)

type stubRule struct {
	name  string
	order int
	err   error
}

func (r stubRule) Name() string         { return r.name }
func (r stubRule) Order() int           { return r.order }
func (r stubRule) Path() *document.Path { return document.MustCompile("$") }
func (r stubRule) Apply(context.Context, *document.Document) error {
	return r.err
}

func TestMetrics_ObservesPipeline(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	p, err := pipeline.New([]registry.Rule{
		stubRule{name: "first", order: 0},
		stubRule{name: "second", order: 1},
	}, pipeline.WithObserver(m))
	require.NoError(t, err)

	doc, err := document.Parse([]byte(`{}`))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := p.Run(context.Background(), doc)
		require.NoError(t, err)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.rules.WithLabelValues("first", string(pipeline.OutcomeApplied))))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.runs.WithLabelValues("completed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.rules))
}

func TestRunLabel(t *testing.T) {
	tests := []struct {
		result pipeline.Result
		want   string
	}{
		{pipeline.Result{State: pipeline.StateCompleted}, "completed"},
		{pipeline.Result{State: pipeline.StateCompleted, Stopped: true}, "stopped"},
		{pipeline.Result{State: pipeline.StateAborted}, "aborted"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RunLabel(tt.result))
	}
}

func TestMetrics_Handler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.OnRun(pipeline.Result{State: pipeline.StateAborted, Duration: time.Millisecond})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `jsonforge_runs_total{state="aborted"} 1`)
}
