// Package metrics exports pipeline activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solatis/jsonforge/internal/pipeline"
	"github.com/solatis/jsonforge/internal/registry"
)

// Metrics is a pipeline.Observer backed by Prometheus collectors.
type Metrics struct {
	gatherer     prometheus.Gatherer
	rules        *prometheus.CounterVec
	ruleDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

var _ pipeline.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with a fresh registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		rules: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonforge_rule_applications_total",
				Help: "Rule applications by rule name and outcome.",
			},
			[]string{"rule", "outcome"},
		),
		ruleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jsonforge_rule_duration_seconds",
				Help:    "Duration of single rule applications.",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"rule"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonforge_runs_total",
				Help: "Pipeline runs by final state.",
			},
			[]string{"state"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jsonforge_run_duration_seconds",
				Help:    "Duration of whole pipeline runs.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	for _, c := range []prometheus.Collector{
		m.rules, m.ruleDuration, m.runs, m.runDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OnRule implements pipeline.Observer.
func (m *Metrics) OnRule(rule registry.Rule, outcome pipeline.Outcome, elapsed time.Duration) {
	m.rules.WithLabelValues(rule.Name(), string(outcome)).Inc()
	m.ruleDuration.WithLabelValues(rule.Name()).Observe(elapsed.Seconds())
}

// OnRun implements pipeline.Observer.
func (m *Metrics) OnRun(result pipeline.Result) {
	m.runs.WithLabelValues(RunLabel(result)).Inc()
	m.runDuration.Observe(result.Duration.Seconds())
}

// RunLabel names the final state of a run: completed, stopped or aborted.
func RunLabel(result pipeline.Result) string {
	switch {
	case result.State == pipeline.StateAborted:
		return "aborted"
	case result.Stopped:
		return "stopped"
	default:
		return result.State.String()
	}
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
