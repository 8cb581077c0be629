// Package metrics provides Prometheus metrics for sync runs. Runs are
// short-lived, so metrics are exported by writing a textfile for the node
// exporter's textfile collector instead of serving an endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/studiosync/pkg/errors"
)

// Registry holds every studiosync metric.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// RunsTotal tracks sync runs by kind and result
	RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiosync",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync runs by mode and result",
		},
		[]string{"mode", "dry_run", "result"},
	)

	// OutcomesTotal tracks per-studio outcomes
	OutcomesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiosync",
			Subsystem: "sync",
			Name:      "outcomes_total",
			Help:      "Total number of studio outcomes by state",
		},
		[]string{"outcome"},
	)

	// ParentsCreatedTotal tracks parent studios created during applies
	ParentsCreatedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studiosync",
			Subsystem: "sync",
			Name:      "parents_created_total",
			Help:      "Total number of parent studios created",
		},
	)

	// RunDuration tracks the wall time of sync runs
	RunDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "studiosync",
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Duration of sync runs in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		},
	)

	// SourceSearchDuration tracks source search latency
	SourceSearchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studiosync",
			Subsystem: "source",
			Name:      "search_duration_seconds",
			Help:      "Duration of source searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	// SourceErrorsTotal tracks failed or timed out source searches
	SourceErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiosync",
			Subsystem: "source",
			Name:      "errors_total",
			Help:      "Total number of failed source searches",
		},
		[]string{"source", "reason"},
	)
)

// WriteTextfile writes the current metric values to path in the Prometheus
// text format. The file is replaced atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
