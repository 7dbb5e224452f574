package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pandeptwidyaop/classmod/internal/models"
)

const namespace = "classmod"

// RunMetrics counts what a single run did. Each run owns its registry so the textfile only
// carries this run's values.
type RunMetrics struct {
	registry       *prometheus.Registry
	unitsLoaded    *prometheus.CounterVec
	nodesCollected *prometheus.CounterVec
	replacements   prometheus.Counter
	runs           *prometheus.CounterVec
	duration       prometheus.Gauge
	lastRun        prometheus.Gauge
}

// NewRunMetrics registers the run metrics on a fresh registry.
func NewRunMetrics() *RunMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &RunMetrics{
		registry: reg,
		unitsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_loaded_total",
			Help:      "Units loaded from the working copy, by kind.",
		}, []string{"kind"}),
		nodesCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elements_collected_total",
			Help:      "Elements selected for the class rename, by kind.",
		}, []string{"kind"}),
		replacements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "class_replacements_total",
			Help:      "Class lists in which the target token was replaced.",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by mode and final status.",
		}, []string{"mode", "status"}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

// Registry exposes the registry, mainly for tests.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// UnitsLoaded adds n loaded units of kind.
func (m *RunMetrics) UnitsLoaded(kind models.UnitKind, n int) {
	m.unitsLoaded.WithLabelValues(kind.Label()).Add(float64(n))
}

// NodesCollected adds n collected elements of kind.
func (m *RunMetrics) NodesCollected(kind models.UnitKind, n int) {
	m.nodesCollected.WithLabelValues(kind.Label()).Add(float64(n))
}

// Replaced counts one class list rename.
func (m *RunMetrics) Replaced() {
	m.replacements.Inc()
}

// Finished records the outcome and timing of a run.
func (m *RunMetrics) Finished(mode models.RunMode, status models.RunStatus, started, finished time.Time) {
	m.runs.WithLabelValues(string(mode), string(status)).Inc()
	m.duration.Set(finished.Sub(started).Seconds())
	m.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes the metrics in the text exposition format for the node exporter
// textfile collector. The file is replaced atomically.
func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
