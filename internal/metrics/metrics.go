// Package metrics provides Prometheus metrics for scenebridge
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes.
const (
	OutcomeResolved = "resolved"
	OutcomeLiteral  = "literal"
	OutcomeMiss     = "miss"
)

// Metrics holds the bridge's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	BridgesOpened     prometheus.Counter
	SpecsCreated      prometheus.Counter
	QueriesTotal      *prometheus.CounterVec
	ResolveDuration   *prometheus.HistogramVec
	ExportFrames      prometheus.Counter
	RegistryOpenFiles prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which suits tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BridgesOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "scenebridge_bridges_opened_total",
			Help: "Total number of bridges opened on scene cache files",
		}),
		SpecsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "scenebridge_specs_created_total",
			Help: "Total number of specs created by hierarchy walks",
		}),
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenebridge_time_sample_queries_total",
				Help: "Time sample queries by property kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ResolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scenebridge_resolve_duration_seconds",
				Help:    "Duration of on-demand time sample resolution in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind"},
		),
		ExportFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "scenebridge_export_frames_total",
			Help: "Total number of frames written by exports",
		}),
		RegistryOpenFiles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scenebridge_registry_open_files",
			Help: "Number of scene cache files held open by the shared registry",
		}),
	}
}

// BridgeOpened counts a successful open and the specs its walk created.
func (m *Metrics) BridgeOpened(specs int) {
	if m == nil {
		return
	}
	m.BridgesOpened.Inc()
	m.SpecsCreated.Add(float64(specs))
}

// Query records one time sample query.
func (m *Metrics) Query(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeResolved {
		m.ResolveDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// FramesExported adds n written frames.
func (m *Metrics) FramesExported(n int) {
	if m == nil {
		return
	}
	m.ExportFrames.Add(float64(n))
}

// OpenFiles sets the registry gauge.
func (m *Metrics) OpenFiles(n int) {
	if m == nil {
		return
	}
	m.RegistryOpenFiles.Set(float64(n))
}
