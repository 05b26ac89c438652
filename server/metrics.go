package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes recorded in salesdash_runs_total.
const (
	OutcomeOK        = "ok"
	OutcomeLoadError = "load_error"
	OutcomeError     = "error"
)

// Metrics are the dashboard run counters, on their own registry so tests
// and embedded servers never collide on the global one.
type Metrics struct {
	Registry        *prometheus.Registry
	Runs            *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	DatasetRecords  prometheus.Gauge
	FilteredRecords prometheus.Gauge
}

// NewMetrics registers the run metrics plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesdash_runs_total",
			Help: "Dashboard runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesdash_run_duration_seconds",
			Help:    "Time to load the dataset and build the dashboard.",
			Buckets: prometheus.DefBuckets,
		}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salesdash_dataset_records",
			Help: "Records in the dataset of the last successful load.",
		}),
		FilteredRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salesdash_filtered_records",
			Help: "Records that passed the filters in the last run.",
		}),
	}
	m.Registry.MustRegister(
		m.Runs, m.RunDuration, m.DatasetRecords, m.FilteredRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
