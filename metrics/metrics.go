// Package metrics exposes Prometheus metrics for label composition, the
// render cache and printing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names.
const (
	MetricLabelsTotal            = "assettag_labels_total"
	MetricComposeDurationSeconds = "assettag_compose_duration_seconds"
	MetricCacheLookupsTotal      = "assettag_cache_lookups_total"
	MetricPrintJobsTotal         = "assettag_print_jobs_total"
)

// Metrics owns a private registry so tests and multiple servers don't clash.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry        *prometheus.Registry
	labelsTotal     *prometheus.CounterVec
	composeDuration prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	printJobs       *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		labelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricLabelsTotal,
			Help: "Labels composed, by result.",
		}, []string{"result"}),
		composeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricComposeDurationSeconds,
			Help:    "Time to compose and serialize one label.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCacheLookupsTotal,
			Help: "Render cache lookups, by outcome.",
		}, []string{"outcome"}),
		printJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPrintJobsTotal,
			Help: "Print jobs, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.labelsTotal,
		m.composeDuration,
		m.cacheLookups,
		m.printJobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCompose records one compose attempt.
func (m *Metrics) ObserveCompose(elapsed time.Duration, err error) {
	m.labelsTotal.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.composeDuration.Observe(elapsed.Seconds())
	}
}

// CacheHit records a cache lookup.
func (m *Metrics) CacheHit(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

// PrintJob records the outcome of one print job.
func (m *Metrics) PrintJob(err error) {
	m.printJobs.WithLabelValues(result(err)).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
