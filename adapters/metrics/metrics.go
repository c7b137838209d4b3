// Package metrics provides Prometheus metrics collection for zentypes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/zentypes/core/diagnostic"
)

const namespace = "zentypes"

// Fetch outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Run statuses.
const (
	RunOK     = "ok"
	RunHalted = "halted"
	RunError  = "error"
)

// Collector holds all Prometheus metrics for zentypes.
type Collector struct {
	// Registry metrics
	RegistryFetches *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Run metrics
	RunsTotal           *prometheus.CounterVec
	RunDuration         prometheus.Histogram
	DeclarationsEmitted prometheus.Gauge
	Diagnostics         *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered with the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newCollector(promauto.With(reg))
}

func newCollector(factory promauto.Factory) *Collector {
	return &Collector{
		RegistryFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_fetches_total",
				Help:      "Total number of schema registry calls",
			},
			[]string{"operation", "outcome"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "registry_fetch_duration_seconds",
				Help:      "Schema registry call duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Total number of raw response cache lookups",
			},
			[]string{"layer", "result"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of generation runs",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Generation run duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		DeclarationsEmitted: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "declarations",
				Help:      "Number of declarations produced by the last successful run",
			},
		),
		Diagnostics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Total number of diagnostics reported",
			},
			[]string{"severity", "code"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// RecordFetch records one registry call.
func (c *Collector) RecordFetch(operation, outcome string, d time.Duration) {
	c.RegistryFetches.WithLabelValues(operation, outcome).Inc()
	c.FetchDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCacheLookup records one cache lookup. layer is "names" or "symbol".
func (c *Collector) RecordCacheLookup(layer, result string) {
	c.CacheLookups.WithLabelValues(layer, result).Inc()
}

// RecordRun records a finished generation run.
func (c *Collector) RecordRun(status string, d time.Duration, declarations int) {
	c.RunsTotal.WithLabelValues(status).Inc()
	c.RunDuration.Observe(d.Seconds())
	if status == RunOK {
		c.DeclarationsEmitted.Set(float64(declarations))
	}
}

// RecordDiagnostics counts diagnostics by severity and code.
func (c *Collector) RecordDiagnostics(diags *diagnostic.Diagnostics) {
	for _, d := range diags.All() {
		c.Diagnostics.WithLabelValues(d.Severity.String(), d.Code).Inc()
	}
}

// RecordConfigReload records a config reload attempt.
func (c *Collector) RecordConfigReload(err error, at time.Time) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}
