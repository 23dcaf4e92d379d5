// Package metrics exposes pipeline counters on a private Prometheus registry.
//
// Every method is safe on a nil *Manager so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeBusy    = "busy"
	OutcomeIgnored = "ignored"
)

// Manager owns the registry and every collector.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	pages          *prometheus.CounterVec
	pageRetries    *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	cacheSwaps     *prometheus.CounterVec
	snapshotWrites *prometheus.CounterVec
	archives       *prometheus.CounterVec
	triggers       *prometheus.CounterVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace (default "splatsync").
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets overrides the fetch duration buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithGoCollectors adds the Go runtime and process collectors.
func WithGoCollectors() Option {
	return func(m *Manager) {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "splatsync",
		// a full ranking refresh paces pages for minutes
		buckets:  []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.pages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "pages_total",
		Help:      "Upstream pages fetched successfully.",
	}, []string{"dataset"})

	m.pageRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "page_retries_total",
		Help:      "Page requests retried after a transient upstream error.",
	}, []string{"dataset"})

	m.fetchDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of a whole dataset fetch including pacing.",
		Buckets:   m.buckets,
	}, []string{"dataset", "outcome"})

	m.cacheSwaps = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "swaps_total",
		Help:      "Datasets atomically published to the cache.",
	}, []string{"dataset"})

	m.snapshotWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "snapshot",
		Name:      "writes_total",
		Help:      "Snapshot objects written to the bucket.",
	}, []string{"outcome"})

	m.archives = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "archives",
		Name:      "written_total",
		Help:      "Daily archives committed to the bucket.",
	}, []string{"mode"})

	m.triggers = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "triggers_total",
		Help:      "Orchestrator commands handled.",
	}, []string{"command", "outcome"})
}

// Registry returns the private registry. Used by tests.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one dataset fetch.
func (m *Manager) ObserveFetch(dataset string, pages, retries int, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(dataset).Add(float64(pages))
	m.pageRetries.WithLabelValues(dataset).Add(float64(retries))
	m.fetchDuration.WithLabelValues(dataset, outcome(err)).Observe(took.Seconds())
}

func (m *Manager) CacheSwap(dataset string) {
	if m == nil {
		return
	}
	m.cacheSwaps.WithLabelValues(dataset).Inc()
}

func (m *Manager) SnapshotWrite(err error) {
	if m == nil {
		return
	}
	m.snapshotWrites.WithLabelValues(outcome(err)).Inc()
}

func (m *Manager) ArchiveWritten(mode string) {
	if m == nil {
		return
	}
	m.archives.WithLabelValues(mode).Inc()
}

// Trigger records a handled command. outcome is free-form ("success",
// "error", "busy", "ignored").
func (m *Manager) Trigger(command, outcome string) {
	if m == nil {
		return
	}
	m.triggers.WithLabelValues(command, outcome).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
