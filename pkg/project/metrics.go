package project

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Load result label values.
const (
	LoadSuccess  = "success"
	LoadNotFound = "not_found"
	LoadError    = "error"
)

// Metrics instruments the project cache.
type Metrics struct {
	hits         prometheus.Counter
	misses       prometheus.Counter
	loads        *prometheus.CounterVec
	evictions    prometheus.Counter
	loadDuration prometheus.Histogram
}

// NewMetrics creates the project cache metrics.
// If registry is nil, metrics are created but not registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "refperm",
			Subsystem: "project_cache",
			Name:      "hits_total",
			Help:      "Project cache lookups served from memory",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "refperm",
			Subsystem: "project_cache",
			Name:      "misses_total",
			Help:      "Project cache lookups that required a load",
		}),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "refperm",
				Subsystem: "project_cache",
				Name:      "loads_total",
				Help:      "Project config loads from the store by result",
			},
			[]string{"result"},
		),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "refperm",
			Subsystem: "project_cache",
			Name:      "evictions_total",
			Help:      "Project cache entries evicted",
		}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "refperm",
			Subsystem: "project_cache",
			Name:      "load_duration_seconds",
			Help:      "Time spent loading a project config from the store",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	if registry != nil {
		registry.MustRegister(m.hits, m.misses, m.loads, m.evictions, m.loadDuration)
	}
	return m
}

// ObserveHit records a lookup served from memory.
func (m *Metrics) ObserveHit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

// ObserveMiss records a lookup that needed a load.
func (m *Metrics) ObserveMiss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

// ObserveLoad records a store load with its result label and duration.
func (m *Metrics) ObserveLoad(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(result).Inc()
	m.loadDuration.Observe(d.Seconds())
}

// ObserveEviction records an evicted entry.
func (m *Metrics) ObserveEviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}
