package permissions

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Check kind and result label values.
const (
	KindRef     = "ref"
	KindChange  = "change"
	KindProject = "project"

	ResultAllowed = "allowed"
	ResultDenied  = "denied"
	ResultError   = "error"
)

// Metrics instruments permission checks.
type Metrics struct {
	checks        *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
}

// NewMetrics creates the permission check metrics.
// If registry is nil, metrics are created but not registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "refperm",
				Subsystem: "permissions",
				Name:      "checks_total",
				Help:      "Permission checks by kind and result",
			},
			[]string{"kind", "result"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "refperm",
				Subsystem: "permissions",
				Name:      "check_duration_seconds",
				Help:      "Time spent evaluating a permission check",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 16),
			},
			[]string{"kind"},
		),
	}
	if registry != nil {
		registry.MustRegister(m.checks, m.checkDuration)
	}
	return m
}

// ObserveCheck records one check. err takes precedence over allowed.
func (m *Metrics) ObserveCheck(kind string, allowed bool, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := ResultDenied
	switch {
	case err != nil:
		result = ResultError
	case allowed:
		result = ResultAllowed
	}
	m.checks.WithLabelValues(kind, result).Inc()
	m.checkDuration.WithLabelValues(kind).Observe(d.Seconds())
}
