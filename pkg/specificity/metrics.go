package specificity

import "github.com/prometheus/client_golang/prometheus"

// Lookup result label values.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Metrics counts sort cache lookups.
type Metrics struct {
	lookups *prometheus.CounterVec
}

// NewMetrics creates the sort cache metrics.
// If registry is nil, metrics are created but not registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "refperm",
				Subsystem: "sort_cache",
				Name:      "lookups_total",
				Help:      "Specificity sort cache lookups by result",
			},
			[]string{"result"},
		),
	}
	if registry != nil {
		registry.MustRegister(m.lookups)
	}
	return m
}

// ObserveLookup records a cache hit or miss.
func (m *Metrics) ObserveLookup(hit bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.lookups.WithLabelValues(result).Inc()
}
