package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for navigation loading and resolution.
type Metrics struct {
	// Full load + decorate duration, labelled by tree ("navigation", "menu")
	LoadLatency *prometheus.HistogramVec

	// Loads by tree and outcome ("ok", "error")
	Loads *prometheus.CounterVec

	// Resolutions by result kind
	Resolutions *prometheus.CounterVec

	ResolveLatency prometheus.Histogram
}

// New registers the navigation metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the navigation metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoadLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "navmenus_navigation_load_duration_seconds",
			Help:    "Duration of navigation tree loads including decoration",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"tree"}),

		Loads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "navmenus_navigation_loads_total",
			Help: "Total navigation tree loads by tree and outcome",
		}, []string{"tree", "outcome"}),

		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "navmenus_resolutions_total",
			Help: "Total URL path resolutions by result kind",
		}, []string{"kind"}),

		ResolveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "navmenus_resolve_duration_seconds",
			Help:    "Duration of URL path resolution including cache lookups",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// ObserveLoad records one tree load.
func (m *Metrics) ObserveLoad(tree string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Loads.WithLabelValues(tree, outcome).Inc()
	m.LoadLatency.WithLabelValues(tree).Observe(time.Since(start).Seconds())
}

// ObserveResolve records one resolution by kind.
func (m *Metrics) ObserveResolve(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(kind).Inc()
	m.ResolveLatency.Observe(time.Since(start).Seconds())
}
