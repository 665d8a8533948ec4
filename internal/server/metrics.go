package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// serverMetrics are registered on a per-server registry so several servers
// can coexist in one process.
type serverMetrics struct {
	registry    *prometheus.Registry
	built       *prometheus.CounterVec
	classes     prometheus.Histogram
	comparisons *prometheus.CounterVec
	stored      prometheus.Gauge
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		built: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crat",
			Name:      "states_built_total",
			Help:      "Number of states built, by metric.",
		}, []string{"metric"}),
		classes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crat",
			Name:      "state_classes",
			Help:      "Number of non-empty classes per built state.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		comparisons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crat",
			Name:      "state_comparisons_total",
			Help:      "Threshold comparisons, by outcome.",
		}, []string{"better"}),
		stored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crat",
			Name:      "states_stored",
			Help:      "Number of states currently held.",
		}),
	}
	m.registry.MustRegister(m.built, m.classes, m.comparisons, m.stored)
	return m
}
