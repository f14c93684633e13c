// Package metrics exposes Prometheus instrumentation for lifecycle
// transitions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "passtrack_transitions_total",
		Help: "Lifecycle transitions attempted, by transition and outcome",
	}, []string{"transition", "outcome"})

	transitionDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "passtrack_transition_duration_ms",
		Help:    "Latency of lifecycle transitions in milliseconds",
		Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"transition"})
)

// ObserveTransition records one transition attempt. Outcome is "ok" or
// "error".
func ObserveTransition(transition string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	transitionsTotal.WithLabelValues(transition, outcome).Inc()
	transitionDurationMs.WithLabelValues(transition).Observe(float64(elapsed.Milliseconds()))
}
