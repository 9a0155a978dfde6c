package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kidwatch",
		Subsystem: "provider",
		Name:      "attempts_total",
		Help:      "Provider attempts by capability, provider and outcome.",
	}, []string{"capability", "provider", "outcome"})

	attemptLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kidwatch",
		Subsystem: "provider",
		Name:      "attempt_seconds",
		Help:      "Provider attempt latency by capability and provider.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"capability", "provider"})
)

func observeAttempt(capability, providerID, outcome string, latency time.Duration) {
	attemptCounter.WithLabelValues(capability, providerID, outcome).Inc()
	attemptLatency.WithLabelValues(capability, providerID).Observe(latency.Seconds())
}
