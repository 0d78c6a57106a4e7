// Package metrics exposes Prometheus collectors for the session layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	resolutionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "session_layer",
			Subsystem: "session",
			Name:      "resolution_attempts_total",
			Help:      "Total number of session resolution attempts started.",
		},
		[]string{"trigger"},
	)

	resolutionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "session_layer",
			Subsystem: "session",
			Name:      "resolution_outcomes_total",
			Help:      "Terminal outcomes of session resolution attempts.",
		},
		[]string{"environment", "state", "fault"},
	)

	resolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "session_layer",
			Subsystem: "session",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of session resolution attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"environment"},
	)

	readinessSignals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "session_layer",
			Subsystem: "session",
			Name:      "readiness_signals_total",
			Help:      "Total number of readiness signals sent to the host.",
		},
	)

	walletConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "session_layer",
			Subsystem: "wallet",
			Name:      "connect_requests_total",
			Help:      "Total number of wallet access requests.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		resolutionAttempts,
		resolutionOutcomes,
		resolutionDuration,
		readinessSignals,
		walletConnects,
	)
}

// ObserveAttempt records the start of a resolution attempt.
func ObserveAttempt(trigger string) {
	resolutionAttempts.WithLabelValues(trigger).Inc()
}

// ObserveOutcome records the terminal state of a resolution attempt.
func ObserveOutcome(environment, state, fault string, elapsed time.Duration) {
	if fault == "" {
		fault = "none"
	}
	resolutionOutcomes.WithLabelValues(environment, state, fault).Inc()
	resolutionDuration.WithLabelValues(environment).Observe(elapsed.Seconds())
}

// ObserveReadiness records a readiness signal.
func ObserveReadiness() {
	readinessSignals.Inc()
}

// ObserveWalletConnect records the result of a wallet access request:
// "connected", "unavailable" or "fault".
func ObserveWalletConnect(result string) {
	walletConnects.WithLabelValues(result).Inc()
}

// Handler returns the HTTP handler serving the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
