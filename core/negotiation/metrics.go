package negotiation

import "github.com/prometheus/client_golang/prometheus"

var (
	negotiationsTotal  *prometheus.CounterVec
	negotiationLatency prometheus.Histogram
	extractionFailures prometheus.Counter
	credentialFailures prometheus.Counter
	invalidSignals     prometheus.Counter
	observerFailures   *prometheus.CounterVec
	nudgesTotal        prometheus.Counter
)

func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Counter, prometheus.Counter, prometheus.Counter, *prometheus.CounterVec, prometheus.Counter) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiations_total",
			Help: "Negotiations by outcome",
		},
		[]string{"outcome"},
	)
	lat := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "negotiation_latency_seconds",
			Help:    "Time spent in the negotiation pipeline",
			Buckets: prometheus.DefBuckets,
		},
	)
	extraction := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intent_extraction_failures_total",
			Help: "Intent extractions that failed or timed out",
		},
	)
	credential := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credential_failures_total",
			Help: "Credential issuance or update failures",
		},
	)
	invalid := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invalid_intent_signals_total",
			Help: "Extracted values clamped into their domain",
		},
	)
	observer := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_observer_failures_total",
			Help: "Post-commit notification failures by stage",
		},
		[]string{"stage"},
	)
	nudges := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nudges_total",
			Help: "Plans released through a nudge",
		},
	)
	return total, lat, extraction, credential, invalid, observer, nudges
}

func init() {
	negotiationsTotal, negotiationLatency, extractionFailures, credentialFailures, invalidSignals, observerFailures, nudgesTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers negotiation metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(negotiationsTotal, negotiationLatency, extractionFailures, credentialFailures, invalidSignals, observerFailures, nudgesTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	negotiationsTotal, negotiationLatency, extractionFailures, credentialFailures, invalidSignals, observerFailures, nudgesTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
