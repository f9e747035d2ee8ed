package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeDiagnosis labels arbitrations that produced a model-backed diagnosis.
	OutcomeDiagnosis = "diagnosis"
	// OutcomeReferral labels arbitrations that ended in a specialist referral.
	OutcomeReferral = "referral"
	// OutcomeFallback labels arbitrations resolved by the deterministic fallback ladder.
	OutcomeFallback = "fallback"
	// OutcomeError labels arbitrations that hit the outer error boundary.
	OutcomeError = "error"
)

var (
	arbitrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assessment_engine",
			Name:      "arbitrations_total",
			Help:      "Total number of diagnostic arbitrations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	arbitrationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "assessment_engine",
			Name:      "arbitration_seconds",
			Help:      "Diagnostic arbitration latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 30},
		},
	)

	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assessment_engine",
			Name:      "completions_total",
			Help:      "Completion requests, partitioned by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	completionCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "assessment_engine",
			Name:      "completion_cache_hits_total",
			Help:      "Completion responses served from the response cache.",
		},
	)

	symptomsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assessment_engine",
			Name:      "symptoms_recorded_total",
			Help:      "Symptoms recorded by the recognition engine, partitioned by category.",
		},
		[]string{"category"},
	)
)

// Register attaches assessment-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		arbitrationsTotal,
		arbitrationDurationSeconds,
		completionsTotal,
		completionCacheHitsTotal,
		symptomsRecordedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveArbitration records an arbitration duration and outcome label.
func ObserveArbitration(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeDiagnosis, OutcomeReferral, OutcomeFallback, OutcomeError:
	default:
		outcome = OutcomeDiagnosis
	}
	arbitrationsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	arbitrationDurationSeconds.Observe(duration.Seconds())
}

// ObserveCompletion records one completion attempt against a named provider.
func ObserveCompletion(provider, outcome string) {
	completionsTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveCacheHit records a completion response served from cache.
func ObserveCacheHit() {
	completionCacheHitsTotal.Inc()
}

// ObserveSymptom records one recognised symptom by category.
func ObserveSymptom(category string) {
	symptomsRecordedTotal.WithLabelValues(category).Inc()
}
