// Package metrics provides Prometheus collectors for the kiosk.
// Labels stay low-cardinality: no session or record ids.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransformTotal counts finished transformations by strategy and outcome.
	TransformTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kiosk",
		Name:      "transform_total",
		Help:      "Total number of elf transformations, by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	// TransformDuration observes how long a transformation took.
	TransformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kiosk",
		Name:      "transform_duration_seconds",
		Help:      "Duration of elf transformations, by strategy.",
		Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 90},
	}, []string{"strategy"})

	// StaleResultsTotal counts transformation results dropped by the wizard
	// because the session had moved on.
	StaleResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kiosk",
		Name:      "stale_results_total",
		Help:      "Total number of transformation results discarded as stale.",
	})

	// StepTransitionsTotal counts wizard transitions.
	StepTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kiosk",
		Name:      "step_transitions_total",
		Help:      "Total number of wizard step transitions, by source and target step.",
	}, []string{"from", "to"})

	// BadgeIssuanceTotal counts badge issuance attempts by outcome.
	BadgeIssuanceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kiosk",
		Name:      "badge_issuance_total",
		Help:      "Total number of badge issuance attempts, by outcome.",
	}, []string{"outcome"})

	// ActiveSessions tracks wizard sessions held in memory.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kiosk",
		Name:      "active_sessions",
		Help:      "Current number of kiosk sessions held in memory.",
	})
)
