package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics tracks metrics related to rule evaluation.
//
// Metrics:
//   - opentax_evaluations_total: Total rule evaluations by rule and outcome
//   - opentax_evaluation_duration_seconds: Rule evaluation duration
//   - opentax_evaluation_errors_total: Evaluation failures by error kind
//   - opentax_rule_reloads_total: Rule set reloads by outcome
type EvaluationMetrics struct {
	// Total rule evaluations
	evaluationsTotal *prometheus.CounterVec

	// Rule evaluation duration histogram
	evaluationDuration *prometheus.HistogramVec

	// Evaluation failures by error kind
	errorsTotal *prometheus.CounterVec

	// Rule set reloads by outcome (hot-reload surfaces)
	reloadsTotal *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics with the
// provided registry.
func NewEvaluationMetrics(registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opentax",
				Name:      "evaluations_total",
				Help:      "Total number of rule evaluations",
			},
			[]string{"rule", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "opentax",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of rule evaluation in seconds",
				// Evaluations should be fast (< 10ms)
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"rule"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opentax",
				Name:      "evaluation_errors_total",
				Help:      "Total number of evaluation failures by error kind",
			},
			[]string{"kind"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opentax",
				Name:      "rule_reloads_total",
				Help:      "Total number of rule set reloads by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.errorsTotal,
		em.reloadsTotal,
	)

	return em
}

// RecordEvaluation records one completed evaluation.
//
// Example:
//
//	em.RecordEvaluation("flat_income_tax", "success", 800*time.Microsecond)
func (em *EvaluationMetrics) RecordEvaluation(rule, outcome string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(rule, outcome).Inc()
	em.evaluationDuration.WithLabelValues(rule).Observe(duration.Seconds())
}

// RecordError records a failed evaluation under its error kind, e.g.
// "input", "table_lookup", or "division_by_zero".
func (em *EvaluationMetrics) RecordError(kind string) {
	em.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordReload records one rule set reload: "success" when every rule
// validated cleanly, "invalid" when some rules carried validation errors,
// "error" when the reload itself failed.
func (em *EvaluationMetrics) RecordReload(outcome string) {
	em.reloadsTotal.WithLabelValues(outcome).Inc()
}
