// Package metrics provides Prometheus metrics for rule evaluation.
//
// # Metrics
//
//   - opentax_evaluations_total{rule,outcome}: evaluation count
//   - opentax_evaluation_duration_seconds{rule}: evaluation latency
//   - opentax_evaluation_errors_total{kind}: errors by kind
//   - opentax_rule_reloads_total{outcome}: rule set reloads
//
// Error kinds are derived from the engine's typed errors via ErrorKind,
// so dashboards can separate input problems from rule defects.
//
// # Usage
//
//	registry := prometheus.NewRegistry()
//	m := metrics.NewEvaluationMetrics(registry)
//
//	result, err := eng.Evaluate(ctx, r, inputs)
//	if err != nil {
//		m.RecordError(metrics.ErrorKind(err))
//		m.RecordEvaluation(r.Name, "error", time.Since(start))
//	} else {
//		m.RecordEvaluation(r.Name, "success", result.EvaluationTime)
//	}
package metrics
