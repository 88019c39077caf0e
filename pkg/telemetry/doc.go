// Package telemetry provides observability for opentax.
//
// Two concerns live here:
//
//   - logging: building the process-wide slog logger from configuration
//   - metrics: Prometheus counters and histograms for rule evaluation
//
// Evaluation itself stays free of telemetry imports; callers wire the
// logger into the engine and record metrics around Evaluate calls.
package telemetry
