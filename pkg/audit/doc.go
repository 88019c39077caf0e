// Package audit records the outcome of tax rule evaluations.
//
// Every evaluation produces a Record: the rule identity, the inputs and
// outputs, the liability, and how long the evaluation took. Records are
// persisted through the Store interface; an in-memory store serves tests
// and short-lived processes, and a SQLite store provides durable audit
// trails for single-instance deployments.
package audit
