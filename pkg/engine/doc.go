// Package engine executes tax rule flows.
//
// The engine is a small strictly-typed interpreter. A rule document's flow
// is an ordered list of steps; each step either runs a list of atomic
// operations or dispatches on guarded cases (first match wins). Operations
// mutate calculated variables in an evaluation context, resolving operand
// values through the expression evaluator and its built-in function
// library. Guards are boolean condition trees evaluated by the conditional
// evaluator.
//
// Evaluation is deterministic and fail-fast: any unresolved reference,
// arity or type mismatch, division by zero, or bracket lookup landing
// outside every bracket aborts the whole evaluation. Wrong-but-silent
// answers are unacceptable in a tax-calculation context, so there is no
// partial-result recovery. The only soft behaviors are cases steps with no
// matching case (a no-op) and variadic built-ins called with no arguments
// (a defined zero).
//
// An Engine instance serializes evaluations internally; the per-evaluation
// symbol rebuild and the flow run are atomic with respect to each other.
// For concurrent workloads, prefer one Engine per goroutine.
package engine
