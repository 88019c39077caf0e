package engine

import (
	"fmt"
)

// ReferenceDomain names the variable domain an unresolved reference
// belonged to. Keeping the domain makes the error actionable: a missing
// $x, $$x, and x are three different authoring mistakes.
type ReferenceDomain string

const (
	DomainInput      ReferenceDomain = "input"
	DomainConstant   ReferenceDomain = "constant"
	DomainCalculated ReferenceDomain = "calculated"
)

// UnresolvedReferenceError indicates a variable reference that could not be
// resolved in its domain.
type UnresolvedReferenceError struct {
	Domain ReferenceDomain
	Name   string
}

// Error returns the error message.
func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved %s variable %q", e.Domain, e.Name)
}

// SymbolConflictError indicates an attempt to register a symbol under a
// kind that conflicts with an existing registration. This is effectively a
// programming-time error in the rule or the embedding code.
type SymbolConflictError struct {
	Name         string
	ExistingKind SymbolKind
	NewKind      SymbolKind
}

// Error returns the error message.
func (e *SymbolConflictError) Error() string {
	if e.ExistingKind == e.NewKind {
		return fmt.Sprintf("symbol %q: cannot redefine built-in %s", e.Name, e.ExistingKind)
	}
	return fmt.Sprintf("symbol %q already registered as %s, cannot redefine as %s", e.Name, e.ExistingKind, e.NewKind)
}

// WrongKindUsageError indicates a function used as a variable or a
// variable used as a function.
type WrongKindUsageError struct {
	Name     string
	Expected SymbolKind
	Actual   SymbolKind
}

// Error returns the error message.
func (e *WrongKindUsageError) Error() string {
	return fmt.Sprintf("%q is a %s, used as a %s", e.Name, e.Actual, e.Expected)
}

// UnknownFunctionError indicates a call to a function name that is not a
// registered built-in.
type UnknownFunctionError struct {
	Name string
}

// Error returns the error message.
func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

// ArityError indicates a function call with the wrong number of arguments.
type ArityError struct {
	Function string
	Expected string
	Got      int
}

// Error returns the error message.
func (e *ArityError) Error() string {
	return fmt.Sprintf("function %q expects %s argument(s), got %d", e.Function, e.Expected, e.Got)
}

// TypeMismatchError indicates a value of the wrong type in a typed
// position: a function parameter, a comparison side, or an operation
// operand.
type TypeMismatchError struct {
	// Subject describes the position, e.g. `argument 2 of "round"` or
	// `left side of "$status eq ..."`.
	Subject  string
	Expected ValueType
	Actual   ValueType
}

// Error returns the error message.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for %s: expected %s, got %s", e.Subject, e.Expected, e.Actual)
}

// DivisionByZeroError indicates a divide operation whose operand resolved
// to zero.
type DivisionByZeroError struct {
	Target string
}

// Error returns the error message.
func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero on target %q", e.Target)
}

// TableLookupError indicates a bracket lookup failure: the table does not
// exist, or the value landed outside every bracket (below the floor or in
// a gap between non-contiguous brackets). A lookup never silently returns
// zero.
type TableLookupError struct {
	Table  string
	Value  float64
	Reason string
}

// Error returns the error message.
func (e *TableLookupError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("table lookup failed for %q", e.Table)
	}
	return fmt.Sprintf("table lookup failed for %q (value %v): %s", e.Table, e.Value, e.Reason)
}

// OperationError indicates an operation that could not be applied: an
// unknown operation kind or a numeric operation over non-numeric operands.
type OperationError struct {
	Operation string
	Target    string
	Message   string
	Cause     error
}

// Error returns the error message.
func (e *OperationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("operation %s on %q: %s: %v", e.Operation, e.Target, e.Message, e.Cause)
	}
	return fmt.Sprintf("operation %s on %q: %s", e.Operation, e.Target, e.Message)
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// DepthLimitError indicates that expression or condition nesting exceeded
// the configured recursion-depth guard.
type DepthLimitError struct {
	Limit int
}

// Error returns the error message.
func (e *DepthLimitError) Error() string {
	return fmt.Sprintf("nesting depth exceeds limit of %d", e.Limit)
}

// InputError indicates a missing or invalid taxpayer input.
type InputError struct {
	Name    string
	Message string
}

// Error returns the error message.
func (e *InputError) Error() string {
	return fmt.Sprintf("input %q: %s", e.Name, e.Message)
}

// RuleViolationError indicates a rule-author validation assertion failed
// for the supplied inputs.
type RuleViolationError struct {
	Message   string
	Condition string
}

// Error returns the error message.
func (e *RuleViolationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("validation condition failed: %s", e.Condition)
}

// RuleEvaluationError wraps any evaluation failure with the originating
// rule and flow step.
type RuleEvaluationError struct {
	Rule  string
	Step  string
	Cause error
}

// Error returns the error message.
func (e *RuleEvaluationError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("rule %q step %q: %v", e.Rule, e.Step, e.Cause)
	}
	return fmt.Sprintf("rule %q: %v", e.Rule, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RuleEvaluationError) Unwrap() error {
	return e.Cause
}
