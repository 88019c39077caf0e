// Package expr implements the expression language used inside tax rule
// documents. Expressions are single atomic terms: a variable reference, a
// function call, or a literal.
//
// The reference grammar is fixed at the wire level:
//
//	$name       input variable (taxpayer-supplied)
//	$$name      constant (law-defined)
//	name        calculated variable
//	name(a, b)  function call
//	42, 0.25    number literal
//	true, false boolean literal
//	'MARRIED'   string literal (single-quoted, escapes: \\ \' \n \t \r)
//
// The parser is purely syntactic. It accepts any identifier matching
// [A-Za-z][A-Za-z0-9_]*, including unknown function and variable names;
// resolvability is judged by the evaluator, and naming conventions are
// enforced by the rule validator.
package expr
