package metrics

import (
	"errors"

	"github.com/nedpals/opentaxjs/pkg/engine"
)

// ErrorKind maps an evaluation error to its metric label. Unrecognized
// errors are labelled "other".
func ErrorKind(err error) string {
	var (
		inputErr      *engine.InputError
		violation     *engine.RuleViolationError
		lookupErr     *engine.TableLookupError
		divzero       *engine.DivisionByZeroError
		unresolved    *engine.UnresolvedReferenceError
		mismatch      *engine.TypeMismatchError
		conflict      *engine.SymbolConflictError
		wrongKind     *engine.WrongKindUsageError
		unknownFn     *engine.UnknownFunctionError
		arity         *engine.ArityError
		depth         *engine.DepthLimitError
		operationFail *engine.OperationError
	)

	switch {
	case errors.As(err, &inputErr):
		return "input"
	case errors.As(err, &violation):
		return "rule_violation"
	case errors.As(err, &lookupErr):
		return "table_lookup"
	case errors.As(err, &divzero):
		return "division_by_zero"
	case errors.As(err, &unresolved):
		return "unresolved_reference"
	case errors.As(err, &mismatch):
		return "type_mismatch"
	case errors.As(err, &conflict):
		return "symbol_conflict"
	case errors.As(err, &wrongKind):
		return "wrong_kind_usage"
	case errors.As(err, &unknownFn):
		return "unknown_function"
	case errors.As(err, &arity):
		return "arity"
	case errors.As(err, &depth):
		return "depth_limit"
	case errors.As(err, &operationFail):
		return "operation"
	default:
		return "other"
	}
}
