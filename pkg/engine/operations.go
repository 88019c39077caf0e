package engine

import (
	"fmt"
	"math"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

// OperationExecutor applies flow operations to a Context. Every operation
// assigns a calculated variable; arithmetic kinds read the target's
// current value first, which may come from a built-in variable such as
// the liability accumulator.
type OperationExecutor struct {
	evaluator *Evaluator
	registry  *SymbolRegistry
}

// NewOperationExecutor creates an operation executor.
func NewOperationExecutor(evaluator *Evaluator, registry *SymbolRegistry) *OperationExecutor {
	return &OperationExecutor{evaluator: evaluator, registry: registry}
}

// Apply executes a single operation against the context. The context is
// left unchanged when an error is returned.
func (oe *OperationExecutor) Apply(ctx *Context, op *rule.Operation) error {
	result, err := oe.compute(ctx, op)
	if err != nil {
		return &OperationError{
			Operation: string(op.Type),
			Target:    op.Target,
			Message:   "operation failed",
			Cause:     err,
		}
	}
	if err := oe.assign(ctx, op.Target, result); err != nil {
		return &OperationError{
			Operation: string(op.Type),
			Target:    op.Target,
			Message:   "cannot assign target",
			Cause:     err,
		}
	}
	return nil
}

func (oe *OperationExecutor) compute(ctx *Context, op *rule.Operation) (Value, error) {
	if op.Type == rule.OperationLookup {
		return oe.computeLookup(ctx, op)
	}

	operand, err := oe.resolveOperand(ctx, op)
	if err != nil {
		return Value{}, err
	}

	if op.Type == rule.OperationSet {
		return operand, nil
	}

	// Arithmetic kinds need a numeric operand and a numeric current value.
	if operand.Type != TypeNumber {
		return Value{}, &TypeMismatchError{
			Subject:  fmt.Sprintf("operand of %s on %q", op.Type, op.Target),
			Expected: TypeNumber,
			Actual:   operand.Type,
		}
	}
	current, err := oe.evaluator.resolveCalculated(ctx, op.Target)
	if err != nil {
		return Value{}, err
	}
	if current.Type != TypeNumber {
		return Value{}, &TypeMismatchError{
			Subject:  fmt.Sprintf("target %q of %s", op.Target, op.Type),
			Expected: TypeNumber,
			Actual:   current.Type,
		}
	}

	switch op.Type {
	case rule.OperationAdd:
		return Number(current.Num + operand.Num), nil
	case rule.OperationSubtract:
		return Number(current.Num - operand.Num), nil
	case rule.OperationMultiply:
		return Number(current.Num * operand.Num), nil
	case rule.OperationDivide:
		if operand.Num == 0 {
			return Value{}, &DivisionByZeroError{Target: op.Target}
		}
		return Number(current.Num / operand.Num), nil
	case rule.OperationMin:
		return Number(math.Min(current.Num, operand.Num)), nil
	case rule.OperationMax:
		return Number(math.Max(current.Num, operand.Num)), nil
	default:
		return Value{}, fmt.Errorf("unknown operation type %q", op.Type)
	}
}

func (oe *OperationExecutor) computeLookup(ctx *Context, op *rule.Operation) (Value, error) {
	operand, err := oe.resolveOperand(ctx, op)
	if err != nil {
		return Value{}, err
	}
	if operand.Type != TypeNumber {
		return Value{}, &TypeMismatchError{
			Subject:  fmt.Sprintf("operand of lookup on %q", op.Target),
			Expected: TypeNumber,
			Actual:   operand.Type,
		}
	}
	amount, err := lookupBracket(ctx, op.Table, operand.Num)
	if err != nil {
		return Value{}, err
	}
	return Number(amount), nil
}

// resolveOperand turns an operation operand into a Value. Unlike
// comparison operands, a string operand here is always expression source.
func (oe *OperationExecutor) resolveOperand(ctx *Context, op *rule.Operation) (Value, error) {
	if op.Value == nil {
		return Value{}, fmt.Errorf("operation %s on %q has no value", op.Type, op.Target)
	}
	switch raw := op.Value.Raw.(type) {
	case float64:
		return Number(raw), nil
	case bool:
		return Boolean(raw), nil
	case string:
		return oe.evaluator.EvaluateSource(ctx, raw)
	default:
		return Value{}, fmt.Errorf("unsupported operand %v (%T)", raw, raw)
	}
}

// assign records the target as a context calculated variable. Registering
// the symbol first rejects targets that collide with a built-in function.
func (oe *OperationExecutor) assign(ctx *Context, target string, value Value) error {
	err := oe.registry.Add(&Symbol{
		Name:     target,
		Kind:     SymbolCalculatedVariable,
		Origin:   OriginContext,
		TypeHint: value.Type,
	})
	if err != nil {
		return err
	}
	ctx.SetCalculated(target, value)
	return nil
}

// lookupBracket resolves a progressive bracket table against a value.
// The matched bracket yields base_tax plus the marginal rate applied to
// the excess over the bracket floor. A value below the first bracket or
// inside a gap between brackets is an error; lookups never silently
// produce zero.
func lookupBracket(ctx *Context, tableName string, value float64) (float64, error) {
	table, ok := ctx.Tables[tableName]
	if !ok {
		return 0, &TableLookupError{Table: tableName, Value: value, Reason: "table not found"}
	}
	if len(table.Brackets) == 0 {
		return 0, &TableLookupError{Table: tableName, Value: value, Reason: "table has no brackets"}
	}

	for _, b := range table.Brackets {
		if !b.Contains(value) {
			continue
		}
		capped := value
		if !b.Unbounded() {
			capped = math.Min(value, *b.Max)
		}
		return b.BaseTax + (capped-b.Min)*b.Rate, nil
	}

	reason := "value falls in a gap between brackets"
	if value < table.Brackets[0].Min {
		reason = "value is below the lowest bracket"
	}
	return 0, &TableLookupError{Table: tableName, Value: value, Reason: reason}
}
