package engine

import (
	"fmt"

	"github.com/nedpals/opentaxjs/pkg/expr"
	"github.com/nedpals/opentaxjs/pkg/rule"
)

// ConditionEvaluator decides whether a rule condition holds against a
// Context. The right side of a comparison is literal-first: a string
// operand is only resolved as an expression when it is $-prefixed or uses
// call syntax, so a bare word like MARRIED stays a string literal even
// when a calculated variable of the same name exists.
type ConditionEvaluator struct {
	evaluator *Evaluator
	maxDepth  int
}

// NewConditionEvaluator creates a condition evaluator sharing an
// expression evaluator.
func NewConditionEvaluator(evaluator *Evaluator, maxDepth int) *ConditionEvaluator {
	return &ConditionEvaluator{evaluator: evaluator, maxDepth: maxDepth}
}

// Evaluate reports whether the condition holds.
func (ce *ConditionEvaluator) Evaluate(ctx *Context, cond *rule.Condition) (bool, error) {
	return ce.eval(ctx, cond, 0)
}

func (ce *ConditionEvaluator) eval(ctx *Context, cond *rule.Condition, depth int) (bool, error) {
	if depth > ce.maxDepth {
		return false, &DepthLimitError{Limit: ce.maxDepth}
	}

	switch cond.Type {
	case rule.ConditionComparison:
		return ce.evalComparison(ctx, cond)
	case rule.ConditionAnd:
		for _, child := range cond.Children {
			ok, err := ce.eval(ctx, child, depth+1)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case rule.ConditionOr:
		for _, child := range cond.Children {
			ok, err := ce.eval(ctx, child, depth+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case rule.ConditionNot:
		ok, err := ce.eval(ctx, cond.Child, depth+1)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, fmt.Errorf("unsupported condition type %q", cond.Type)
	}
}

func (ce *ConditionEvaluator) evalComparison(ctx *Context, cond *rule.Condition) (bool, error) {
	left, err := ce.evaluator.EvaluateSource(ctx, cond.Subject)
	if err != nil {
		return false, err
	}
	right, err := ce.resolveOperand(ctx, cond.Value)
	if err != nil {
		return false, err
	}

	if cond.Op.IsOrdering() {
		if left.Type != TypeNumber {
			return false, &TypeMismatchError{
				Subject:  fmt.Sprintf("left side of %q", cond.Subject),
				Expected: TypeNumber,
				Actual:   left.Type,
			}
		}
		if right.Type != TypeNumber {
			return false, &TypeMismatchError{
				Subject:  fmt.Sprintf("right side of %q", cond.Subject),
				Expected: TypeNumber,
				Actual:   right.Type,
			}
		}
		switch cond.Op {
		case rule.OpGreaterThan:
			return left.Num > right.Num, nil
		case rule.OpLessThan:
			return left.Num < right.Num, nil
		case rule.OpGreaterOrEqual:
			return left.Num >= right.Num, nil
		case rule.OpLessOrEqual:
			return left.Num <= right.Num, nil
		}
	}

	if left.Type != right.Type {
		return false, &TypeMismatchError{
			Subject:  fmt.Sprintf("comparison against %q", cond.Subject),
			Expected: left.Type,
			Actual:   right.Type,
		}
	}
	switch cond.Op {
	case rule.OpEqual:
		return left.Equal(right), nil
	case rule.OpNotEqual:
		return !left.Equal(right), nil
	}
	return false, fmt.Errorf("unsupported comparison operator %q", cond.Op)
}

// resolveOperand turns a comparison operand into a Value. Only strings
// that look like references are sent through the expression evaluator.
func (ce *ConditionEvaluator) resolveOperand(ctx *Context, raw interface{}) (Value, error) {
	s, ok := raw.(string)
	if ok && expr.IsReference(s) {
		return ce.evaluator.EvaluateSource(ctx, s)
	}
	return FromInterface(raw)
}
