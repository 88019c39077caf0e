package rule

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ConditionType identifies the shape of a condition node.
type ConditionType string

const (
	// ConditionComparison compares one resolved expression against a value.
	ConditionComparison ConditionType = "comparison"

	// ConditionAnd is true when every child condition is true.
	ConditionAnd ConditionType = "and"

	// ConditionOr is true when at least one child condition is true.
	ConditionOr ConditionType = "or"

	// ConditionNot negates one nested condition.
	ConditionNot ConditionType = "not"
)

// ComparisonOp is one of the six comparison operators.
type ComparisonOp string

const (
	OpEqual          ComparisonOp = "eq"
	OpNotEqual       ComparisonOp = "ne"
	OpGreaterThan    ComparisonOp = "gt"
	OpLessThan       ComparisonOp = "lt"
	OpGreaterOrEqual ComparisonOp = "gte"
	OpLessOrEqual    ComparisonOp = "lte"
)

// IsOrdering reports whether the operator requires numeric operands.
func (op ComparisonOp) IsOrdering() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return true
	}
	return false
}

func knownComparisonOp(op string) bool {
	switch ComparisonOp(op) {
	case OpEqual, OpNotEqual, OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return true
	}
	return false
}

// Condition is a boolean condition tree. The wire form is a JSON object
// with exactly one key:
//
//	{"$status": {"eq": "MARRIED"}}          comparison
//	{"and": [cond, cond, ...]}              conjunction
//	{"or": [cond, cond, ...]}               disjunction
//	{"not": cond}                           negation
//
// For comparisons, the key is an expression resolved through the expression
// evaluator and the operand value defaults to a literal. To compare against
// a variable or computed value, the operand must itself be an evaluable
// expression string ($-prefixed reference or function call).
type Condition struct {
	// Type is the node shape.
	Type ConditionType

	// Subject is the left-side expression source (comparisons only).
	Subject string

	// Op is the comparison operator (comparisons only).
	Op ComparisonOp

	// Value is the comparison operand: float64, bool, or string
	// (comparisons only).
	Value interface{}

	// Children holds the nested conditions of and/or nodes.
	Children []*Condition

	// Child holds the nested condition of a not node.
	Child *Condition
}

// IsLogical reports whether the node is an and/or/not combinator.
func (c *Condition) IsLogical() bool {
	return c.Type == ConditionAnd || c.Type == ConditionOr || c.Type == ConditionNot
}

// UnmarshalJSON decodes the single-key wire form described on Condition.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("condition must be an object: %w", err)
	}
	if len(raw) != 1 {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Errorf("condition must have exactly one key, got %d: %v", len(raw), keys)
	}

	for key, value := range raw {
		switch key {
		case "and", "or":
			var children []*Condition
			if err := json.Unmarshal(value, &children); err != nil {
				return fmt.Errorf("%q condition requires an array of conditions: %w", key, err)
			}
			if len(children) == 0 {
				return fmt.Errorf("%q condition requires at least one child", key)
			}
			c.Type = ConditionType(key)
			c.Children = children

		case "not":
			var child Condition
			if err := json.Unmarshal(value, &child); err != nil {
				return fmt.Errorf("\"not\" condition requires a nested condition: %w", err)
			}
			c.Type = ConditionNot
			c.Child = &child

		default:
			// Comparison: key is the subject expression, value maps exactly
			// one operator to the comparison operand.
			var ops map[string]interface{}
			if err := json.Unmarshal(value, &ops); err != nil {
				return fmt.Errorf("comparison on %q requires an operator object: %w", key, err)
			}
			if len(ops) != 1 {
				return fmt.Errorf("comparison on %q must have exactly one operator, got %d", key, len(ops))
			}
			for op, operand := range ops {
				if !knownComparisonOp(op) {
					return fmt.Errorf("unknown comparison operator %q on %q", op, key)
				}
				switch operand.(type) {
				case float64, bool, string:
				default:
					return fmt.Errorf("comparison operand on %q must be a number, boolean, or string, got %T", key, operand)
				}
				c.Type = ConditionComparison
				c.Subject = key
				c.Op = ComparisonOp(op)
				c.Value = operand
			}
		}
	}
	return nil
}

// MarshalJSON encodes the condition back to its single-key wire form.
func (c *Condition) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case ConditionAnd, ConditionOr:
		return json.Marshal(map[string][]*Condition{string(c.Type): c.Children})
	case ConditionNot:
		return json.Marshal(map[string]*Condition{"not": c.Child})
	case ConditionComparison:
		return json.Marshal(map[string]map[string]interface{}{
			c.Subject: {string(c.Op): c.Value},
		})
	default:
		return nil, fmt.Errorf("cannot encode condition of type %q", c.Type)
	}
}

// String returns a compact description for logs and error messages.
func (c *Condition) String() string {
	switch c.Type {
	case ConditionComparison:
		return fmt.Sprintf("%s %s %v", c.Subject, c.Op, c.Value)
	case ConditionAnd, ConditionOr:
		return fmt.Sprintf("%s(%d conditions)", c.Type, len(c.Children))
	case ConditionNot:
		return fmt.Sprintf("not(%s)", c.Child)
	default:
		return string(c.Type)
	}
}
