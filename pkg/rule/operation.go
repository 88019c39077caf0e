package rule

import (
	"encoding/json"
	"fmt"
)

// OperationType identifies one of the fixed operation kinds.
type OperationType string

const (
	// OperationSet overwrites the target with any scalar value.
	OperationSet OperationType = "set"

	// OperationAdd adds a numeric operand to the target.
	OperationAdd OperationType = "add"

	// OperationSubtract subtracts a numeric operand from the target.
	// The wire name is "deduct"; "subtract" is accepted as an alias.
	OperationSubtract OperationType = "subtract"

	// OperationMultiply multiplies the target by a numeric operand.
	OperationMultiply OperationType = "multiply"

	// OperationDivide divides the target by a numeric operand.
	OperationDivide OperationType = "divide"

	// OperationMin replaces the target with the smaller of target and operand.
	OperationMin OperationType = "min"

	// OperationMax replaces the target with the larger of target and operand.
	OperationMax OperationType = "max"

	// OperationLookup resolves the operand against a bracket table and
	// stores the computed amount in the target.
	OperationLookup OperationType = "lookup"
)

// KnownOperationTypes lists every operation kind the engine dispatches on.
func KnownOperationTypes() []OperationType {
	return []OperationType{
		OperationSet,
		OperationAdd,
		OperationSubtract,
		OperationMultiply,
		OperationDivide,
		OperationMin,
		OperationMax,
		OperationLookup,
	}
}

// Operation is one atomic state transition over the calculation context.
type Operation struct {
	// Type is the operation kind.
	Type OperationType

	// Target is the calculated variable the operation assigns.
	Target string

	// Value is the operand: a literal JSON number or boolean, or an
	// expression string resolved at execution time.
	Value *Operand

	// Table names the bracket table for lookup operations.
	Table string
}

// operationJSON is the wire form of an operation.
type operationJSON struct {
	Type   string   `json:"type"`
	Target string   `json:"target"`
	Value  *Operand `json:"value"`
	Table  string   `json:"table,omitempty"`
}

// UnmarshalJSON decodes an operation, normalizing the "deduct" wire alias
// to OperationSubtract. Unknown types are kept verbatim so the validator
// can report them with their original spelling.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var wire operationJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	typ := OperationType(wire.Type)
	if wire.Type == "deduct" {
		typ = OperationSubtract
	}

	o.Type = typ
	o.Target = wire.Target
	o.Value = wire.Value
	o.Table = wire.Table
	return nil
}

// MarshalJSON encodes the operation using "deduct" as the wire name for
// subtraction, matching the document format.
func (o *Operation) MarshalJSON() ([]byte, error) {
	typ := string(o.Type)
	if o.Type == OperationSubtract {
		typ = "deduct"
	}
	return json.Marshal(operationJSON{
		Type:   typ,
		Target: o.Target,
		Value:  o.Value,
		Table:  o.Table,
	})
}

// String returns a compact description for logs and error messages.
func (o *Operation) String() string {
	if o.Type == OperationLookup {
		return fmt.Sprintf("%s(%s, table=%s)", o.Type, o.Target, o.Table)
	}
	return fmt.Sprintf("%s(%s)", o.Type, o.Target)
}

// Operand is a value position in an operation or comparison: either a
// literal JSON number or boolean, or a string holding expression source.
// Strings are always expression source in operation positions; a quoted
// string literal is written as "'SINGLE'".
type Operand struct {
	// Raw is float64, bool, or string (expression source).
	Raw interface{}
}

// UnmarshalJSON decodes the operand, rejecting arrays, objects, and null.
func (o *Operand) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.(type) {
	case float64, bool, string:
		o.Raw = raw
		return nil
	default:
		return fmt.Errorf("operand must be a number, boolean, or expression string, got %T", raw)
	}
}

// MarshalJSON encodes the raw operand value.
func (o *Operand) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Raw)
}

// String returns the operand's source form.
func (o *Operand) String() string {
	return fmt.Sprintf("%v", o.Raw)
}
