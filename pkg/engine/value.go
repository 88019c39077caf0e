package engine

import (
	"fmt"
	"strconv"
)

// ValueType identifies the scalar type of a Value.
type ValueType string

const (
	// TypeNumber is a 64-bit floating point number.
	TypeNumber ValueType = "number"

	// TypeBoolean is true or false.
	TypeBoolean ValueType = "boolean"

	// TypeString is a text value.
	TypeString ValueType = "string"
)

// Value is the tagged scalar union flowing through an evaluation.
// Arithmetic and ordering operators accept numbers only; equality accepts
// any two values of the same type. There is no implicit coercion.
type Value struct {
	// Type is the value's tag.
	Type ValueType

	// Num holds the value when Type is TypeNumber.
	Num float64

	// Bool holds the value when Type is TypeBoolean.
	Bool bool

	// Str holds the value when Type is TypeString.
	Str string
}

// Number constructs a number value.
func Number(v float64) Value {
	return Value{Type: TypeNumber, Num: v}
}

// Boolean constructs a boolean value.
func Boolean(v bool) Value {
	return Value{Type: TypeBoolean, Bool: v}
}

// StringValue constructs a string value.
func StringValue(v string) Value {
	return Value{Type: TypeString, Str: v}
}

// IsNumber reports whether the value is a number.
func (v Value) IsNumber() bool {
	return v.Type == TypeNumber
}

// Equal reports whether two values have the same type and content.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case TypeNumber:
		return v.Num == other.Num
	case TypeBoolean:
		return v.Bool == other.Bool
	case TypeString:
		return v.Str == other.Str
	}
	return false
}

// String returns the value's display form.
func (v Value) String() string {
	switch v.Type {
	case TypeNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case TypeBoolean:
		return strconv.FormatBool(v.Bool)
	case TypeString:
		return v.Str
	default:
		return fmt.Sprintf("<%s>", v.Type)
	}
}

// Interface returns the value as a plain Go scalar for JSON encoding.
func (v Value) Interface() interface{} {
	switch v.Type {
	case TypeNumber:
		return v.Num
	case TypeBoolean:
		return v.Bool
	case TypeString:
		return v.Str
	default:
		return nil
	}
}

// FromInterface converts a decoded JSON scalar into a Value.
func FromInterface(raw interface{}) (Value, error) {
	switch val := raw.(type) {
	case float64:
		return Number(val), nil
	case int:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case bool:
		return Boolean(val), nil
	case string:
		return StringValue(val), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T (want number, boolean, or string)", raw)
	}
}

// ZeroValue returns the default for a declared type: numbers default to 0,
// booleans to false, strings to "". Outputs never assigned during flow
// execution take these defaults so results stay total.
func ZeroValue(typ ValueType) Value {
	switch typ {
	case TypeBoolean:
		return Boolean(false)
	case TypeString:
		return StringValue("")
	default:
		return Number(0)
	}
}
