package engine

import (
	"fmt"
	"math"
)

// Function describes a built-in function: its parameter schema and its
// implementation. All built-ins are pure and return a scalar Value.
//
// Parameter schemas come in exactly two shapes: fixed arity with exact
// positional types (of which trailing parameters may be optional), and a
// single variadic shape accepting zero or more homogeneous arguments.
type Function struct {
	// Name is the callable identifier.
	Name string

	// Params are the positional parameter types for fixed-arity functions.
	Params []ValueType

	// Optional is the number of trailing Params that may be omitted.
	Optional int

	// Variadic marks the single variadic schema shape: zero or more
	// arguments, all of VariadicType. Params must be empty.
	Variadic bool

	// VariadicType is the homogeneous argument type when Variadic.
	VariadicType ValueType

	// Impl computes the result. Arguments are already validated against
	// the schema. The context gives lookup access to the table set.
	Impl func(ctx *Context, args []Value) (Value, error)
}

// checkArgs validates an evaluated argument list against the schema.
func (f *Function) checkArgs(args []Value) error {
	if f.Variadic {
		for i, arg := range args {
			if arg.Type != f.VariadicType {
				return &TypeMismatchError{
					Subject:  fmt.Sprintf("argument %d of %q", i+1, f.Name),
					Expected: f.VariadicType,
					Actual:   arg.Type,
				}
			}
		}
		return nil
	}

	min := len(f.Params) - f.Optional
	if len(args) < min || len(args) > len(f.Params) {
		expected := fmt.Sprintf("%d", len(f.Params))
		if f.Optional > 0 {
			expected = fmt.Sprintf("%d to %d", min, len(f.Params))
		}
		return &ArityError{Function: f.Name, Expected: expected, Got: len(args)}
	}
	for i, arg := range args {
		if arg.Type != f.Params[i] {
			return &TypeMismatchError{
				Subject:  fmt.Sprintf("argument %d of %q", i+1, f.Name),
				Expected: f.Params[i],
				Actual:   arg.Type,
			}
		}
	}
	return nil
}

// builtinFunctions constructs the built-in function library.
func builtinFunctions() map[string]*Function {
	fns := []*Function{
		{
			Name:   "diff",
			Params: []ValueType{TypeNumber, TypeNumber},
			Impl: func(_ *Context, args []Value) (Value, error) {
				return Number(math.Abs(args[0].Num - args[1].Num)), nil
			},
		},
		{
			Name:         "sum",
			Variadic:     true,
			VariadicType: TypeNumber,
			Impl: func(_ *Context, args []Value) (Value, error) {
				total := 0.0
				for _, arg := range args {
					total += arg.Num
				}
				return Number(total), nil
			},
		},
		{
			Name:         "max",
			Variadic:     true,
			VariadicType: TypeNumber,
			Impl: func(_ *Context, args []Value) (Value, error) {
				// Empty argument list is a defined zero, not an error.
				if len(args) == 0 {
					return Number(0), nil
				}
				result := args[0].Num
				for _, arg := range args[1:] {
					result = math.Max(result, arg.Num)
				}
				return Number(result), nil
			},
		},
		{
			Name:         "min",
			Variadic:     true,
			VariadicType: TypeNumber,
			Impl: func(_ *Context, args []Value) (Value, error) {
				if len(args) == 0 {
					return Number(0), nil
				}
				result := args[0].Num
				for _, arg := range args[1:] {
					result = math.Min(result, arg.Num)
				}
				return Number(result), nil
			},
		},
		{
			Name:     "round",
			Params:   []ValueType{TypeNumber, TypeNumber},
			Optional: 1,
			Impl: func(_ *Context, args []Value) (Value, error) {
				decimals := 0.0
				if len(args) == 2 {
					decimals = args[1].Num
				}
				if decimals != math.Trunc(decimals) {
					return Value{}, &TypeMismatchError{
						Subject:  `argument 2 of "round"`,
						Expected: "whole number",
						Actual:   TypeNumber,
					}
				}
				// Negative decimals round to the corresponding power of
				// ten: round(1234, -2) == 1200.
				factor := math.Pow(10, decimals)
				return Number(math.Round(args[0].Num*factor) / factor), nil
			},
		},
		{
			Name:   "lookup",
			Params: []ValueType{TypeString, TypeNumber},
			Impl: func(ctx *Context, args []Value) (Value, error) {
				amount, err := lookupBracket(ctx, args[0].Str, args[1].Num)
				if err != nil {
					return Value{}, err
				}
				return Number(amount), nil
			},
		},
	}

	m := make(map[string]*Function, len(fns))
	for _, f := range fns {
		m[f.Name] = f
	}
	return m
}

// builtinVariables are predefined calculated variables available before
// any operation assigns them. The liability accumulator starts at zero so
// rules may add to it without an explicit set.
func builtinVariables() map[string]Value {
	return map[string]Value{
		"liability": Number(0),
	}
}

// builtinConstants are predefined $$-domain values. The set is currently
// empty; the resolution path exists so rules shadowing a future built-in
// constant keep working.
func builtinConstants() map[string]Value {
	return map[string]Value{}
}

// registerBuiltins installs the built-in vocabulary into a fresh registry.
func registerBuiltins(registry *SymbolRegistry, functions map[string]*Function) error {
	for name := range functions {
		if err := registry.Add(&Symbol{Name: name, Kind: SymbolFunction, Origin: OriginBuiltin}); err != nil {
			return err
		}
	}
	for name := range builtinVariables() {
		if err := registry.Add(&Symbol{Name: name, Kind: SymbolCalculatedVariable, Origin: OriginBuiltin, TypeHint: TypeNumber}); err != nil {
			return err
		}
	}
	for name := range builtinConstants() {
		if err := registry.Add(&Symbol{Name: name, Kind: SymbolConstantVariable, Origin: OriginBuiltin}); err != nil {
			return err
		}
	}
	return nil
}
