package engine

import (
	"fmt"

	"github.com/nedpals/opentaxjs/pkg/expr"
)

// Evaluator computes the value of expression trees against a Context.
// Resolution is strictly domain-scoped: $name reads only Inputs, $$name
// reads Constants then built-in constants, and bare identifiers read
// Calculated then built-in variables. The same spelling never falls
// through to another domain.
type Evaluator struct {
	registry  *SymbolRegistry
	functions map[string]*Function
	maxDepth  int

	builtinVars      map[string]Value
	builtinConstants map[string]Value
}

// NewEvaluator creates an evaluator bound to a symbol registry.
func NewEvaluator(registry *SymbolRegistry, maxDepth int) *Evaluator {
	return &Evaluator{
		registry:         registry,
		functions:        builtinFunctions(),
		maxDepth:         maxDepth,
		builtinVars:      builtinVariables(),
		builtinConstants: builtinConstants(),
	}
}

// Functions exposes the built-in function table, keyed by name.
func (e *Evaluator) Functions() map[string]*Function {
	return e.functions
}

// Evaluate computes the value of a parsed expression.
func (e *Evaluator) Evaluate(ctx *Context, node expr.Node) (Value, error) {
	return e.eval(ctx, node, 0)
}

// EvaluateSource parses and evaluates an expression in source form.
func (e *Evaluator) EvaluateSource(ctx *Context, source string) (Value, error) {
	node, err := expr.Parse(source)
	if err != nil {
		return Value{}, err
	}
	return e.eval(ctx, node, 0)
}

func (e *Evaluator) eval(ctx *Context, node expr.Node, depth int) (Value, error) {
	if depth > e.maxDepth {
		return Value{}, &DepthLimitError{Limit: e.maxDepth}
	}

	switch n := node.(type) {
	case *expr.NumberLiteral:
		return Number(n.Value), nil
	case *expr.BooleanLiteral:
		return Boolean(n.Value), nil
	case *expr.StringLiteral:
		return StringValue(n.Value), nil
	case *expr.InputVariableRef:
		return e.resolveInput(ctx, n.Name)
	case *expr.ConstantRef:
		return e.resolveConstant(ctx, n.Name)
	case *expr.CalculatedRef:
		return e.resolveCalculated(ctx, n.Name)
	case *expr.Call:
		return e.evalCall(ctx, n, depth)
	default:
		return Value{}, fmt.Errorf("unsupported expression node %T", node)
	}
}

func (e *Evaluator) resolveInput(ctx *Context, name string) (Value, error) {
	if err := e.registry.ValidateUsage(name, SymbolInputVariable); err != nil {
		return Value{}, err
	}
	if v, ok := ctx.Inputs[name]; ok {
		return v, nil
	}
	return Value{}, &UnresolvedReferenceError{Domain: DomainInput, Name: name}
}

func (e *Evaluator) resolveConstant(ctx *Context, name string) (Value, error) {
	if err := e.registry.ValidateUsage(name, SymbolConstantVariable); err != nil {
		return Value{}, err
	}
	if v, ok := ctx.Constants[name]; ok {
		return v, nil
	}
	if v, ok := e.builtinConstants[name]; ok {
		return v, nil
	}
	return Value{}, &UnresolvedReferenceError{Domain: DomainConstant, Name: name}
}

func (e *Evaluator) resolveCalculated(ctx *Context, name string) (Value, error) {
	if err := e.registry.ValidateUsage(name, SymbolCalculatedVariable); err != nil {
		return Value{}, err
	}
	if v, ok := ctx.Calculated[name]; ok {
		return v, nil
	}
	if v, ok := e.builtinVars[name]; ok {
		return v, nil
	}
	return Value{}, &UnresolvedReferenceError{Domain: DomainCalculated, Name: name}
}

func (e *Evaluator) evalCall(ctx *Context, call *expr.Call, depth int) (Value, error) {
	if err := e.registry.ValidateUsage(call.Name, SymbolFunction); err != nil {
		return Value{}, err
	}
	fn, ok := e.functions[call.Name]
	if !ok {
		return Value{}, &UnknownFunctionError{Name: call.Name}
	}

	args := make([]Value, len(call.Args))
	for i, argNode := range call.Args {
		arg, err := e.eval(ctx, argNode, depth+1)
		if err != nil {
			return Value{}, err
		}
		args[i] = arg
	}
	if err := fn.checkArgs(args); err != nil {
		return Value{}, err
	}
	return fn.Impl(ctx, args)
}
