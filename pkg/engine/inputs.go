package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

// prepareInputs checks the caller-provided inputs against the rule's
// declarations and fills the context's input map: declared types are
// enforced, defaults substituted, enum and range bounds applied, and
// required inputs verified. Providing an input the rule never declares is
// an error, since silently ignored data hides caller mistakes.
func (e *Engine) prepareInputs(ctx *Context, r *rule.Rule, provided map[string]interface{}) error {
	for name := range provided {
		if _, ok := r.Inputs[name]; !ok {
			return &InputError{Name: name, Message: "not declared by the rule"}
		}
	}

	// Coerce and bind everything present first, so conditional-required
	// guards can reference sibling inputs.
	missing := make([]string, 0)
	for name, spec := range r.Inputs {
		raw, ok := provided[name]
		if !ok {
			if spec.Default != nil {
				raw = spec.Default
			} else {
				missing = append(missing, name)
				continue
			}
		}
		value, err := coerceInput(name, spec, raw)
		if err != nil {
			return err
		}
		ctx.Inputs[name] = value
	}

	// Judge unconditionally-declared inputs before When-guarded ones, so
	// guards can see the zero bindings of optional absent siblings.
	guarded := make([]string, 0, len(missing))
	for _, name := range missing {
		spec := r.Inputs[name]
		if spec.When != nil {
			guarded = append(guarded, name)
			continue
		}
		if spec.IsRequired() {
			return &InputError{Name: name, Message: "required input is missing"}
		}
		// Optional and absent: bind the type's zero so references still
		// resolve.
		ctx.Inputs[name] = ZeroValue(ValueType(spec.Type))
	}

	for _, name := range guarded {
		spec := r.Inputs[name]
		required, err := e.inputRequired(ctx, spec)
		if err != nil {
			return &InputError{Name: name, Message: err.Error()}
		}
		if required {
			return &InputError{Name: name, Message: "required input is missing"}
		}
		ctx.Inputs[name] = ZeroValue(ValueType(spec.Type))
	}
	return nil
}

// inputRequired decides whether an absent input must be present. A When
// guard that cannot be evaluated because its own references are missing
// makes the input required (fail-safe) rather than silently optional.
func (e *Engine) inputRequired(ctx *Context, spec *rule.InputSpec) (bool, error) {
	if spec.When != nil {
		ok, err := e.conditions.Evaluate(ctx, spec.When)
		if err != nil {
			var unresolved *UnresolvedReferenceError
			if errors.As(err, &unresolved) {
				return true, nil
			}
			return false, err
		}
		return ok, nil
	}
	return spec.IsRequired(), nil
}

// coerceInput validates a raw input value against its declaration.
func coerceInput(name string, spec *rule.InputSpec, raw interface{}) (Value, error) {
	value, err := FromInterface(raw)
	if err != nil {
		return Value{}, &InputError{Name: name, Message: err.Error()}
	}

	declared := ValueType(spec.Type)
	if spec.Type != "" && value.Type != declared {
		return Value{}, &InputError{
			Name:    name,
			Message: fmt.Sprintf("expected %s, got %s", declared, value.Type),
		}
	}

	if len(spec.Enum) > 0 {
		found := false
		for _, allowed := range spec.Enum {
			if value.Str == allowed {
				found = true
				break
			}
		}
		if !found {
			return Value{}, &InputError{
				Name:    name,
				Message: fmt.Sprintf("value %q is not one of [%s]", value.Str, strings.Join(spec.Enum, ", ")),
			}
		}
	}

	if value.Type == TypeNumber {
		if spec.Min != nil && value.Num < *spec.Min {
			return Value{}, &InputError{
				Name:    name,
				Message: fmt.Sprintf("value %v is below the minimum %v", value.Num, *spec.Min),
			}
		}
		if spec.Max != nil && value.Num > *spec.Max {
			return Value{}, &InputError{
				Name:    name,
				Message: fmt.Sprintf("value %v exceeds the maximum %v", value.Num, *spec.Max),
			}
		}
	}
	return value, nil
}
