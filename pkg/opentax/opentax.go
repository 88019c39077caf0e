// Package opentax is the public entry point for loading and evaluating
// tax rules. It wires the rule parser, the validator, and the engine
// behind a small convenience API; callers with more involved needs can
// use the subpackages directly.
package opentax

import (
	"context"

	"github.com/nedpals/opentaxjs/pkg/engine"
	"github.com/nedpals/opentaxjs/pkg/rule"
	"github.com/nedpals/opentaxjs/pkg/rule/validator"
)

// LoadRule is a convenience function that parses and validates a rule
// document from JSON bytes. It returns the parsed rule if successful, or
// an error if parsing fails or validation finds error-severity issues.
func LoadRule(data []byte) (*rule.Rule, error) {
	r, err := rule.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadRuleFile is a convenience function that parses and validates a rule
// document from a JSON file.
func LoadRuleFile(path string) (*rule.Rule, error) {
	r, err := rule.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Parse parses a rule document without validation.
// Use this if you want to inspect the document before validation.
func Parse(data []byte) (*rule.Rule, error) {
	return rule.Parse(data)
}

// Validate validates a parsed rule. Warnings are tolerated; issues of
// error severity are returned as an error.
func Validate(r *rule.Rule) error {
	v := validator.New()
	issues := v.Validate(r)
	if issues.HasErrors() {
		return issues.Errors()
	}
	return nil
}

// Evaluate runs a rule against the provided inputs with a default-config
// engine. For repeated evaluations construct an engine.Engine once and
// reuse it.
func Evaluate(ctx context.Context, r *rule.Rule, inputs map[string]interface{}) (*engine.Result, error) {
	e, err := engine.New(nil, nil)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(ctx, r, inputs)
}
