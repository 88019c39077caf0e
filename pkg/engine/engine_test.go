package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

const flatTaxRule = `{
	"$version": "1.0",
	"name": "flat_income_tax",
	"jurisdiction": "PH",
	"type": "income_tax",
	"constants": {
		"exemption": 250000
	},
	"tables": {
		"flat_table": {
			"brackets": [
				{"min": 0, "max": null, "rate": 0.25, "base_tax": 0}
			]
		}
	},
	"inputs": {
		"gross_income": {"type": "number", "min": 0}
	},
	"outputs": {
		"taxable_income": {"type": "number"}
	},
	"flow": [
		{
			"name": "compute taxable income",
			"operations": [
				{"type": "set", "target": "taxable_income", "value": "$gross_income"},
				{"type": "deduct", "target": "taxable_income", "value": "$$exemption"},
				{"type": "max", "target": "taxable_income", "value": 0}
			]
		},
		{
			"name": "compute liability",
			"operations": [
				{"type": "lookup", "target": "liability", "value": "taxable_income", "table": "flat_table"}
			]
		}
	]
}`

func newTestEngine(t *testing.T, config *Config) *Engine {
	t.Helper()
	e, err := New(config, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func parseRule(t *testing.T, src string) *rule.Rule {
	t.Helper()
	r, err := rule.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse rule: %v", err)
	}
	return r
}

func TestEngineEndToEnd(t *testing.T) {
	e := newTestEngine(t, nil)
	r := parseRule(t, flatTaxRule)

	result, err := e.Evaluate(context.Background(), r, map[string]interface{}{
		"gross_income": 500000.0,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if got := result.Outputs["taxable_income"]; got.Num != 250000 {
		t.Errorf("taxable_income = %v, want 250000", got.Num)
	}
	if result.Liability != 62500 {
		t.Errorf("liability = %v, want 62500", result.Liability)
	}
}

func TestEngineRepeatedEvaluations(t *testing.T) {
	e := newTestEngine(t, nil)
	r := parseRule(t, flatTaxRule)

	// State from one evaluation must not leak into the next.
	for _, income := range []float64{500000, 250000, 0} {
		result, err := e.Evaluate(context.Background(), r, map[string]interface{}{
			"gross_income": income,
		})
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", income, err)
		}
		want := (income - 250000) * 0.25
		if want < 0 {
			want = 0
		}
		if result.Liability != want {
			t.Errorf("liability for income %v = %v, want %v", income, result.Liability, want)
		}
	}
}

func TestEngineSameNameAcrossDomains(t *testing.T) {
	// One name may be a constant, an input, and a calculated variable at
	// once; the reference sigils keep the three apart.
	const ruleSrc = `{
		"$version": "1.0",
		"name": "domain_shared_names",
		"jurisdiction": "PH",
		"type": "income_tax",
		"constants": {"income": 250000},
		"inputs": {"income": {"type": "number"}},
		"outputs": {"income": {"type": "number"}, "combined": {"type": "number"}},
		"flow": [
			{
				"name": "reuse the name in every domain",
				"operations": [
					{"type": "set", "target": "income", "value": "$income"},
					{"type": "set", "target": "combined", "value": "sum($income, $$income, income)"}
				]
			}
		]
	}`

	e := newTestEngine(t, nil)
	r := parseRule(t, ruleSrc)

	result, err := e.Evaluate(context.Background(), r, map[string]interface{}{
		"income": 500000.0,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if got := result.Outputs["income"]; got.Num != 500000 {
		t.Errorf("income output = %v, want the input's 500000", got.Num)
	}
	if got := result.Outputs["combined"]; got.Num != 1250000 {
		t.Errorf("combined = %v, want 1250000", got.Num)
	}
}

func TestEngineInputHandling(t *testing.T) {
	const ruleSrc = `{
		"$version": "1.0",
		"name": "input_checks",
		"jurisdiction": "PH",
		"type": "income_tax",
		"inputs": {
			"gross_income": {"type": "number", "min": 0},
			"filing_status": {"type": "string", "enum": ["SINGLE", "MARRIED"], "default": "SINGLE"},
			"spouse_income": {"type": "number", "when": {"$filing_status": {"eq": "MARRIED"}}}
		},
		"outputs": {},
		"flow": [
			{"name": "noop", "operations": [{"type": "set", "target": "done", "value": true}]}
		]
	}`

	tests := []struct {
		name    string
		inputs  map[string]interface{}
		wantErr string
	}{
		{
			name:   "all provided",
			inputs: map[string]interface{}{"gross_income": 100.0, "filing_status": "MARRIED", "spouse_income": 50.0},
		},
		{
			name:   "default substitutes",
			inputs: map[string]interface{}{"gross_income": 100.0},
		},
		{
			name:    "required missing",
			inputs:  map[string]interface{}{},
			wantErr: "gross_income",
		},
		{
			name:    "undeclared input rejected",
			inputs:  map[string]interface{}{"gross_income": 100.0, "mystery": 1.0},
			wantErr: "mystery",
		},
		{
			name:    "wrong type",
			inputs:  map[string]interface{}{"gross_income": "lots"},
			wantErr: "gross_income",
		},
		{
			name:    "below minimum",
			inputs:  map[string]interface{}{"gross_income": -5.0},
			wantErr: "gross_income",
		},
		{
			name:    "enum violation",
			inputs:  map[string]interface{}{"gross_income": 100.0, "filing_status": "WIDOWED"},
			wantErr: "filing_status",
		},
		{
			name:    "conditionally required missing",
			inputs:  map[string]interface{}{"gross_income": 100.0, "filing_status": "MARRIED"},
			wantErr: "spouse_income",
		},
		{
			name:   "conditionally not required",
			inputs: map[string]interface{}{"gross_income": 100.0, "filing_status": "SINGLE"},
		},
	}

	e := newTestEngine(t, nil)
	r := parseRule(t, ruleSrc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(context.Background(), r, tt.inputs)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Evaluate: %v", err)
				}
				return
			}
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("err = %v, want InputError for %q", err, tt.wantErr)
			}
			if inputErr.Name != tt.wantErr {
				t.Errorf("InputError.Name = %q, want %q", inputErr.Name, tt.wantErr)
			}
		})
	}
}

func TestEngineConditionallyRequiredFailSafe(t *testing.T) {
	// The guard for spouse_income references an input that is itself
	// missing, so the guard cannot be evaluated and the input is treated
	// as required.
	const ruleSrc = `{
		"$version": "1.0",
		"name": "fail_safe",
		"jurisdiction": "PH",
		"type": "income_tax",
		"inputs": {
			"filing_status": {"type": "string", "required": false},
			"spouse_income": {"type": "number", "when": {"$filing_status": {"eq": "MARRIED"}}}
		},
		"outputs": {},
		"flow": [
			{"name": "noop", "operations": [{"type": "set", "target": "done", "value": true}]}
		]
	}`

	e := newTestEngine(t, &Config{MaxDepth: 32, SkipValidation: true})
	r := parseRule(t, ruleSrc)

	// filing_status is optional-and-absent, so it binds its zero value ""
	// and the guard evaluates to false: spouse_income is not required.
	if _, err := e.Evaluate(context.Background(), r, map[string]interface{}{}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
}

func TestEngineUnresolvableGuardMeansRequired(t *testing.T) {
	// The guard references a name no declaration can bind, so it cannot
	// be evaluated and the guarded input is treated as required.
	const ruleSrc = `{
		"$version": "1.0",
		"name": "unresolvable_guard",
		"jurisdiction": "PH",
		"type": "income_tax",
		"inputs": {
			"spouse_income": {"type": "number", "when": {"$paperwork": {"eq": true}}}
		},
		"outputs": {},
		"flow": [
			{"name": "noop", "operations": [{"type": "set", "target": "done", "value": true}]}
		]
	}`

	e := newTestEngine(t, &Config{MaxDepth: 32, SkipValidation: true})
	r := parseRule(t, ruleSrc)

	_, err := e.Evaluate(context.Background(), r, map[string]interface{}{})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("err = %v, want InputError", err)
	}
	if inputErr.Name != "spouse_income" {
		t.Errorf("InputError.Name = %q, want %q", inputErr.Name, "spouse_income")
	}
}

func TestEngineValidationRules(t *testing.T) {
	const ruleSrc = `{
		"$version": "1.0",
		"name": "asserted",
		"jurisdiction": "PH",
		"type": "income_tax",
		"inputs": {
			"gross_income": {"type": "number"}
		},
		"outputs": {},
		"validate": [
			{"when": {"$gross_income": {"gte": 0}}, "message": "gross income cannot be negative"}
		],
		"flow": [
			{"name": "noop", "operations": [{"type": "set", "target": "done", "value": true}]}
		]
	}`

	e := newTestEngine(t, nil)
	r := parseRule(t, ruleSrc)

	if _, err := e.Evaluate(context.Background(), r, map[string]interface{}{"gross_income": 100.0}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	_, err := e.Evaluate(context.Background(), r, map[string]interface{}{"gross_income": -1.0})
	var violation *RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("err = %v, want RuleViolationError", err)
	}
	if violation.Message != "gross income cannot be negative" {
		t.Errorf("Message = %q", violation.Message)
	}
}

func TestEngineCaseSelection(t *testing.T) {
	const ruleSrc = `{
		"$version": "1.0",
		"name": "branching",
		"jurisdiction": "PH",
		"type": "income_tax",
		"inputs": {
			"income": {"type": "number"}
		},
		"outputs": {
			"band": {"type": "string"}
		},
		"flow": [
			{
				"name": "classify",
				"cases": [
					{"when": {"$income": {"gte": 1000}}, "operations": [{"type": "set", "target": "band", "value": "'high'"}]},
					{"when": {"$income": {"gte": 100}}, "operations": [{"type": "set", "target": "band", "value": "'mid'"}]},
					{"operations": [{"type": "set", "target": "band", "value": "'low'"}]}
				]
			}
		]
	}`

	tests := []struct {
		income float64
		want   string
	}{
		{5000, "high"},
		{1000, "high"},
		{500, "mid"},
		{50, "low"},
	}

	e := newTestEngine(t, nil)
	r := parseRule(t, ruleSrc)
	for _, tt := range tests {
		result, err := e.Evaluate(context.Background(), r, map[string]interface{}{"income": tt.income})
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", tt.income, err)
		}
		if got := result.Outputs["band"]; got.Str != tt.want {
			t.Errorf("band for income %v = %q, want %q", tt.income, got.Str, tt.want)
		}
	}
}

func TestEngineNoMatchingCaseIsNoop(t *testing.T) {
	const ruleSrc = `{
		"$version": "1.0",
		"name": "no_default",
		"jurisdiction": "PH",
		"type": "income_tax",
		"inputs": {
			"income": {"type": "number"}
		},
		"outputs": {
			"bonus": {"type": "number"}
		},
		"flow": [
			{
				"name": "maybe bonus",
				"cases": [
					{"when": {"$income": {"gt": 1000000}}, "operations": [{"type": "set", "target": "bonus", "value": 1}]}
				]
			}
		]
	}`

	e := newTestEngine(t, nil)
	r := parseRule(t, ruleSrc)

	result, err := e.Evaluate(context.Background(), r, map[string]interface{}{"income": 10.0})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// bonus was never assigned; the declared output defaults to zero.
	if got := result.Outputs["bonus"]; got.Num != 0 {
		t.Errorf("bonus = %v, want 0", got.Num)
	}
}

func TestEngineRejectsInvalidRule(t *testing.T) {
	// A step with both operations and cases fails structural validation.
	const ruleSrc = `{
		"$version": "1.0",
		"name": "mixed_step",
		"jurisdiction": "PH",
		"type": "income_tax",
		"inputs": {},
		"outputs": {},
		"flow": [
			{
				"name": "bad",
				"operations": [{"type": "set", "target": "x", "value": 1}],
				"cases": [{"operations": [{"type": "set", "target": "x", "value": 2}]}]
			}
		]
	}`

	e := newTestEngine(t, nil)
	r := parseRule(t, ruleSrc)

	_, err := e.Evaluate(context.Background(), r, map[string]interface{}{})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	var evalErr *RuleEvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("err = %T, want RuleEvaluationError", err)
	}
}

func TestEngineTrace(t *testing.T) {
	e := newTestEngine(t, &Config{MaxDepth: 32, EnableTrace: true})
	r := parseRule(t, flatTaxRule)

	result, err := e.Evaluate(context.Background(), r, map[string]interface{}{
		"gross_income": 500000.0,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(result.Trace) != 2 {
		t.Fatalf("len(Trace) = %d, want 2", len(result.Trace))
	}
	if result.Trace[0].Step != "compute taxable income" {
		t.Errorf("Trace[0].Step = %q", result.Trace[0].Step)
	}
	if got := result.Trace[0].Assignments["taxable_income"]; got.Num != 250000 {
		t.Errorf("traced taxable_income = %v, want 250000", got.Num)
	}
	if got := result.Trace[1].Assignments["liability"]; got.Num != 62500 {
		t.Errorf("traced liability = %v, want 62500", got.Num)
	}
}

func TestEngineStepErrorNamesStep(t *testing.T) {
	const ruleSrc = `{
		"$version": "1.0",
		"name": "failing",
		"jurisdiction": "PH",
		"type": "income_tax",
		"inputs": {
			"amount": {"type": "number"}
		},
		"outputs": {},
		"flow": [
			{"name": "seed", "operations": [{"type": "set", "target": "x", "value": "$amount"}]},
			{"name": "explode", "operations": [{"type": "divide", "target": "x", "value": 0}]}
		]
	}`

	e := newTestEngine(t, nil)
	r := parseRule(t, ruleSrc)

	_, err := e.Evaluate(context.Background(), r, map[string]interface{}{"amount": 10.0})
	var evalErr *RuleEvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("err = %v, want RuleEvaluationError", err)
	}
	if evalErr.Step != "explode" {
		t.Errorf("Step = %q, want %q", evalErr.Step, "explode")
	}
	var divzero *DivisionByZeroError
	if !errors.As(err, &divzero) {
		t.Errorf("cause = %v, want DivisionByZeroError", evalErr.Cause)
	}
}

func TestEngineContextCancellation(t *testing.T) {
	e := newTestEngine(t, nil)
	r := parseRule(t, flatTaxRule)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Evaluate(ctx, r, map[string]interface{}{"gross_income": 1.0}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
