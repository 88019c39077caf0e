package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

func parseOperation(t *testing.T, src string) *rule.Operation {
	t.Helper()
	var op rule.Operation
	if err := json.Unmarshal([]byte(src), &op); err != nil {
		t.Fatalf("unmarshal operation %s: %v", src, err)
	}
	return &op
}

func newTestExecutor(t *testing.T) (*OperationExecutor, *Context) {
	t.Helper()
	evaluator, registry := newTestEvaluator(t)
	return NewOperationExecutor(evaluator, registry), NewContext()
}

func TestOperationKinds(t *testing.T) {
	tests := []struct {
		name    string
		initial *float64
		op      string
		want    float64
	}{
		{"set", nil, `{"type": "set", "target": "taxable_income", "value": 250000}`, 250000},
		{"set from expression", nil, `{"type": "set", "target": "taxable_income", "value": "sum(100000, 150000)"}`, 250000},
		{"add", f64(100), `{"type": "add", "target": "taxable_income", "value": 50}`, 150},
		{"deduct", f64(100), `{"type": "deduct", "target": "taxable_income", "value": 30}`, 70},
		{"multiply", f64(100), `{"type": "multiply", "target": "taxable_income", "value": 0.25}`, 25},
		{"divide", f64(100), `{"type": "divide", "target": "taxable_income", "value": 4}`, 25},
		{"min", f64(100), `{"type": "min", "target": "taxable_income", "value": 60}`, 60},
		{"min keeps lower", f64(40), `{"type": "min", "target": "taxable_income", "value": 60}`, 40},
		{"max", f64(100), `{"type": "max", "target": "taxable_income", "value": 60}`, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor, ctx := newTestExecutor(t)
			if tt.initial != nil {
				ctx.SetCalculated("taxable_income", Number(*tt.initial))
			}
			if err := executor.Apply(ctx, parseOperation(t, tt.op)); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			got := ctx.Calculated["taxable_income"]
			if got.Num != tt.want {
				t.Errorf("taxable_income = %v, want %v", got.Num, tt.want)
			}
		})
	}
}

func f64(v float64) *float64 { return &v }

func TestOperationAddToBuiltinLiability(t *testing.T) {
	executor, ctx := newTestExecutor(t)

	// The built-in liability accumulator starts at zero, so add works
	// without a prior set.
	op := parseOperation(t, `{"type": "add", "target": "liability", "value": 62500}`)
	if err := executor.Apply(ctx, op); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := ctx.Calculated["liability"]; got.Num != 62500 {
		t.Errorf("liability = %v, want 62500", got.Num)
	}
}

func TestOperationArithmeticOnUnsetTarget(t *testing.T) {
	executor, ctx := newTestExecutor(t)

	op := parseOperation(t, `{"type": "add", "target": "never_set", "value": 10}`)
	err := executor.Apply(ctx, op)
	var unresolved *UnresolvedReferenceError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedReferenceError, got %v", err)
	}
}

func TestOperationDivisionByZeroLeavesContextUnchanged(t *testing.T) {
	executor, ctx := newTestExecutor(t)
	ctx.SetCalculated("amount", Number(100))

	op := parseOperation(t, `{"type": "divide", "target": "amount", "value": 0}`)
	err := executor.Apply(ctx, op)
	var divzero *DivisionByZeroError
	if !errors.As(err, &divzero) {
		t.Fatalf("expected DivisionByZeroError, got %v", err)
	}
	if got := ctx.Calculated["amount"]; got.Num != 100 {
		t.Errorf("amount = %v after failed divide, want 100 unchanged", got.Num)
	}
}

func TestOperationTargetCannotShadowBuiltinFunction(t *testing.T) {
	executor, ctx := newTestExecutor(t)

	op := parseOperation(t, `{"type": "set", "target": "sum", "value": 1}`)
	err := executor.Apply(ctx, op)
	var conflict *SymbolConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected SymbolConflictError, got %v", err)
	}
	if _, ok := ctx.Calculated["sum"]; ok {
		t.Error("failed assignment should not write the context")
	}
}

func TestOperationNonNumericOperand(t *testing.T) {
	executor, ctx := newTestExecutor(t)
	ctx.SetCalculated("amount", Number(100))

	op := parseOperation(t, `{"type": "add", "target": "amount", "value": true}`)
	err := executor.Apply(ctx, op)
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

func testTable() *rule.Table {
	max1 := 250000.0
	max2 := 400000.0
	return &rule.Table{Brackets: []*rule.Bracket{
		{Min: 0, Max: &max1, Rate: 0, BaseTax: 0},
		{Min: 250000, Max: &max2, Rate: 0.20, BaseTax: 0},
		{Min: 400000, Max: nil, Rate: 0.25, BaseTax: 30000},
	}}
}

func TestBracketLookup(t *testing.T) {
	ctx := NewContext()
	ctx.Tables["annual_tax_table"] = testTable()

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"zero", 0, 0},
		{"first bracket", 100000, 0},
		{"second bracket floor", 250000, 0},
		{"second bracket", 300000, 10000},
		{"unbounded bracket", 500000, 55000},
		{"high income", 1000000, 180000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lookupBracket(ctx, "annual_tax_table", tt.value)
			if err != nil {
				t.Fatalf("lookupBracket(%v): %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("lookupBracket(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestBracketLookupErrors(t *testing.T) {
	max1 := 100.0
	ctx := NewContext()
	ctx.Tables["gapped"] = &rule.Table{Brackets: []*rule.Bracket{
		{Min: 50, Max: &max1, Rate: 0.1},
		{Min: 200, Max: nil, Rate: 0.2, BaseTax: 5},
	}}
	ctx.Tables["empty"] = &rule.Table{}

	tests := []struct {
		name  string
		table string
		value float64
	}{
		{"missing table", "nope", 10},
		{"below floor", "gapped", 10},
		{"in gap", "gapped", 150},
		{"empty table", "empty", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lookupBracket(ctx, tt.table, tt.value)
			var lookupErr *TableLookupError
			if !errors.As(err, &lookupErr) {
				t.Fatalf("lookupBracket(%q, %v) err = %v, want TableLookupError", tt.table, tt.value, err)
			}
		})
	}
}

func TestOperationLookup(t *testing.T) {
	executor, ctx := newTestExecutor(t)
	ctx.Tables["annual_tax_table"] = testTable()
	ctx.Inputs["taxable"] = Number(500000)

	op := parseOperation(t, `{"type": "lookup", "target": "liability", "value": "$taxable", "table": "annual_tax_table"}`)
	if err := executor.Apply(ctx, op); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := ctx.Calculated["liability"]; got.Num != 55000 {
		t.Errorf("liability = %v, want 55000", got.Num)
	}
}
