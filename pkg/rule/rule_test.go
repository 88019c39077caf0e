package rule

import (
	"encoding/json"
	"testing"
)

const sampleDocument = `{
	"$version": "0.1.0",
	"name": "Annual Income Tax",
	"jurisdiction": "PH",
	"type": "income",
	"constants": {
		"exemption": 250000
	},
	"tables": {
		"annual_tax_table": {
			"brackets": [
				{"min": 0, "max": 250000, "rate": 0, "base_tax": 0},
				{"min": 250000, "max": 400000, "rate": 0.20, "base_tax": 0},
				{"min": 400000, "max": null, "rate": 0.25, "base_tax": 30000}
			]
		}
	},
	"inputs": {
		"gross_income": {"type": "number", "min": 0},
		"status": {"type": "string", "enum": ["SINGLE", "MARRIED"], "default": "SINGLE"}
	},
	"outputs": {
		"taxable_income": {"type": "number"},
		"liability": {"type": "number"}
	},
	"filing_schedules": [
		{"frequency": "quarterly", "deadline_days": 60, "forms": ["1701Q"]}
	],
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
			"cases": [
				{
					"when": {"taxable_income": {"gt": 0}},
					"operations": [
						{"type": "lookup", "target": "liability", "table": "annual_tax_table", "value": "taxable_income"}
					]
				},
				{
					"operations": [
						{"type": "set", "target": "liability", "value": 0}
					]
				}
			]
		}
	]
}`

// TestParse_Document decodes a representative rule document end to end.
func TestParse_Document(t *testing.T) {
	r, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if r.Name != "Annual Income Tax" {
		t.Errorf("Name = %q, want %q", r.Name, "Annual Income Tax")
	}
	if r.Jurisdiction != "PH" {
		t.Errorf("Jurisdiction = %q, want %q", r.Jurisdiction, "PH")
	}
	if got := r.Constants["exemption"]; got != float64(250000) {
		t.Errorf("Constants[exemption] = %v, want 250000", got)
	}

	table := r.Tables["annual_tax_table"]
	if table == nil {
		t.Fatal("Tables[annual_tax_table] is nil")
	}
	if len(table.Brackets) != 3 {
		t.Fatalf("bracket count = %d, want 3", len(table.Brackets))
	}
	if !table.Brackets[2].Unbounded() {
		t.Error("top bracket should be unbounded")
	}
	if table.Brackets[1].Unbounded() {
		t.Error("middle bracket should be bounded")
	}

	if len(r.Flow) != 2 {
		t.Fatalf("flow step count = %d, want 2", len(r.Flow))
	}

	ops := r.Flow[0].Operations
	if len(ops) != 3 {
		t.Fatalf("operation count = %d, want 3", len(ops))
	}
	if ops[1].Type != OperationSubtract {
		t.Errorf("deduct decoded as %q, want %q", ops[1].Type, OperationSubtract)
	}
	if ops[2].Value.Raw != float64(0) {
		t.Errorf("max operand = %v, want 0", ops[2].Value.Raw)
	}

	cases := r.Flow[1].Cases
	if len(cases) != 2 {
		t.Fatalf("case count = %d, want 2", len(cases))
	}
	if cases[0].IsDefault() {
		t.Error("guarded case reported as default")
	}
	if !cases[1].IsDefault() {
		t.Error("guard-less case not reported as default")
	}
}

// TestBracket_Contains tests inclusive-min/exclusive-max bracket membership.
func TestBracket_Contains(t *testing.T) {
	max := 400000.0
	bounded := &Bracket{Min: 250000, Max: &max, Rate: 0.20}
	unbounded := &Bracket{Min: 400000, Rate: 0.25}

	tests := []struct {
		name    string
		bracket *Bracket
		value   float64
		want    bool
	}{
		{name: "below min", bracket: bounded, value: 249999, want: false},
		{name: "at min inclusive", bracket: bounded, value: 250000, want: true},
		{name: "inside", bracket: bounded, value: 300000, want: true},
		{name: "at max exclusive", bracket: bounded, value: 400000, want: false},
		{name: "unbounded above min", bracket: unbounded, value: 5000000, want: true},
		{name: "unbounded at min", bracket: unbounded, value: 400000, want: true},
		{name: "unbounded below min", bracket: unbounded, value: 399999, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bracket.Contains(tt.value); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// TestCondition_Unmarshal tests decoding of each condition shape and the
// exactly-one-key invariants.
func TestCondition_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    func(*Condition) bool
		wantErr bool
	}{
		{
			name:  "comparison with string literal",
			input: `{"$status": {"eq": "MARRIED"}}`,
			want: func(c *Condition) bool {
				return c.Type == ConditionComparison && c.Subject == "$status" &&
					c.Op == OpEqual && c.Value == "MARRIED"
			},
		},
		{
			name:  "comparison with number",
			input: `{"taxable_income": {"gt": 0}}`,
			want: func(c *Condition) bool {
				return c.Type == ConditionComparison && c.Op == OpGreaterThan && c.Value == float64(0)
			},
		},
		{
			name:  "and combinator",
			input: `{"and": [{"$a": {"eq": 1}}, {"$b": {"ne": 2}}]}`,
			want: func(c *Condition) bool {
				return c.Type == ConditionAnd && len(c.Children) == 2
			},
		},
		{
			name:  "or combinator",
			input: `{"or": [{"$a": {"lte": 1}}, {"$b": {"gte": 2}}]}`,
			want: func(c *Condition) bool {
				return c.Type == ConditionOr && len(c.Children) == 2
			},
		},
		{
			name:  "not combinator",
			input: `{"not": {"$a": {"eq": true}}}`,
			want: func(c *Condition) bool {
				return c.Type == ConditionNot && c.Child != nil && c.Child.Op == OpEqual
			},
		},
		{
			name:    "two top-level keys",
			input:   `{"$a": {"eq": 1}, "$b": {"eq": 2}}`,
			wantErr: true,
		},
		{
			name:    "two operators",
			input:   `{"$a": {"gt": 1, "lt": 5}}`,
			wantErr: true,
		},
		{
			name:    "unknown operator",
			input:   `{"$a": {"like": "x"}}`,
			wantErr: true,
		},
		{
			name:    "empty and",
			input:   `{"and": []}`,
			wantErr: true,
		},
		{
			name:    "array operand",
			input:   `{"$a": {"eq": [1, 2]}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Condition
			err := json.Unmarshal([]byte(tt.input), &c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && tt.want != nil && !tt.want(&c) {
				t.Errorf("Unmarshal(%s) = %+v, shape check failed", tt.input, c)
			}
		})
	}
}

// TestCondition_MarshalRoundTrip re-encodes a decoded condition tree.
func TestCondition_MarshalRoundTrip(t *testing.T) {
	input := `{"and":[{"$status":{"eq":"MARRIED"}},{"not":{"taxable_income":{"lte":0}}}]}`

	var c Condition
	if err := json.Unmarshal([]byte(input), &c); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	out, err := json.Marshal(&c)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	var again Condition
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("Unmarshal(Marshal) error = %v", err)
	}
	if again.Type != ConditionAnd || len(again.Children) != 2 {
		t.Errorf("round trip lost structure: %+v", again)
	}
}

// TestOperation_MarshalAlias confirms subtraction re-encodes as "deduct".
func TestOperation_MarshalAlias(t *testing.T) {
	op := &Operation{
		Type:   OperationSubtract,
		Target: "taxable_income",
		Value:  &Operand{Raw: "$$exemption"},
	}
	out, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	var wire map[string]interface{}
	if err := json.Unmarshal(out, &wire); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if wire["type"] != "deduct" {
		t.Errorf("wire type = %v, want %q", wire["type"], "deduct")
	}
}

// TestOperand_Unmarshal rejects non-scalar operands.
func TestOperand_Unmarshal(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: `42`, wantErr: false},
		{input: `true`, wantErr: false},
		{input: `"$gross_income"`, wantErr: false},
		{input: `null`, wantErr: true},
		{input: `[1]`, wantErr: true},
		{input: `{"a": 1}`, wantErr: true},
	}
	for _, tt := range tests {
		var o Operand
		err := json.Unmarshal([]byte(tt.input), &o)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
