package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseInputValue(t *testing.T) {
	tests := []struct {
		raw  string
		want interface{}
	}{
		{"500000", 500000.0},
		{"0.25", 0.25},
		{"-3", -3.0},
		{"true", true},
		{"false", false},
		{"MARRIED", "MARRIED"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := parseInputValue(tt.raw); got != tt.want {
				t.Errorf("parseInputValue(%q) = %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestCollectInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.json")
	if err := os.WriteFile(path, []byte(`{"gross_income": 500000, "filing_status": "SINGLE"}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	evaluateFlags.inputs = path
	evaluateFlags.input = []string{"filing_status=MARRIED", "resident=true"}
	defer func() {
		evaluateFlags.inputs = ""
		evaluateFlags.input = nil
	}()

	inputs, err := collectInputs()
	if err != nil {
		t.Fatalf("collectInputs: %v", err)
	}

	if inputs["gross_income"] != 500000.0 {
		t.Errorf("gross_income = %v", inputs["gross_income"])
	}
	// Flags override the file.
	if inputs["filing_status"] != "MARRIED" {
		t.Errorf("filing_status = %v, want MARRIED", inputs["filing_status"])
	}
	if inputs["resident"] != true {
		t.Errorf("resident = %v, want true", inputs["resident"])
	}
}

func TestCollectInputsRejectsBadPair(t *testing.T) {
	evaluateFlags.input = []string{"no-equals-sign"}
	defer func() { evaluateFlags.input = nil }()

	if _, err := collectInputs(); err == nil {
		t.Error("expected error for malformed --input")
	}
}
