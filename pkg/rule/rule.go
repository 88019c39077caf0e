package rule

import (
	"encoding/json"
	"fmt"
	"os"
)

// Rule is a complete declarative document describing one tax calculation.
type Rule struct {
	// Version is the rule format version (the "$version" document field).
	Version string `json:"$version"`

	// Name is the human-readable rule name.
	Name string `json:"name"`

	// Jurisdiction identifies the taxing jurisdiction (e.g. "PH").
	Jurisdiction string `json:"jurisdiction"`

	// Type is the tax type (e.g. "income", "vat", "percentage").
	Type string `json:"type"`

	// Category further classifies the rule within its type.
	Category string `json:"category,omitempty"`

	// Author identifies who wrote the rule document.
	Author string `json:"author,omitempty"`

	// Effective is the date the rule takes legal effect (RFC 3339 date).
	Effective string `json:"effective,omitempty"`

	// Constants are law-defined fixed values, referenced as $$name.
	Constants map[string]interface{} `json:"constants,omitempty"`

	// Tables are named progressive bracket tables consumed by lookup.
	Tables map[string]*Table `json:"tables,omitempty"`

	// Inputs declares the taxpayer-supplied input variable schemas.
	Inputs map[string]*InputSpec `json:"inputs,omitempty"`

	// Outputs declares the calculated variables exposed as results.
	Outputs map[string]*OutputSpec `json:"outputs,omitempty"`

	// Validate contains optional document-author validation rules applied
	// to inputs before the flow runs.
	Validate []*ValidationRule `json:"validate,omitempty"`

	// FilingSchedules carries filing-period metadata consumed by the
	// schedule collaborator, not by the engine itself.
	FilingSchedules []*FilingSchedule `json:"filing_schedules,omitempty"`

	// Flow is the ordered list of calculation steps.
	Flow []*FlowStep `json:"flow"`

	// SourceFile is the path the rule was loaded from, if any.
	SourceFile string `json:"-"`
}

// Table is an ordered list of progressive-rate brackets.
type Table struct {
	Brackets []*Bracket `json:"brackets"`
}

// Bracket is one tier of a progressive bracket table.
// Min is inclusive; Max is exclusive, with nil meaning unbounded.
type Bracket struct {
	Min     float64  `json:"min"`
	Max     *float64 `json:"max"`
	Rate    float64  `json:"rate"`
	BaseTax float64  `json:"base_tax"`
}

// Unbounded reports whether the bracket has no upper limit.
func (b *Bracket) Unbounded() bool {
	return b.Max == nil
}

// Contains reports whether value falls inside the bracket.
func (b *Bracket) Contains(value float64) bool {
	if value < b.Min {
		return false
	}
	return b.Unbounded() || value < *b.Max
}

// InputSpec declares the schema of one input variable.
type InputSpec struct {
	// Type is the value type: "number", "boolean", or "string".
	Type string `json:"type"`

	// Required marks the input as mandatory. Defaults to true when no
	// default value and no When guard are present.
	Required *bool `json:"required,omitempty"`

	// When makes the input conditionally required. If the guard cannot be
	// evaluated because inputs it references are missing, the input is
	// treated as required (fail-safe).
	When *Condition `json:"when,omitempty"`

	// Default is substituted when the input is absent.
	Default interface{} `json:"default,omitempty"`

	// Enum restricts string inputs to a fixed set of values.
	Enum []string `json:"enum,omitempty"`

	// Min and Max bound numeric inputs (inclusive).
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Description documents the input for rule readers.
	Description string `json:"description,omitempty"`
}

// IsRequired reports whether the input is unconditionally required.
// Conditionally required inputs (When != nil) are judged at evaluation time.
func (s *InputSpec) IsRequired() bool {
	if s.Required != nil {
		return *s.Required
	}
	return s.Default == nil && s.When == nil
}

// OutputSpec declares one calculated variable exposed as a result.
type OutputSpec struct {
	// Type is the value type: "number", "boolean", or "string".
	Type string `json:"type"`

	// Description documents the output for rule readers.
	Description string `json:"description,omitempty"`
}

// ValidationRule is a rule-author assertion over the inputs.
type ValidationRule struct {
	// When is the condition that must hold.
	When *Condition `json:"when"`

	// Message explains the violation to the filer.
	Message string `json:"message"`
}

// FilingSchedule describes when and how the computed liability is filed.
type FilingSchedule struct {
	// Frequency is "quarterly" or "annual".
	Frequency string `json:"frequency"`

	// DeadlineDays is the number of days after the period end when the
	// filing is due.
	DeadlineDays int `json:"deadline_days"`

	// Forms lists the government form identifiers for this schedule.
	Forms []string `json:"forms,omitempty"`
}

// FlowStep is one named unit of sequential execution. A step carries either
// Operations or Cases, never both; the validator rejects mixed steps.
type FlowStep struct {
	Name       string       `json:"name"`
	Operations []*Operation `json:"operations,omitempty"`
	Cases      []*Case      `json:"cases,omitempty"`
}

// Case is one guarded branch of a cases step. A nil When marks the default
// case, which must be last within its step.
type Case struct {
	When       *Condition   `json:"when,omitempty"`
	Operations []*Operation `json:"operations"`
}

// IsDefault reports whether the case has no guard.
func (c *Case) IsDefault() bool {
	return c.When == nil
}

// Parse decodes a rule document from JSON bytes.
// It performs no validation beyond JSON well-formedness; use the validator
// subpackage before handing the rule to the engine.
func Parse(data []byte) (*Rule, error) {
	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode rule document: %w", err)
	}
	return &r, nil
}

// ParseFile reads and decodes a rule document from a JSON file.
func ParseFile(path string) (*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %q: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule file %q: %w", path, err)
	}
	r.SourceFile = path
	return r, nil
}
