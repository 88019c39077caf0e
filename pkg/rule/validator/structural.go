package validator

import (
	"fmt"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

// validValueTypes are the scalar types an input or output may declare.
var validValueTypes = map[string]bool{
	"number":  true,
	"boolean": true,
	"string":  true,
}

// validateStructure checks document metadata, constants, tables, and the
// input/output schemas.
func validateStructure(r *rule.Rule) Issues {
	var issues Issues

	if r.Version == "" {
		addIssue(&issues, SeverityWarning, "$version", "missing format version")
	}
	if r.Name == "" {
		addIssue(&issues, SeverityError, "name", "rule name is required")
	}
	if r.Jurisdiction == "" {
		addIssue(&issues, SeverityError, "jurisdiction", "jurisdiction is required")
	}
	if r.Type == "" {
		addIssue(&issues, SeverityError, "type", "tax type is required")
	}

	validateConstants(r, &issues)
	validateTables(r, &issues)
	validateInputs(r, &issues)
	validateOutputs(r, &issues)
	validateFilingSchedules(r, &issues)

	return issues
}

func validateConstants(r *rule.Rule, issues *Issues) {
	for name, value := range r.Constants {
		path := fmt.Sprintf("constants.%s", name)
		if !isIdentifier(name) {
			addIssue(issues, SeverityError, path, "constant name %q is not a valid identifier", name)
			continue
		}
		if !isSnakeCase(name) {
			addIssue(issues, SeverityWarning, path, "constant name %q should be snake_case", name)
		}
		switch value.(type) {
		case float64, bool, string:
		default:
			addIssue(issues, SeverityError, path, "constant %q must be a number, boolean, or string, got %T", name, value)
		}
	}
}

func validateTables(r *rule.Rule, issues *Issues) {
	for name, table := range r.Tables {
		path := fmt.Sprintf("tables.%s", name)
		if !isIdentifier(name) {
			addIssue(issues, SeverityError, path, "table name %q is not a valid identifier", name)
			continue
		}
		if table == nil || len(table.Brackets) == 0 {
			addIssue(issues, SeverityError, path, "table %q has no brackets", name)
			continue
		}

		for i, b := range table.Brackets {
			bpath := fmt.Sprintf("%s.brackets[%d]", path, i)
			if b == nil {
				addIssue(issues, SeverityError, bpath, "bracket is null")
				continue
			}
			if !b.Unbounded() && *b.Max <= b.Min {
				addIssue(issues, SeverityError, bpath, "bracket max %v must be greater than min %v", *b.Max, b.Min)
			}
			if b.Rate < 0 {
				addIssue(issues, SeverityError, bpath, "bracket rate %v must not be negative", b.Rate)
			}
			if !b.Unbounded() && i < len(table.Brackets)-1 {
				next := table.Brackets[i+1]
				if next == nil {
					continue
				}
				switch {
				case next.Min < *b.Max:
					addIssue(issues, SeverityError, bpath, "bracket overlaps the next bracket: max %v > next min %v", *b.Max, next.Min)
				case next.Min > *b.Max:
					// A gap is legal (a guard may route around it) but any
					// lookup landing inside it fails at evaluation time.
					addIssue(issues, SeverityWarning, bpath, "gap between bracket max %v and next min %v; lookups in the gap will fail", *b.Max, next.Min)
				}
			}
			if b.Unbounded() && i < len(table.Brackets)-1 {
				addIssue(issues, SeverityError, bpath, "unbounded bracket must be last")
			}
		}
	}
}

func validateInputs(r *rule.Rule, issues *Issues) {
	for name, spec := range r.Inputs {
		path := fmt.Sprintf("inputs.%s", name)
		if !isIdentifier(name) {
			addIssue(issues, SeverityError, path, "input name %q is not a valid identifier", name)
			continue
		}
		if !isSnakeCase(name) {
			addIssue(issues, SeverityWarning, path, "input name %q should be snake_case", name)
		}
		if spec == nil {
			addIssue(issues, SeverityError, path, "input schema is null")
			continue
		}
		if !validValueTypes[spec.Type] {
			addIssue(issues, SeverityError, path, "invalid input type %q", spec.Type)
			continue
		}
		if len(spec.Enum) > 0 && spec.Type != "string" {
			addIssue(issues, SeverityError, path, "enum constraints apply to string inputs only, not %q", spec.Type)
		}
		if (spec.Min != nil || spec.Max != nil) && spec.Type != "number" {
			addIssue(issues, SeverityError, path, "min/max bounds apply to number inputs only, not %q", spec.Type)
		}
		if spec.Min != nil && spec.Max != nil && *spec.Min > *spec.Max {
			addIssue(issues, SeverityError, path, "min %v is greater than max %v", *spec.Min, *spec.Max)
		}
		if spec.Default != nil && !defaultMatchesType(spec.Default, spec.Type) {
			addIssue(issues, SeverityError, path, "default value %v does not match input type %q", spec.Default, spec.Type)
		}
	}
}

func validateOutputs(r *rule.Rule, issues *Issues) {
	if len(r.Outputs) == 0 {
		addIssue(issues, SeverityWarning, "outputs", "rule declares no outputs")
	}
	for name, spec := range r.Outputs {
		path := fmt.Sprintf("outputs.%s", name)
		if !isIdentifier(name) {
			addIssue(issues, SeverityError, path, "output name %q is not a valid identifier", name)
			continue
		}
		if !isSnakeCase(name) {
			addIssue(issues, SeverityWarning, path, "output name %q should be snake_case", name)
		}
		if spec == nil {
			addIssue(issues, SeverityError, path, "output schema is null")
			continue
		}
		if !validValueTypes[spec.Type] {
			addIssue(issues, SeverityError, path, "invalid output type %q", spec.Type)
		}
	}
}

func validateFilingSchedules(r *rule.Rule, issues *Issues) {
	for i, fs := range r.FilingSchedules {
		path := fmt.Sprintf("filing_schedules[%d]", i)
		if fs == nil {
			addIssue(issues, SeverityError, path, "filing schedule is null")
			continue
		}
		switch fs.Frequency {
		case "quarterly", "annual":
		default:
			addIssue(issues, SeverityError, path, "invalid filing frequency %q", fs.Frequency)
		}
		if fs.DeadlineDays < 0 {
			addIssue(issues, SeverityError, path, "deadline_days %d must not be negative", fs.DeadlineDays)
		}
	}
}

func defaultMatchesType(value interface{}, typ string) bool {
	switch value.(type) {
	case float64:
		return typ == "number"
	case bool:
		return typ == "boolean"
	case string:
		return typ == "string"
	default:
		return false
	}
}
