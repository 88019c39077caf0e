package validator

import (
	"fmt"
	"strings"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

// Severity classifies a validation issue.
type Severity string

const (
	// SeverityError marks an issue that makes the document unacceptable.
	SeverityError Severity = "error"

	// SeverityWarning marks a questionable but legal construct.
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding.
type Issue struct {
	// Severity is error or warning.
	Severity Severity

	// Message is a human-readable description of the problem.
	Message string

	// Path locates the offending element within the document,
	// e.g. "flow[2].cases[0].operations[1]".
	Path string
}

// String formats the issue for display.
func (i *Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Path, i.Message)
}

// Issues is an accumulated list of validation findings.
type Issues []*Issue

// HasErrors reports whether any issue has error severity.
func (is Issues) HasErrors() bool {
	for _, issue := range is {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity issues.
func (is Issues) Errors() Issues {
	var out Issues
	for _, issue := range is {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns only the warning-severity issues.
func (is Issues) Warnings() Issues {
	var out Issues
	for _, issue := range is {
		if issue.Severity == SeverityWarning {
			out = append(out, issue)
		}
	}
	return out
}

// Error formats all issues as a single message. Issues implements the error
// interface so callers may return it directly when HasErrors() is true.
func (is Issues) Error() string {
	if len(is) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d issue(s):\n", len(is)))
	for _, issue := range is {
		sb.WriteString("  ")
		sb.WriteString(issue.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Validator runs all validation passes over a rule document.
type Validator struct{}

// New creates a validator.
func New() *Validator {
	return &Validator{}
}

// Validate runs the structural pass and, if it produced no errors, the flow
// pass. Gating the flow pass prevents cascading reports when the document
// skeleton is already broken.
func (v *Validator) Validate(r *rule.Rule) Issues {
	var issues Issues
	if r == nil {
		return Issues{{Severity: SeverityError, Message: "rule document is nil", Path: "$"}}
	}

	issues = append(issues, validateStructure(r)...)
	if !issues.HasErrors() {
		issues = append(issues, validateFlow(r)...)
	}
	return issues
}

// addIssue appends a finding to the list.
func addIssue(issues *Issues, severity Severity, path, format string, args ...interface{}) {
	*issues = append(*issues, &Issue{
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
		Path:     path,
	})
}

// isIdentifier reports whether name matches [A-Za-z][A-Za-z0-9_]*.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if i == 0 {
			if !letter {
				return false
			}
			continue
		}
		if !letter && !(c >= '0' && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}

// isSnakeCase reports whether name matches the document naming convention
// [a-z][a-z0-9_]*.
func isSnakeCase(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		lower := c >= 'a' && c <= 'z'
		if i == 0 {
			if !lower {
				return false
			}
			continue
		}
		if !lower && !(c >= '0' && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}
