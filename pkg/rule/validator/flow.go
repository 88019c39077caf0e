package validator

import (
	"fmt"

	"github.com/nedpals/opentaxjs/pkg/expr"
	"github.com/nedpals/opentaxjs/pkg/rule"
)

// knownOperationTypes is the set of operation kinds the engine dispatches on.
var knownOperationTypes = func() map[rule.OperationType]bool {
	m := make(map[rule.OperationType]bool)
	for _, t := range rule.KnownOperationTypes() {
		m[t] = true
	}
	return m
}()

// validateFlow checks the flow steps, their cases and operations, and every
// embedded expression and condition.
func validateFlow(r *rule.Rule) Issues {
	var issues Issues

	if len(r.Flow) == 0 {
		addIssue(&issues, SeverityError, "flow", "flow must contain at least one step")
		return issues
	}

	for i, step := range r.Flow {
		path := fmt.Sprintf("flow[%d]", i)
		if step == nil {
			addIssue(&issues, SeverityError, path, "step is null")
			continue
		}
		if step.Name == "" {
			addIssue(&issues, SeverityWarning, path, "step has no name")
		}

		hasOps := len(step.Operations) > 0
		hasCases := len(step.Cases) > 0
		switch {
		case hasOps && hasCases:
			addIssue(&issues, SeverityError, path, "step %q must not mix operations and cases", step.Name)
			continue
		case !hasOps && !hasCases:
			addIssue(&issues, SeverityError, path, "step %q has neither operations nor cases", step.Name)
			continue
		}

		if hasOps {
			validateOperations(r, step.Operations, path+".operations", &issues)
		} else {
			validateCases(r, step, path, &issues)
		}
	}

	for i, vr := range r.Validate {
		path := fmt.Sprintf("validate[%d]", i)
		if vr == nil {
			addIssue(&issues, SeverityError, path, "validation rule is null")
			continue
		}
		if vr.When == nil {
			addIssue(&issues, SeverityError, path, "validation rule has no condition")
		} else {
			validateCondition(vr.When, path+".when", &issues)
		}
		if vr.Message == "" {
			addIssue(&issues, SeverityWarning, path, "validation rule has no message")
		}
	}

	return issues
}

// validateCases enforces the default-case invariants: at most one guard-less
// case per step, and it must be last.
func validateCases(r *rule.Rule, step *rule.FlowStep, path string, issues *Issues) {
	defaultIndex := -1
	for j, c := range step.Cases {
		cpath := fmt.Sprintf("%s.cases[%d]", path, j)
		if c == nil {
			addIssue(issues, SeverityError, cpath, "case is null")
			continue
		}
		if c.IsDefault() {
			if defaultIndex >= 0 {
				addIssue(issues, SeverityError, cpath, "step %q has more than one default case", step.Name)
			}
			defaultIndex = j
		} else {
			validateCondition(c.When, cpath+".when", issues)
		}
		if len(c.Operations) == 0 {
			addIssue(issues, SeverityError, cpath, "case has no operations")
		}
		validateOperations(r, c.Operations, cpath+".operations", issues)
	}

	if defaultIndex >= 0 && defaultIndex != len(step.Cases)-1 {
		addIssue(issues, SeverityError, fmt.Sprintf("%s.cases[%d]", path, defaultIndex),
			"default case must be the last case of step %q", step.Name)
	}
}

func validateOperations(r *rule.Rule, ops []*rule.Operation, path string, issues *Issues) {
	for k, op := range ops {
		opath := fmt.Sprintf("%s[%d]", path, k)
		if op == nil {
			addIssue(issues, SeverityError, opath, "operation is null")
			continue
		}
		if !knownOperationTypes[op.Type] {
			addIssue(issues, SeverityError, opath, "unknown operation type %q", op.Type)
			continue
		}
		if !isIdentifier(op.Target) {
			addIssue(issues, SeverityError, opath, "operation target %q is not a valid identifier", op.Target)
		} else if !isSnakeCase(op.Target) {
			addIssue(issues, SeverityWarning, opath, "operation target %q should be snake_case", op.Target)
		}
		if op.Value == nil {
			addIssue(issues, SeverityError, opath, "operation %s has no value", op)
		} else {
			validateOperand(op.Value, opath+".value", issues)
		}

		if op.Type == rule.OperationLookup {
			if op.Table == "" {
				addIssue(issues, SeverityError, opath, "lookup operation requires a table name")
			} else if _, ok := r.Tables[op.Table]; !ok {
				addIssue(issues, SeverityError, opath, "lookup references undeclared table %q", op.Table)
			}
		} else if op.Table != "" {
			addIssue(issues, SeverityWarning, opath, "operation %s carries a table name but is not a lookup", op)
		}
	}
}

// validateOperand parses expression-string operands. Literal JSON numbers
// and booleans need no checking.
func validateOperand(operand *rule.Operand, path string, issues *Issues) {
	source, ok := operand.Raw.(string)
	if !ok {
		return
	}
	if _, err := expr.Parse(source); err != nil {
		addIssue(issues, SeverityError, path, "invalid expression %q: %v", source, err)
	}
}

// validateCondition recursively checks a condition tree, parsing every
// subject expression.
func validateCondition(c *rule.Condition, path string, issues *Issues) {
	if c == nil {
		addIssue(issues, SeverityError, path, "condition is null")
		return
	}
	switch c.Type {
	case rule.ConditionComparison:
		if _, err := expr.Parse(c.Subject); err != nil {
			addIssue(issues, SeverityError, path, "invalid condition subject %q: %v", c.Subject, err)
		}
		if s, ok := c.Value.(string); ok && expr.IsReference(s) {
			if _, err := expr.Parse(s); err != nil {
				addIssue(issues, SeverityError, path, "invalid comparison expression %q: %v", s, err)
			}
		}
	case rule.ConditionAnd, rule.ConditionOr:
		for i, child := range c.Children {
			validateCondition(child, fmt.Sprintf("%s.%s[%d]", path, c.Type, i), issues)
		}
	case rule.ConditionNot:
		validateCondition(c.Child, path+".not", issues)
	default:
		addIssue(issues, SeverityError, path, "unknown condition type %q", c.Type)
	}
}
