package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is the interface implemented by all expression AST nodes.
// Nodes are immutable once constructed.
type Node interface {
	// String returns the canonical source form of the node.
	String() string

	node()
}

// NumberLiteral is a numeric literal, e.g. 250000 or 0.25.
type NumberLiteral struct {
	Value float64
}

func (n *NumberLiteral) String() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

func (n *NumberLiteral) node() {}

// BooleanLiteral is a boolean literal, true or false.
type BooleanLiteral struct {
	Value bool
}

func (n *BooleanLiteral) String() string {
	return strconv.FormatBool(n.Value)
}

func (n *BooleanLiteral) node() {}

// StringLiteral is a single-quoted string literal, e.g. 'MARRIED'.
type StringLiteral struct {
	Value string
}

func (n *StringLiteral) String() string {
	return "'" + escapeString(n.Value) + "'"
}

func (n *StringLiteral) node() {}

// InputVariableRef references a taxpayer-supplied input variable ($name).
type InputVariableRef struct {
	Name string
}

func (n *InputVariableRef) String() string {
	return "$" + n.Name
}

func (n *InputVariableRef) node() {}

// ConstantRef references a law-defined constant ($$name).
type ConstantRef struct {
	Name string
}

func (n *ConstantRef) String() string {
	return "$$" + n.Name
}

func (n *ConstantRef) node() {}

// CalculatedRef references a calculated variable (bare identifier).
type CalculatedRef struct {
	Name string
}

func (n *CalculatedRef) String() string {
	return n.Name
}

func (n *CalculatedRef) node() {}

// Call is a function call with zero or more argument expressions.
type Call struct {
	Name string
	Args []Node
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
}

func (n *Call) node() {}

// escapeString reverses the parser's escape handling for String().
func escapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
