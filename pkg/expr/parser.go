package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes a syntax error in an expression.
// Position is a zero-based byte offset into Source.
type ParseError struct {
	Message  string
	Source   string
	Position int
}

// Error returns the error message with position and source.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s (in %q)", e.Position, e.Message, e.Source)
}

// Parse parses an expression string into an AST.
// It returns a *ParseError on any syntax error: empty input, trailing
// content after a complete expression, unmatched parentheses, stray commas,
// or malformed numeric literals.
func Parse(source string) (Node, error) {
	p := &parser{source: source}
	p.skipWhitespace()
	if p.atEnd() {
		return nil, p.errorf(0, "empty expression")
	}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	if !p.atEnd() {
		return nil, p.errorf(p.pos, "unexpected trailing content %q", p.source[p.pos:])
	}
	return node, nil
}

// parser is a single-pass recursive-descent parser over the source string.
type parser struct {
	source string
	pos    int
}

func (p *parser) atEnd() bool {
	return p.pos >= len(p.source)
}

func (p *parser) peek() byte {
	if p.atEnd() {
		return 0
	}
	return p.source[p.pos]
}

func (p *parser) skipWhitespace() {
	for !p.atEnd() {
		switch p.source[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) errorf(pos int, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Message:  fmt.Sprintf(format, args...),
		Source:   p.source,
		Position: pos,
	}
}

// parseExpression parses a single atomic expression: a variable reference,
// a function call, or a literal.
func (p *parser) parseExpression() (Node, error) {
	p.skipWhitespace()
	if p.atEnd() {
		return nil, p.errorf(p.pos, "unexpected end of expression")
	}

	c := p.peek()
	switch {
	case c == '$':
		return p.parseVariableRef()
	case c == '\'':
		return p.parseStringLiteral()
	case isDigit(c) || c == '-':
		return p.parseNumberLiteral()
	case isIdentStart(c):
		return p.parseIdentOrCall()
	default:
		return nil, p.errorf(p.pos, "unexpected character %q", string(c))
	}
}

// parseVariableRef parses $name (input variable) or $$name (constant).
func (p *parser) parseVariableRef() (Node, error) {
	start := p.pos
	p.pos++ // consume '$'
	constant := false
	if p.peek() == '$' {
		constant = true
		p.pos++
	}

	name, err := p.parseIdentifier()
	if err != nil {
		if constant {
			return nil, p.errorf(start, "expected constant name after \"$$\"")
		}
		return nil, p.errorf(start, "expected input variable name after \"$\"")
	}

	if constant {
		return &ConstantRef{Name: name}, nil
	}
	return &InputVariableRef{Name: name}, nil
}

// parseIdentOrCall parses a bare identifier. If it is immediately followed
// by "(", it is a function call; otherwise it is a calculated variable
// reference or a boolean keyword.
func (p *parser) parseIdentOrCall() (Node, error) {
	ident, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}

	// true/false are reserved literal tokens, never variable names.
	switch ident {
	case "true":
		return &BooleanLiteral{Value: true}, nil
	case "false":
		return &BooleanLiteral{Value: false}, nil
	}

	if p.peek() != '(' {
		return &CalculatedRef{Name: ident}, nil
	}

	return p.parseCallArgs(ident)
}

// parseCallArgs parses the parenthesized argument list of a call.
// The opening parenthesis has not been consumed yet.
func (p *parser) parseCallArgs(name string) (Node, error) {
	openPos := p.pos
	p.pos++ // consume '('
	call := &Call{Name: name}

	p.skipWhitespace()
	if p.peek() == ')' {
		p.pos++
		return call, nil
	}

	for {
		p.skipWhitespace()
		if p.peek() == ',' {
			return nil, p.errorf(p.pos, "unexpected comma in argument list of %q", name)
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		p.skipWhitespace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipWhitespace()
			if p.peek() == ')' {
				return nil, p.errorf(p.pos, "trailing comma in argument list of %q", name)
			}
		case ')':
			p.pos++
			return call, nil
		default:
			if p.atEnd() {
				return nil, p.errorf(openPos, "unmatched %q in call to %q", "(", name)
			}
			return nil, p.errorf(p.pos, "expected %q or %q in argument list of %q", ",", ")", name)
		}
	}
}

// parseIdentifier consumes [A-Za-z][A-Za-z0-9_]*.
func (p *parser) parseIdentifier() (string, error) {
	start := p.pos
	if p.atEnd() || !isIdentStart(p.peek()) {
		return "", p.errorf(p.pos, "expected identifier")
	}
	p.pos++
	for !p.atEnd() && isIdentPart(p.peek()) {
		p.pos++
	}
	return p.source[start:p.pos], nil
}

// parseNumberLiteral consumes -?[0-9]+(.[0-9]+)?. Exponent and hex forms
// are rejected as malformed.
func (p *parser) parseNumberLiteral() (Node, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	if p.atEnd() || !isDigit(p.peek()) {
		return nil, p.errorf(start, "expected digit after %q", "-")
	}
	for !p.atEnd() && isDigit(p.peek()) {
		p.pos++
	}
	if p.peek() == '.' {
		p.pos++
		if p.atEnd() || !isDigit(p.peek()) {
			return nil, p.errorf(start, "malformed number literal %q", p.source[start:p.pos])
		}
		for !p.atEnd() && isDigit(p.peek()) {
			p.pos++
		}
	}

	// A letter or second dot immediately after the digits means a malformed
	// literal such as 1e5, 0x1F, or 1.2.3.
	if !p.atEnd() && (isIdentStart(p.peek()) || p.peek() == '.') {
		end := p.pos
		for end < len(p.source) && (isIdentPart(p.source[end]) || p.source[end] == '.') {
			end++
		}
		return nil, p.errorf(start, "malformed number literal %q", p.source[start:end])
	}

	text := p.source[start:p.pos]
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf(start, "malformed number literal %q", text)
	}
	return &NumberLiteral{Value: value}, nil
}

// parseStringLiteral consumes a single-quoted string with escape handling.
func (p *parser) parseStringLiteral() (Node, error) {
	start := p.pos
	p.pos++ // consume opening quote

	var sb strings.Builder
	for !p.atEnd() {
		c := p.source[p.pos]
		switch c {
		case '\'':
			p.pos++
			return &StringLiteral{Value: sb.String()}, nil
		case '\\':
			p.pos++
			if p.atEnd() {
				return nil, p.errorf(start, "unterminated string literal")
			}
			switch p.source[p.pos] {
			case '\\':
				sb.WriteByte('\\')
			case '\'':
				sb.WriteByte('\'')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				return nil, p.errorf(p.pos-1, "invalid escape sequence %q", "\\"+string(p.source[p.pos]))
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return nil, p.errorf(start, "unterminated string literal")
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '_'
}

// IsReference reports whether source is syntactically a resolvable
// expression rather than a plain literal token: a $-prefixed variable
// reference or a function call. Bare identifiers are deliberately excluded
// so that condition comparison values like "MARRIED" stay literal.
func IsReference(source string) bool {
	trimmed := strings.TrimSpace(source)
	if strings.HasPrefix(trimmed, "$") {
		return true
	}
	node, err := Parse(trimmed)
	if err != nil {
		return false
	}
	_, ok := node.(*Call)
	return ok
}
