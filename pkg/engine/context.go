package engine

import (
	"github.com/nedpals/opentaxjs/pkg/rule"
)

// Context is the calculation state threaded through one rule evaluation.
// Inputs, Constants, and Tables are fixed at construction; Calculated
// starts empty and only grows as operations assign targets.
type Context struct {
	// Inputs are the typed taxpayer-supplied values ($name).
	Inputs map[string]Value

	// Constants are the rule's law-defined values ($$name).
	Constants map[string]Value

	// Calculated holds the variables produced during flow execution.
	Calculated map[string]Value

	// Tables is the read-only set of bracket tables available to lookup.
	Tables map[string]*rule.Table
}

// NewContext creates an empty evaluation context.
func NewContext() *Context {
	return &Context{
		Inputs:     make(map[string]Value),
		Constants:  make(map[string]Value),
		Calculated: make(map[string]Value),
		Tables:     make(map[string]*rule.Table),
	}
}

// SetCalculated assigns a calculated variable.
func (c *Context) SetCalculated(name string, value Value) {
	c.Calculated[name] = value
}
