package source

import (
	"context"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

// MemorySource is an in-memory rule source for testing.
type MemorySource struct {
	rules []*rule.Rule
}

// NewMemorySource creates a new in-memory rule source.
func NewMemorySource(rules ...*rule.Rule) *MemorySource {
	return &MemorySource{
		rules: rules,
	}
}

// LoadRules returns the rules stored in memory.
func (s *MemorySource) LoadRules(ctx context.Context) ([]*rule.Rule, error) {
	// Return a copy to prevent external modification
	rules := make([]*rule.Rule, len(s.rules))
	copy(rules, s.rules)
	return rules, nil
}

// SetRules replaces the rules in memory (for testing).
func (s *MemorySource) SetRules(rules []*rule.Rule) {
	s.rules = rules
}
