package source

import (
	"context"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

// Source loads rule documents from a backing store.
type Source interface {
	// LoadRules loads every rule the source knows about.
	LoadRules(ctx context.Context) ([]*rule.Rule, error)
}
