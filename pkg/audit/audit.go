package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is one evaluation's audit trail entry.
type Record struct {
	// ID uniquely identifies the evaluation.
	ID string `json:"id"`

	// RuleName and Jurisdiction identify the rule that ran.
	RuleName     string `json:"rule_name"`
	Jurisdiction string `json:"jurisdiction"`

	// Inputs is the caller-provided input snapshot.
	Inputs map[string]interface{} `json:"inputs"`

	// Outputs is the declared-output snapshot, empty when the evaluation
	// failed.
	Outputs map[string]interface{} `json:"outputs,omitempty"`

	// Liability is the final liability, zero when the evaluation failed.
	Liability float64 `json:"liability"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Error holds the failure message for failed evaluations.
	Error string `json:"error,omitempty"`
}

// NewRecord creates a record with a fresh evaluation ID and timestamp.
func NewRecord(ruleName, jurisdiction string) *Record {
	return &Record{
		ID:           uuid.NewString(),
		RuleName:     ruleName,
		Jurisdiction: jurisdiction,
		EvaluatedAt:  time.Now().UTC(),
	}
}

// Succeeded reports whether the recorded evaluation completed.
func (r *Record) Succeeded() bool {
	return r.Error == ""
}

// ListFilter narrows List results. Zero values mean no constraint.
type ListFilter struct {
	// RuleName restricts records to one rule.
	RuleName string

	// Since restricts records to evaluations at or after this time.
	Since time.Time

	// Limit caps the number of returned records, newest first.
	Limit int
}

// Store persists audit records.
type Store interface {
	// Save persists one record.
	Save(ctx context.Context, record *Record) error

	// Get returns the record with the given evaluation ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Record, error)

	// Close releases the store's resources.
	Close() error
}

// ErrNotFound is returned by Get for unknown evaluation IDs.
var ErrNotFound = fmt.Errorf("audit record not found")
