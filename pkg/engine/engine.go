package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nedpals/opentaxjs/pkg/rule"
	"github.com/nedpals/opentaxjs/pkg/rule/validator"
)

// Config controls engine behavior.
type Config struct {
	// MaxDepth bounds expression and condition nesting.
	MaxDepth int

	// SkipValidation disables the structural pre-check. Only set this for
	// rules already validated at load time.
	SkipValidation bool

	// EnableTrace records per-step execution traces on the result.
	EnableTrace bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth: 32,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	return nil
}

// Result is the outcome of one rule evaluation.
type Result struct {
	// Outputs maps each declared output to its final value. Outputs never
	// assigned during flow execution hold their type's zero value.
	Outputs map[string]Value

	// Liability is the final value of the liability accumulator.
	Liability float64

	// EvaluationTime is how long the evaluation took.
	EvaluationTime time.Duration

	// Trace holds per-step records when tracing is enabled, nil otherwise.
	Trace []StepTrace
}

// StepTrace records what one flow step did.
type StepTrace struct {
	// Step is the flow step name.
	Step string

	// Case is the name of the matched branch: the guard's source form,
	// "default", or "none" when no case matched.
	Case string

	// Assignments maps targets assigned during the step to their new
	// values.
	Assignments map[string]Value
}

// Engine evaluates tax rules. An Engine is safe for concurrent use; each
// evaluation holds an internal lock so the symbol registry rebuild and the
// flow execution happen atomically.
type Engine struct {
	config    *Config
	logger    *slog.Logger
	validator *validator.Validator

	mu         sync.Mutex
	registry   *SymbolRegistry
	evaluator  *Evaluator
	conditions *ConditionEvaluator
	operations *OperationExecutor
}

// New creates an engine. A nil config uses DefaultConfig; a nil logger
// falls back to slog.Default.
func New(config *Config, logger *slog.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry := NewSymbolRegistry()
	evaluator := NewEvaluator(registry, config.MaxDepth)
	if err := registerBuiltins(registry, evaluator.Functions()); err != nil {
		return nil, fmt.Errorf("failed to register builtins: %w", err)
	}

	return &Engine{
		config:     config,
		logger:     logger,
		validator:  validator.New(),
		registry:   registry,
		evaluator:  evaluator,
		conditions: NewConditionEvaluator(evaluator, config.MaxDepth),
		operations: NewOperationExecutor(evaluator, registry),
	}, nil
}

// Evaluate runs a rule's flow against the provided inputs and returns the
// declared outputs plus the final liability.
func (e *Engine) Evaluate(ctx context.Context, r *rule.Rule, inputs map[string]interface{}) (*Result, error) {
	if r == nil {
		return nil, fmt.Errorf("rule is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	if !e.config.SkipValidation {
		if issues := e.validator.Validate(r); issues.HasErrors() {
			return nil, &RuleEvaluationError{
				Rule:  r.Name,
				Cause: fmt.Errorf("rule failed validation: %w", issues.Errors()),
			}
		}
	}

	e.registry.ClearDynamic()
	ec, err := e.buildContext(r, inputs)
	if err != nil {
		return nil, &RuleEvaluationError{Rule: r.Name, Cause: err}
	}

	if err := e.runValidationRules(ec, r); err != nil {
		return nil, &RuleEvaluationError{Rule: r.Name, Cause: err}
	}

	var trace []StepTrace
	if e.config.EnableTrace {
		trace = make([]StepTrace, 0, len(r.Flow))
	}

	for _, step := range r.Flow {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := e.runStep(ec, step)
		if err != nil {
			return nil, &RuleEvaluationError{Rule: r.Name, Step: step.Name, Cause: err}
		}
		if trace != nil {
			trace = append(trace, record)
		}
	}

	result := &Result{
		Outputs:        e.collectOutputs(ec, r),
		EvaluationTime: time.Since(start),
		Trace:          trace,
	}
	if liability, err := e.evaluator.resolveCalculated(ec, "liability"); err == nil {
		result.Liability = liability.Num
	}

	e.logger.Debug("rule evaluated",
		"rule", r.Name,
		"duration", result.EvaluationTime,
		"liability", result.Liability)
	return result, nil
}

// buildContext registers the rule's symbols and assembles the evaluation
// context: constants, tables, and checked inputs.
func (e *Engine) buildContext(r *rule.Rule, inputs map[string]interface{}) (*Context, error) {
	ec := NewContext()

	for name, raw := range r.Constants {
		if err := e.registry.Add(&Symbol{Name: name, Kind: SymbolConstantVariable, Origin: OriginContext}); err != nil {
			return nil, err
		}
		value, err := FromInterface(raw)
		if err != nil {
			return nil, fmt.Errorf("constant %q: %w", name, err)
		}
		ec.Constants[name] = value
	}

	for name, spec := range r.Inputs {
		if err := e.registry.Add(&Symbol{
			Name:     name,
			Kind:     SymbolInputVariable,
			Origin:   OriginContext,
			TypeHint: ValueType(spec.Type),
		}); err != nil {
			return nil, err
		}
	}

	for name, table := range r.Tables {
		ec.Tables[name] = table
	}

	if err := e.prepareInputs(ec, r, inputs); err != nil {
		return nil, err
	}
	return ec, nil
}

// runValidationRules checks the rule author's input assertions. The first
// condition that does not hold aborts the evaluation.
func (e *Engine) runValidationRules(ec *Context, r *rule.Rule) error {
	for _, vr := range r.Validate {
		if vr.When == nil {
			continue
		}
		ok, err := e.conditions.Evaluate(ec, vr.When)
		if err != nil {
			return err
		}
		if !ok {
			return &RuleViolationError{Message: vr.Message, Condition: vr.When.String()}
		}
	}
	return nil
}

// runStep executes one flow step. For a cases step the first case whose
// guard holds wins; a guard-less default case matches unconditionally; when
// nothing matches the step is a no-op.
func (e *Engine) runStep(ec *Context, step *rule.FlowStep) (StepTrace, error) {
	record := StepTrace{Step: step.Name}

	if len(step.Operations) > 0 {
		assignments, err := e.applyOperations(ec, step.Operations)
		record.Assignments = assignments
		return record, err
	}

	record.Case = "none"
	for _, c := range step.Cases {
		matched := c.IsDefault()
		if !matched {
			ok, err := e.conditions.Evaluate(ec, c.When)
			if err != nil {
				return record, err
			}
			matched = ok
		}
		if !matched {
			continue
		}
		if c.IsDefault() {
			record.Case = "default"
		} else {
			record.Case = c.When.String()
		}
		assignments, err := e.applyOperations(ec, c.Operations)
		record.Assignments = assignments
		return record, err
	}
	return record, nil
}

// applyOperations runs a list of operations in order, recording what each
// assigned. Execution stops at the first failing operation.
func (e *Engine) applyOperations(ec *Context, ops []*rule.Operation) (map[string]Value, error) {
	assignments := make(map[string]Value, len(ops))
	for _, op := range ops {
		if err := e.operations.Apply(ec, op); err != nil {
			return assignments, err
		}
		assignments[op.Target] = ec.Calculated[op.Target]
	}
	return assignments, nil
}

// collectOutputs gathers declared outputs, defaulting any the flow never
// assigned to the declared type's zero.
func (e *Engine) collectOutputs(ec *Context, r *rule.Rule) map[string]Value {
	outputs := make(map[string]Value, len(r.Outputs))
	for name, spec := range r.Outputs {
		if v, ok := ec.Calculated[name]; ok {
			outputs[name] = v
			continue
		}
		outputs[name] = ZeroValue(ValueType(spec.Type))
	}
	return outputs
}
