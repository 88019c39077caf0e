package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nedpals/opentaxjs/pkg/audit"
	"github.com/nedpals/opentaxjs/pkg/engine"
	"github.com/nedpals/opentaxjs/pkg/opentax"
)

var evaluateFlags struct {
	rule    string
	inputs  string
	input   []string
	trace   bool
	format  string
	auditDB string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a rule against taxpayer inputs",
	Long: `Evaluate a tax rule against taxpayer inputs and print the outputs.

Inputs come from a JSON file (--inputs) or from repeated --input key=value
flags. Values given with --input are parsed as numbers or booleans where
possible and kept as strings otherwise.

Examples:
  # Inputs from a file
  opentax evaluate --rule income_tax.json --inputs taxpayer.json

  # Inline inputs
  opentax evaluate --rule income_tax.json --input gross_income=500000 --input filing_status=SINGLE

  # Record the evaluation in a SQLite audit trail
  opentax evaluate --rule income_tax.json --inputs taxpayer.json --audit-db audit.db

  # JSON output for scripting
  opentax evaluate --rule income_tax.json --inputs taxpayer.json --format json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.rule, "rule", "r", "", "rule file to evaluate (required)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.inputs, "inputs", "", "JSON file with input values")
	evaluateCmd.Flags().StringArrayVarP(&evaluateFlags.input, "input", "i", nil, "input value as key=value (repeatable)")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.trace, "trace", false, "print per-step execution trace")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
	evaluateCmd.Flags().StringVar(&evaluateFlags.auditDB, "audit-db", "", "SQLite database to record the evaluation in")
	_ = evaluateCmd.MarkFlagRequired("rule")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	r, err := opentax.LoadRuleFile(evaluateFlags.rule)
	if err != nil {
		return fmt.Errorf("failed to load rule: %w", err)
	}

	inputs, err := collectInputs()
	if err != nil {
		return err
	}

	eng, err := engine.New(&engine.Config{
		MaxDepth: engine.DefaultConfig().MaxDepth,
		// The rule already passed validation during load.
		SkipValidation: true,
		EnableTrace:    evaluateFlags.trace,
	}, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	result, evalErr := eng.Evaluate(cmd.Context(), r, inputs)

	if evaluateFlags.auditDB != "" {
		if err := recordEvaluation(cmd, r.Name, r.Jurisdiction, inputs, result, evalErr, time.Since(start)); err != nil {
			logger.Warn("failed to record audit entry", "error", err)
		}
	}

	if evalErr != nil {
		return evalErr
	}
	return printResult(result)
}

// collectInputs merges the --inputs file with --input flags; flags win.
func collectInputs() (map[string]interface{}, error) {
	inputs := make(map[string]interface{})

	if evaluateFlags.inputs != "" {
		data, err := os.ReadFile(evaluateFlags.inputs)
		if err != nil {
			return nil, fmt.Errorf("failed to read inputs file: %w", err)
		}
		if err := json.Unmarshal(data, &inputs); err != nil {
			return nil, fmt.Errorf("failed to parse inputs file: %w", err)
		}
	}

	for _, pair := range evaluateFlags.input {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --input %q, want key=value", pair)
		}
		inputs[key] = parseInputValue(value)
	}
	return inputs, nil
}

// parseInputValue interprets a flag value as a number or boolean when it
// looks like one, and as a string otherwise.
func parseInputValue(value string) interface{} {
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

func recordEvaluation(cmd *cobra.Command, ruleName, jurisdiction string, inputs map[string]interface{}, result *engine.Result, evalErr error, elapsed time.Duration) error {
	store, err := audit.NewSQLiteStore(evaluateFlags.auditDB)
	if err != nil {
		return err
	}
	defer store.Close()

	record := audit.NewRecord(ruleName, jurisdiction)
	record.Inputs = inputs
	record.Duration = elapsed
	if evalErr != nil {
		record.Error = evalErr.Error()
	} else {
		record.Liability = result.Liability
		record.Outputs = make(map[string]interface{}, len(result.Outputs))
		for name, value := range result.Outputs {
			record.Outputs[name] = value.Interface()
		}
		record.Duration = result.EvaluationTime
	}
	return store.Save(cmd.Context(), record)
}

func printResult(result *engine.Result) error {
	if evaluateFlags.format == "json" {
		outputs := make(map[string]interface{}, len(result.Outputs))
		for name, value := range result.Outputs {
			outputs[name] = value.Interface()
		}
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"outputs":     outputs,
			"liability":   result.Liability,
			"duration_ms": float64(result.EvaluationTime.Microseconds()) / 1000,
		})
	}

	fmt.Println("Outputs:")
	for name, value := range result.Outputs {
		fmt.Printf("  %s = %s\n", name, value)
	}
	fmt.Printf("Liability: %v\n", result.Liability)
	fmt.Printf("Duration: %s\n", result.EvaluationTime)

	if len(result.Trace) > 0 {
		fmt.Println("Trace:")
		for _, step := range result.Trace {
			if step.Case != "" {
				fmt.Printf("  %s (case: %s)\n", step.Step, step.Case)
			} else {
				fmt.Printf("  %s\n", step.Step)
			}
			for target, value := range step.Assignments {
				fmt.Printf("    %s = %s\n", target, value)
			}
		}
	}
	return nil
}
