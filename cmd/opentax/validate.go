package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nedpals/opentaxjs/pkg/rule"
	"github.com/nedpals/opentaxjs/pkg/rule/validator"
)

var validateFlags struct {
	strict bool
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate RULE...",
	Short: "Validate rule documents",
	Long: `Validate tax rule documents for structural and flow errors.

The validate command parses each document and reports issues with their
severity and path. The exit code is non-zero when any document carries
error-severity issues (or warnings, in strict mode).

Examples:
  # Validate files
  opentax validate rules/income_tax.json rules/vat.json

  # Strict mode (warnings as errors)
  opentax validate --strict rules/income_tax.json

  # JSON output for CI
  opentax validate --format json rules/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "treat warnings as errors")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

type validationReport struct {
	File   string           `json:"file"`
	Issues validator.Issues `json:"issues"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	v := validator.New()
	var reports []validationReport
	failed := false

	for _, path := range args {
		r, err := rule.ParseFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}

		issues := v.Validate(r)
		reports = append(reports, validationReport{File: path, Issues: issues})
		if issues.HasErrors() || (validateFlags.strict && len(issues.Warnings()) > 0) {
			failed = true
		}
	}

	if validateFlags.format == "json" {
		if err := json.NewEncoder(os.Stdout).Encode(reports); err != nil {
			return err
		}
	} else {
		for _, report := range reports {
			if len(report.Issues) == 0 {
				fmt.Printf("%s: ok\n", report.File)
				continue
			}
			for _, issue := range report.Issues {
				fmt.Printf("%s: %s\n", report.File, issue)
			}
		}
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}
