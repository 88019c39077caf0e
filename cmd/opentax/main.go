// Opentax evaluates declarative tax rules against taxpayer inputs.
//
// Rules are JSON documents describing constants, bracket tables, typed
// inputs, and a sequential calculation flow. The CLI loads a rule,
// validates it, and runs it:
//
//	# Evaluate a rule against inputs
//	opentax evaluate --rule income_tax.json --input gross_income=500000
//
//	# Validate rule documents
//	opentax validate rules/*.json
//
//	# Show the filing schedule for a period
//	opentax schedule --rule income_tax.json --from 2026-01-01 --to 2026-12-31 --liability 62500
//
//	# Show version information
//	opentax version
package main

func main() {
	Execute()
}
