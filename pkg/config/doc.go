// Package config provides configuration management for opentax.
//
// Configuration is loaded from a YAML file, defaults are applied for any
// omitted fields, and the result is validated before use:
//
//	cfg, err := config.LoadConfig("config.yaml")
//
// # Configuration Precedence
//
// Values are applied in the following order (later overrides earlier):
//
//  1. Default values (DefaultConfig)
//  2. Values from the YAML file
//  3. Validation (fails fast if invalid)
//
// # Validation
//
// Validation covers required fields (e.g. a git repository URL when rules
// come from git), enumerated values (rule source mode, audit backend, log
// level and format), and ranges (engine max depth must be positive).
//
// # Example Configuration
//
// A minimal configuration file:
//
//	rules:
//	  mode: "file"
//	  path: "./rules"
//	  watch: true
//
//	audit:
//	  enabled: true
//	  backend: "sqlite"
//	  db_path: "data/audit.db"
//
//	engine:
//	  max_depth: 32
//
//	logging:
//	  level: "info"
//	  format: "text"
package config
