// Package rule defines the data model for declarative tax rule documents.
//
// A rule document is conventionally serialized as JSON and declares
// metadata, law-defined constants, progressive bracket tables, input and
// output variable schemas, optional validation rules, optional filing
// schedule metadata, and an ordered flow of calculation steps.
//
// This package only decodes documents into their in-memory form. Structural
// and semantic validation lives in the validator subpackage, and execution
// semantics live in pkg/engine.
package rule
