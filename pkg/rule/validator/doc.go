// Package validator performs structural and semantic validation of rule
// documents before they reach the engine.
//
// Validation accumulates severity-tagged issues instead of failing on the
// first problem. Error-severity issues make a document unacceptable: the
// engine refuses to evaluate a rule whose validation produced any. Warnings
// flag questionable constructs (naming conventions, bracket gaps) that are
// legal but worth a rule author's attention.
package validator
