// Package source provides rule sources for the tax engine.
//
// A rule source is responsible for loading rule documents and, where the
// backing store supports it, watching them for changes. This package
// provides file-based, in-memory, and Git-backed implementations.
//
// # File Source
//
// The file source loads rules from JSON files on disk:
//
//	src := source.NewFileSource("rules/", nil)
//	rules, err := src.LoadRules(ctx)
//
// # Hot-Reload
//
// A Watcher reloads rules when files under a path change:
//
//	w, err := source.NewWatcher("rules/", logger)
//	go w.Run(ctx, func() error {
//	    rules, err := src.LoadRules(ctx)
//	    ...
//	})
//
// # Git Source
//
// The Git source clones a rules repository and serves rule files from the
// local checkout, pulling on demand:
//
//	src, err := source.NewGitSource(&source.GitConfig{
//	    Repository: "https://example.com/tax-rules.git",
//	    Branch:     "main",
//	}, logger)
//
// # In-Memory Source
//
// The in-memory source is useful for testing:
//
//	src := source.NewMemorySource(rules...)
package source
