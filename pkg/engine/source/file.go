package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

// FileSource loads rule documents from JSON files on disk. The path may be
// a single file or a directory; directories are walked recursively and
// every .json file is treated as one rule document.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based rule source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{path: path, logger: logger}
}

// LoadRules loads every rule under the configured path. Files that fail to
// parse are skipped with a warning so one broken document does not take the
// whole rule set down.
func (s *FileSource) LoadRules(ctx context.Context) ([]*rule.Rule, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	if !info.IsDir() {
		r, err := rule.ParseFile(s.path)
		if err != nil {
			return nil, err
		}
		return []*rule.Rule{r}, nil
	}

	var rules []*rule.Rule
	walkErr := filepath.WalkDir(s.path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p != s.path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), ".json") {
			return nil
		}

		r, err := rule.ParseFile(p)
		if err != nil {
			s.logger.Warn("skipping unreadable rule file", "path", p, "error", err)
			return nil
		}

		s.logger.Debug("loaded rule", "path", p, "rule", r.Name, "steps", len(r.Flow))
		rules = append(rules, r)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk rule directory %q: %w", s.path, walkErr)
	}

	s.logger.Info("rules loaded", "path", s.path, "count", len(rules))
	return rules, nil
}
