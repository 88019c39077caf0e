package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

// GitConfig configures a Git-backed rule source.
type GitConfig struct {
	// Repository is the clone URL of the rules repository.
	Repository string

	// Branch is the branch to track.
	Branch string

	// Path is the subdirectory inside the repository holding rule files.
	// Empty means the repository root.
	Path string

	// LocalPath is where the repository is cloned. Defaults to a
	// directory under the system temp dir.
	LocalPath string

	// Depth enables shallow clones when positive.
	Depth int

	// Timeout bounds clone and pull operations (default: 30s).
	Timeout time.Duration

	// Username and Token authenticate HTTP remotes. Both empty means
	// anonymous access.
	Username string
	Token    string
}

// Validate checks the Git configuration.
func (c *GitConfig) Validate() error {
	if c.Repository == "" {
		return fmt.Errorf("repository URL cannot be empty")
	}
	if c.Branch == "" {
		return fmt.Errorf("branch cannot be empty")
	}
	return nil
}

// CommitInfo describes the commit a Git source currently serves.
type CommitInfo struct {
	SHA       string
	Author    string
	Email     string
	Timestamp time.Time
	Message   string
	Branch    string
}

// GitSource serves rules from a local checkout of a Git repository.
// Sync clones on first use and pulls afterwards; LoadRules reads from the
// checkout without touching the network.
type GitSource struct {
	config    *GitConfig
	localPath string
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource creates a Git-backed rule source.
func NewGitSource(config *GitConfig, logger *slog.Logger) (*GitSource, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	localPath := config.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "opentax-rules")
	}

	return &GitSource{
		config:    config,
		localPath: localPath,
		logger:    logger,
	}, nil
}

// Sync brings the local checkout up to date: the first call clones the
// repository, later calls pull the tracked branch. It reports whether the
// checkout changed.
func (s *GitSource) Sync(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		if err := s.clone(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return s.pull(ctx)
}

func (s *GitSource) clone(ctx context.Context) error {
	// Reuse an existing checkout when present.
	if _, err := os.Stat(filepath.Join(s.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing checkout: %w", err)
		}
		s.repo = repo
		return nil
	}

	if err := os.MkdirAll(s.localPath, 0755); err != nil {
		return fmt.Errorf("failed to create checkout directory: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.localPath, false, &gogit.CloneOptions{
		URL:           s.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Depth:         s.config.Depth,
		Auth:          s.auth(),
	})
	if err != nil {
		return fmt.Errorf("failed to clone rules repository: %w", err)
	}

	s.repo = repo
	s.logger.Info("cloned rules repository",
		"repository", s.config.Repository,
		"branch", s.config.Branch,
		"path", s.localPath,
	)
	return nil
}

func (s *GitSource) pull(ctx context.Context) (bool, error) {
	head, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD: %w", err)
	}
	before := head.Hash()

	worktree, err := s.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName: "origin",
		Auth:       s.auth(),
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return false, fmt.Errorf("failed to pull rules repository: %w", err)
	}

	head, err = s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get new HEAD: %w", err)
	}

	changed := head.Hash() != before
	if changed {
		s.logger.Info("rules repository updated",
			"from", before.String(),
			"to", head.Hash().String(),
		)
	}
	return changed, nil
}

// LoadRules loads every .json rule file from the checkout. Sync must have
// succeeded at least once.
func (s *GitSource) LoadRules(ctx context.Context) ([]*rule.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, fmt.Errorf("repository not synced, call Sync first")
	}

	rulePath := filepath.Join(s.localPath, s.config.Path)
	fs := NewFileSource(rulePath, s.logger)
	return fs.LoadRules(ctx)
}

// CurrentCommit returns metadata about the commit the checkout is at.
func (s *GitSource) CurrentCommit() (*CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, fmt.Errorf("repository not synced, call Sync first")
	}

	head, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := s.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	return &CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Email:     commit.Author.Email,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
		Branch:    s.config.Branch,
	}, nil
}

func (s *GitSource) timeout() time.Duration {
	if s.config.Timeout > 0 {
		return s.config.Timeout
	}
	return 30 * time.Second
}

func (s *GitSource) auth() transport.AuthMethod {
	if s.config.Token == "" {
		return nil
	}
	username := s.config.Username
	if username == "" {
		// Token-only auth still needs a non-empty username over HTTP.
		username = "git"
	}
	return &http.BasicAuth{
		Username: username,
		Password: s.config.Token,
	}
}
