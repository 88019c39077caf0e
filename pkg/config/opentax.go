package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultRulesMode     = "file"
	DefaultRulesPath     = "./rules"
	DefaultRulesWatch    = false
	DefaultGitBranch     = "main"
	DefaultGitTimeout    = 30 * time.Second
	DefaultAuditBackend  = "memory"
	DefaultAuditDBPath   = "data/audit.db"
	DefaultMetricsListen = "127.0.0.1:9090"
	DefaultMaxDepth      = 32
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Config is the top-level configuration for the opentax CLI and daemon.
type Config struct {
	Rules   RulesConfig   `yaml:"rules"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// RulesConfig describes where rule documents come from.
type RulesConfig struct {
	// Mode is "file" or "git".
	Mode string `yaml:"mode"`

	// Path is the rule file or directory for file mode, and the
	// subdirectory inside the repository for git mode.
	Path string `yaml:"path"`

	// Watch enables hot-reload for file mode.
	Watch bool `yaml:"watch"`

	// Git configures the git mode source.
	Git GitRulesConfig `yaml:"git"`
}

// GitRulesConfig configures a Git-backed rule source.
type GitRulesConfig struct {
	Repository string        `yaml:"repository"`
	Branch     string        `yaml:"branch"`
	LocalPath  string        `yaml:"local_path"`
	Depth      int           `yaml:"depth"`
	Timeout    time.Duration `yaml:"timeout"`
	Username   string        `yaml:"username"`
	Token      string        `yaml:"token"`
}

// AuditConfig describes where evaluation records are stored.
type AuditConfig struct {
	// Enabled turns audit recording on.
	Enabled bool `yaml:"enabled"`

	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// DBPath is the SQLite database file for the sqlite backend.
	DBPath string `yaml:"db_path"`
}

// MetricsConfig describes the Prometheus metrics surface.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// EngineConfig carries evaluation settings.
type EngineConfig struct {
	// MaxDepth bounds expression and condition nesting.
	MaxDepth int `yaml:"max_depth"`

	// Trace records per-step execution traces on results.
	Trace bool `yaml:"trace"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Rules.Mode == "" {
		cfg.Rules.Mode = DefaultRulesMode
	}
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = DefaultRulesPath
	}
	if cfg.Rules.Git.Branch == "" {
		cfg.Rules.Git.Branch = DefaultGitBranch
	}
	if cfg.Rules.Git.Timeout == 0 {
		cfg.Rules.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.DBPath == "" {
		cfg.Audit.DBPath = DefaultAuditDBPath
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.Engine.MaxDepth == 0 {
		cfg.Engine.MaxDepth = DefaultMaxDepth
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}

// Validate checks the configuration for inconsistencies.
func Validate(cfg *Config) error {
	switch cfg.Rules.Mode {
	case "file":
	case "git":
		if cfg.Rules.Git.Repository == "" {
			return fmt.Errorf("rules.git.repository is required in git mode")
		}
	default:
		return fmt.Errorf("rules.mode must be \"file\" or \"git\", got %q", cfg.Rules.Mode)
	}

	switch cfg.Audit.Backend {
	case "memory":
	case "sqlite":
		if cfg.Audit.DBPath == "" {
			return fmt.Errorf("audit.db_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("audit.backend must be \"memory\" or \"sqlite\", got %q", cfg.Audit.Backend)
	}

	if cfg.Engine.MaxDepth <= 0 {
		return fmt.Errorf("engine.max_depth must be positive, got %d", cfg.Engine.MaxDepth)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}

	return nil
}

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
