package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nedpals/opentaxjs/pkg/config"
	"github.com/nedpals/opentaxjs/pkg/engine/source"
	"github.com/nedpals/opentaxjs/pkg/rule/validator"
	"github.com/nedpals/opentaxjs/pkg/telemetry/metrics"
)

var rulesFlags struct {
	config string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the configured rule set",
	Long: `Work with the rule source declared in the configuration file:
list the loaded rules, sync a git-backed source, or watch a local
rule directory and revalidate on change.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules from the configured source",
	RunE:  runRulesList,
}

var rulesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync a git-backed rule source",
	RunE:  runRulesSync,
}

var rulesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the rule directory and revalidate on change",
	RunE:  runRulesWatch,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesSyncCmd, rulesWatchCmd)

	rulesCmd.PersistentFlags().StringVarP(&rulesFlags.config, "config", "c", "", "configuration file (YAML)")
}

// loadRulesConfig reads the --config file, or falls back to defaults so the
// commands work against ./rules out of the box.
func loadRulesConfig() (*config.Config, error) {
	if rulesFlags.config == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(rulesFlags.config)
}

// buildSource constructs the rule source the configuration describes. For
// git mode the checkout is synced before the source is returned.
func buildSource(ctx context.Context, cfg *config.Config) (source.Source, error) {
	logger := newLogger()

	switch cfg.Rules.Mode {
	case "git":
		src, err := source.NewGitSource(&source.GitConfig{
			Repository: cfg.Rules.Git.Repository,
			Branch:     cfg.Rules.Git.Branch,
			Path:       cfg.Rules.Path,
			LocalPath:  cfg.Rules.Git.LocalPath,
			Depth:      cfg.Rules.Git.Depth,
			Timeout:    cfg.Rules.Git.Timeout,
			Username:   cfg.Rules.Git.Username,
			Token:      cfg.Rules.Git.Token,
		}, logger)
		if err != nil {
			return nil, err
		}
		if _, err := src.Sync(ctx); err != nil {
			return nil, err
		}
		return src, nil
	default:
		return source.NewFileSource(cfg.Rules.Path, logger), nil
	}
}

func runRulesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadRulesConfig()
	if err != nil {
		return err
	}

	src, err := buildSource(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	rules, err := src.LoadRules(cmd.Context())
	if err != nil {
		return err
	}

	v := validator.New()
	for _, r := range rules {
		issues := v.Validate(r)
		status := "ok"
		switch {
		case issues.HasErrors():
			status = fmt.Sprintf("invalid (%d errors)", len(issues.Errors()))
		case len(issues.Warnings()) > 0:
			status = fmt.Sprintf("ok (%d warnings)", len(issues.Warnings()))
		}
		fmt.Printf("%-40s %-8s %-12s %s\n", r.Name, r.Jurisdiction, r.Type, status)
	}
	fmt.Printf("%d rules loaded\n", len(rules))
	return nil
}

func runRulesSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadRulesConfig()
	if err != nil {
		return err
	}
	if cfg.Rules.Mode != "git" {
		return fmt.Errorf("rules.mode is %q, sync applies to git sources only", cfg.Rules.Mode)
	}

	src, err := buildSource(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	git, ok := src.(*source.GitSource)
	if !ok {
		return fmt.Errorf("configured source does not support sync")
	}

	commit, err := git.CurrentCommit()
	if err != nil {
		return err
	}
	fmt.Printf("synced %s @ %s (%s)\n", cfg.Rules.Git.Repository, commit.Branch, commit.SHA[:12])
	return nil
}

func runRulesWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadRulesConfig()
	if err != nil {
		return err
	}
	if cfg.Rules.Mode != "file" {
		return fmt.Errorf("rules.mode is %q, watch applies to file sources only", cfg.Rules.Mode)
	}

	logger := newLogger()
	src := source.NewFileSource(cfg.Rules.Path, logger)
	v := validator.New()

	var m *metrics.EvaluationMetrics
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		m = metrics.NewEvaluationMetrics(registry)
		go serveMetrics(cfg.Metrics.Listen, registry, logger)
	}

	revalidate := func() error {
		return revalidateRules(cmd.Context(), src, v, m, logger)
	}

	if err := revalidate(); err != nil {
		return err
	}

	w, err := source.NewWatcher(cfg.Rules.Path, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return w.Run(ctx, revalidate)
}

// revalidateRules reloads the rule set, reports validation errors, and
// records the reload outcome when metrics are enabled.
func revalidateRules(ctx context.Context, src source.Source, v *validator.Validator, m *metrics.EvaluationMetrics, logger *slog.Logger) error {
	rules, err := src.LoadRules(ctx)
	if err != nil {
		if m != nil {
			m.RecordReload("error")
		}
		return err
	}

	invalid := 0
	for _, r := range rules {
		if issues := v.Validate(r); issues.HasErrors() {
			invalid++
			logger.Warn("rule has validation errors",
				"rule", r.Name,
				"file", r.SourceFile,
				"errors", len(issues.Errors()),
			)
		}
	}

	if m != nil {
		outcome := "success"
		if invalid > 0 {
			outcome = "invalid"
		}
		m.RecordReload(outcome)
	}
	return nil
}

// serveMetrics exposes the registry on /metrics for the lifetime of the
// watch process.
func serveMetrics(listen string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logger.Info("metrics listening", "addr", listen)
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Error("metrics server failed", "error", err)
	}
}
