package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/solatis/jsonforge/internal/adapters/httpfetch"
	"github.com/solatis/jsonforge/internal/adapters/redis"
	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/core/config"
	"github.com/solatis/jsonforge/internal/core/rulesfile"
	"github.com/solatis/jsonforge/internal/logging"
	"github.com/solatis/jsonforge/internal/pipeline"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/rules"
	"github.com/solatis/jsonforge/internal/types"
)

const Version = "0.1.0"

var configFile string

var rootCmd = &cobra.Command{
	Use:           "jsonforge",
	Short:         "jsonforge JSON rule engine",
	Long:          `jsonforge transforms JSON documents with an ordered list of configurable rules.`,
	Version:       Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration for cmd and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(level, cfg.Log.Format), nil
}

// collaborators builds the fetcher and, when configured, the Redis store
// behind the network components. cleanup releases them.
func collaborators(cfg *config.Config) (deps components.Deps, cleanup func()) {
	deps.Fetcher = httpfetch.New(
		httpfetch.WithTimeout(cfg.HTTP.Timeout),
		httpfetch.WithUserAgent(cfg.HTTP.UserAgent),
	)
	cleanup = func() {}
	if cfg.Redis.Addr != "" {
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		deps.Store = store
		cleanup = func() { _ = store.Close() }
	}
	return deps, cleanup
}

// buildEngine loads the rules file and compiles it.
func buildEngine(cfg *config.Config, logger *slog.Logger, deps components.Deps, opts ...pipeline.Option) (*rules.Engine, []types.RuleSpec, error) {
	if cfg.Transform.RulesFile == "" {
		return nil, nil, fmt.Errorf("no rules file configured (use --rules or transform.rules_file)")
	}
	specs, err := rulesfile.Load(cfg.Transform.RulesFile)
	if err != nil {
		return nil, nil, err
	}
	reg, err := rules.NewRegistries(deps, registry.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	opts = append([]pipeline.Option{pipeline.WithLogger(logger)}, opts...)
	engine, err := rules.NewEngine(reg, specs, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	logger.Debug("rules compiled", "file", cfg.Transform.RulesFile, "rules", len(specs))
	return engine, specs, nil
}
