package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mlbench/benchdash/internal/aggregation"
	"github.com/mlbench/benchdash/internal/cache"
	"github.com/mlbench/benchdash/internal/projectconfig"
	"github.com/mlbench/benchdash/internal/provider"
	"github.com/mlbench/benchdash/internal/utils"
	"github.com/spf13/cobra"
)

var version = "dev"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configFile string
	debug      bool
	logFormat  string
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "benchdash",
		Short: "benchdash - ML benchmark dashboard backend",
		Long: `benchdash collects model evaluation results from a model hub, a local
snapshot file or an Azure Blob snapshot, and serves leaderboards, summaries,
correlations and trends over a JSON API.

The serve command runs the API. The snapshot, leaderboard and report commands
compute the same views once and print them.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&g.configFile, "config", "", "Configuration file (default: nearest "+projectconfig.FileName+")")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: text or json")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return g.configureLogging(cmd.ErrOrStderr(), projectconfig.LogConfig{
			Level:  projectconfig.DefaultLogLevel,
			Format: g.logFormat,
		})
	}

	cmd.AddCommand(newServeCommand(g))
	cmd.AddCommand(newSnapshotCommand(g))
	cmd.AddCommand(newLeaderboardCommand(g))
	cmd.AddCommand(newReportCommand(g))
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newConfigCommand(g))

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}

// configureLogging installs the default slog logger. --debug wins over the
// configured level and --log-format over the configured format.
func (g *globalOptions) configureLogging(w io.Writer, lc projectconfig.LogConfig) error {
	level, format := lc.Level, lc.Format
	if g.debug {
		level = "debug"
	}
	if g.logFormat != "" {
		format = g.logFormat
	}
	logger, err := utils.NewLogger(w, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the configuration for cmd. bindings maps configuration
// keys to the names of cmd's flags that override them.
func (g *globalOptions) loadConfig(cmd *cobra.Command, bindings map[string]string) (*projectconfig.Config, error) {
	var opts []projectconfig.LoadOption
	if g.configFile != "" {
		opts = append(opts, projectconfig.WithFile(g.configFile))
	}
	for key, name := range bindings {
		opts = append(opts, projectconfig.WithFlag(key, cmd.Flags().Lookup(name)))
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := projectconfig.Load(wd, opts...)
	if err != nil {
		return nil, err
	}

	// A snapshot path in a config file is relative to that file. Paths from
	// the environment or flags stay relative to the working directory.
	if cfg.Source.Path != "" && cfg.SourcePathFromFile {
		cfg.Source.Path = utils.ResolvePath(cfg.Source.Path, filepath.Dir(cfg.File))
	}

	if err := g.configureLogging(cmd.ErrOrStderr(), cfg.Log); err != nil {
		return nil, err
	}
	slog.Debug("configuration loaded", "file", cfg.File, "source", cfg.Source.Kind)
	return cfg, nil
}

// newOrchestrator wires the configured provider into a cache orchestrator.
func newOrchestrator(cfg *projectconfig.Config, logger *slog.Logger) (*cache.Orchestrator, error) {
	src, err := provider.New(cfg.Source, provider.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	return cache.New(cache.Config{
		Source:       src,
		TTL:          cfg.Cache.TTL(),
		FetchTimeout: cfg.Source.FetchTimeout.Std(),
		Aggregation:  aggregation.OptionsFromConfig(cfg.Aggregation),
		Logger:       logger,
	}), nil
}
