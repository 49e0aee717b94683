package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/assessment-scraper/internal/config"
	"github.com/jonathan/assessment-scraper/internal/observability"
)

// commonFlags are shared by every subcommand that reads configuration.
type commonFlags struct {
	configPath  string
	databaseURL string
	logLevel    string
	logFormat   string
	verbose     bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to SCRAPER_DATABASE_URL or DATABASE_URL env var)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format: json or text")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print a human-readable summary")
}

// loadConfig builds the effective configuration: config file, then environment, then
// explicitly set flags, then defaults.
func (f *commonFlags) loadConfig(cmd *cobra.Command, stdout io.Writer) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loadedCfg, err := config.LoadConfig(f.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
		if f.verbose {
			_, _ = fmt.Fprintf(stdout, "Loaded config from: %s\n", f.configPath)
		}
	}

	env, err := config.LoadEnv()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return config.Config{}, err
	}

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	return cfg, nil
}

// finish applies defaults, validates and builds the logger.
func finish(cfg config.Config) (config.Config, *slog.Logger, error) {
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger, err := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}
