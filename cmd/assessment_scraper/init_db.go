package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/assessment-scraper/internal/db"
)

var initDBCommand = &cobra.Command{
	Use:   "init-db",
	Short: "Create the result, error and blob tables",
	Long:  "Creates scrape_results, scrape_errors and report_blobs if they do not exist. Safe to run repeatedly.",
	RunE:  runInitDBCmd,
}

var initDBFlags commonFlags

func init() {
	initDBFlags.register(initDBCommand)
	rootCmd.AddCommand(initDBCommand)
}

func runInitDBCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := initDBFlags.loadConfig(cmd, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	cfg, logger, err := finish(cfg)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("SCRAPER_DATABASE_URL or DATABASE_URL environment variable or --db-url flag is required")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Info("database schema ready")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Database schema ready")
	return nil
}
