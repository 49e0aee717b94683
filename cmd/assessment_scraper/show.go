package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/assessment-scraper/internal/db"
	"github.com/jonathan/assessment-scraper/internal/observability"
	"github.com/jonathan/assessment-scraper/internal/types"
)

var showCommand = &cobra.Command{
	Use:   "show",
	Short: "Show the latest result and recent errors of a code",
	RunE:  runShowCmd,
}

var (
	showFlags    commonFlags
	showCode     string
	showCodeType string
	showErrors   int
	showRunID    string
)

func init() {
	showFlags.register(showCommand)
	showCommand.Flags().StringVar(&showCode, "code", "", "Code to look up (required)")
	showCommand.Flags().StringVar(&showCodeType, "code-type", "", "Code type of the code (required)")
	showCommand.Flags().IntVar(&showErrors, "errors", 5, "Number of recent error records to show")
	showCommand.Flags().StringVar(&showRunID, "run-id", "", "Also list the recorded progress steps of this run")
	rootCmd.AddCommand(showCommand)
}

func runShowCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	req := types.RunRequest{Code: showCode, CodeType: types.CodeType(showCodeType)}
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := showFlags.loadConfig(cmd, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	cfg, _, err = finish(cfg)
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

	printer := observability.NewPrinter(cmd.OutOrStdout())
	out := cmd.OutOrStdout()

	latest, err := database.LatestResult(ctx, req.CodeType, req.Code)
	if err != nil {
		return err
	}
	if latest == nil {
		_, _ = fmt.Fprintf(out, "No result stored for %s %s\n", req.CodeType, req.Code)
	} else {
		_, _ = fmt.Fprintf(out, "Latest result from %s\n", latest.CreatedAt.Format("2006-01-02 15:04:05"))
		printer.PrintResult(latest.Record)
	}

	if showErrors > 0 {
		errs, err := database.ListErrors(ctx, req.CodeType, req.Code, showErrors)
		if err != nil {
			return err
		}
		for _, se := range errs {
			_, _ = fmt.Fprintf(out, "Error from %s\n", se.CreatedAt.Format("2006-01-02 15:04:05"))
			printer.PrintError(se.Record)
		}
	}

	if showRunID == "" {
		return nil
	}
	steps, err := database.ListRunSteps(ctx, showRunID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Run %s: %d recorded steps\n", showRunID, len(steps))
	for _, s := range steps {
		_, _ = fmt.Fprintln(out, formatRunStep(s))
	}
	return nil
}

func formatRunStep(s db.RunStep) string {
	line := fmt.Sprintf("  %s  %-9s", s.CreatedAt.Format("15:04:05"), s.Status)
	if s.Done != nil && s.Total != nil {
		line += fmt.Sprintf("  %d/%d", *s.Done, *s.Total)
	}
	if s.Description != "" {
		line += "  " + s.Description
	}
	if s.Error != "" {
		line += "  error: " + s.Error
	}
	return line
}
