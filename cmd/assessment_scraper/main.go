// Package main provides the entry point for the assessment report scraper CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "assessment_scraper",
	Short: "Assessment report scraper",
	Long: "Assessment report scraper logs into the HR Cockpit and Profiling Values portals, finds a participant or profile by code, " +
		"and stores its reports or profile data together with step-level progress.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
