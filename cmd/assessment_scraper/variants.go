package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/assessment-scraper/internal/observability"
	"github.com/jonathan/assessment-scraper/internal/variants"
)

var variantsCommand = &cobra.Command{
	Use:   "variants",
	Short: "List the supported code types",
	Long:  "Prints every supported code type with its portal, navigation path, expected report types and credential variables.",
	RunE:  runVariantsCmd,
}

var variantsJSON bool

// variantSummary is the JSON shape printed by `variants --json`.
type variantSummary struct {
	CodeType          string   `json:"code_type"`
	Name              string   `json:"name"`
	StartURL          string   `json:"start_url"`
	NavLabels         []string `json:"nav_labels,omitempty"`
	FileTypes         []string `json:"file_types,omitempty"`
	IncludesCSVExport bool     `json:"includes_csv_export"`
	UserVar           string   `json:"user_var"`
	PasswordVar       string   `json:"password_var"`
}

func init() {
	variantsCommand.Flags().BoolVar(&variantsJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(variantsCommand)
}

func runVariantsCmd(cmd *cobra.Command, _ []string) error {
	all := variants.All()

	if !variantsJSON {
		observability.NewPrinter(cmd.OutOrStdout()).PrintVariants(all)
		return nil
	}

	out := make([]variantSummary, 0, len(all))
	for _, v := range all {
		out = append(out, variantSummary{
			CodeType:          string(v.ID),
			Name:              v.Name,
			StartURL:          v.StartURL,
			NavLabels:         v.NavLabels,
			FileTypes:         v.FileTypes,
			IncludesCSVExport: v.IncludesCSVExport,
			UserVar:           v.Credentials.UserVar,
			PasswordVar:       v.Credentials.PasswordVar,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
