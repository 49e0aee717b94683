package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/assessment-scraper/internal/blob"
	"github.com/jonathan/assessment-scraper/internal/db"
)

var blobCommand = &cobra.Command{
	Use:   "blob <locator>",
	Short: "Fetch a stored report by its locator",
	Long:  "Reads a report from a file:// or pg://report_blobs/ locator as found in a result record and writes it to --out (stdout if empty).",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlobCmd,
}

var (
	blobFlags commonFlags
	blobOut   string
)

func init() {
	blobFlags.register(blobCommand)
	blobCommand.Flags().StringVarP(&blobOut, "out", "o", "", "Output file (stdout if empty)")
	rootCmd.AddCommand(blobCommand)
}

func runBlobCmd(cmd *cobra.Command, args []string) error {
	data, err := fetchBlob(cmd, args[0])
	if err != nil {
		return err
	}

	if blobOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(blobOut, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", blobOut, err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), blobOut)
	return nil
}

func fetchBlob(cmd *cobra.Command, locator string) ([]byte, error) {
	switch {
	case strings.HasPrefix(locator, blob.FileScheme):
		return blob.ReadLocator(locator)

	case strings.HasPrefix(locator, db.BlobScheme):
		ctx := context.Background()
		cfg, err := blobFlags.loadConfig(cmd, cmd.OutOrStdout())
		if err != nil {
			return nil, err
		}
		cfg, _, err = finish(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("SCRAPER_DATABASE_URL or DATABASE_URL environment variable or --db-url flag is required")
		}

		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer database.Close()

		b, err := db.NewBlobStore(database).Get(ctx, locator)
		if err != nil {
			return nil, err
		}
		return b.Data, nil

	default:
		return nil, fmt.Errorf("unsupported locator %q (expected %s or %s)", locator, blob.FileScheme, db.BlobScheme)
	}
}
