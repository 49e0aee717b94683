package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/assessment-scraper/internal/blob"
	"github.com/jonathan/assessment-scraper/internal/browser"
	"github.com/jonathan/assessment-scraper/internal/config"
	"github.com/jonathan/assessment-scraper/internal/db"
	"github.com/jonathan/assessment-scraper/internal/observability"
	"github.com/jonathan/assessment-scraper/internal/progress"
	"github.com/jonathan/assessment-scraper/internal/types"
	"github.com/jonathan/assessment-scraper/internal/workflow"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Scrape the reports or profile data of one code",
	Long: `Logs into the portal selected by --code-type, locates --code and stores every report it offers
(or, for PROFILING_VALUES_SOLL, the profile data of its detail page). The result record is appended to
the database; on failure an error record is appended instead and the command exits non-zero.

Configuration can be loaded from a JSON file using --config. Environment variables (SCRAPER_*) override
the file, and command-line arguments override both.`,
	RunE: runScrapeCmd,
}

var (
	runFlags        commonFlags
	runCode         string
	runCodeType     string
	runID           string
	runHeadless     bool
	runDownloadDir  string
	runBlobBackend  string
	runBlobDir      string
	runProgressURL  string
	runProgressAuth string
)

func init() {
	runFlags.register(runCommand)

	runCommand.Flags().StringVar(&runCode, "code", "", "Code to search for (required)")
	runCommand.Flags().StringVar(&runCodeType, "code-type", "", "Variant: HR_COCKPIT, HR_COCKPIT_SOLL, PROFILING_VALUES or PROFILING_VALUES_SOLL (required)")
	runCommand.Flags().StringVar(&runID, "run-id", "", "Correlation id for progress updates (progress reporting is skipped without it)")
	runCommand.Flags().BoolVar(&runHeadless, "headless", true, "Run Chrome without a window")
	runCommand.Flags().StringVar(&runDownloadDir, "download-dir", "", "Directory for in-flight downloads (temporary directory if empty)")
	runCommand.Flags().StringVar(&runBlobBackend, "blob-backend", "", "Blob store: filesystem or postgres")
	runCommand.Flags().StringVar(&runBlobDir, "blob-dir", "", "Root directory of the filesystem blob store")
	runCommand.Flags().StringVar(&runProgressURL, "progress-url", "", "Progress endpoint (optional, defaults to SCRAPER_PROGRESS_URL)")
	runCommand.Flags().StringVar(&runProgressAuth, "progress-token", "", "Bearer token for the progress endpoint (optional, defaults to SCRAPER_PROGRESS_TOKEN)")

	rootCmd.AddCommand(runCommand)
}

func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Step 1: Validate the request before anything is opened
	req := types.RunRequest{
		Code:     runCode,
		CodeType: types.CodeType(runCodeType),
		RunID:    runID,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	// From here on every failure is reported as the run's terminal FAILED update, and as an
	// error record once the database is open.
	deps := workflow.Dependencies{
		Credentials: config.EnvCredentials{},
		Progress:    newReporter(bootstrapConfig(cmd), req, slog.Default()),
		Logger:      slog.Default(),
	}
	fail := func(err error) error {
		workflow.NewRunner(deps).Fail(ctx, req, err)
		return err
	}

	// Step 2: Load config file, environment and flags
	cfg, err := runFlags.loadConfig(cmd, cmd.OutOrStdout())
	if err != nil {
		return fail(err)
	}
	applyRunFlags(cmd, &cfg)

	cfg, logger, err := finish(cfg)
	if err != nil {
		return fail(err)
	}
	reporter := newReporter(cfg, req, logger)
	deps.Progress = reporter
	deps.Logger = logger
	if !reporter.Enabled() {
		logger.Info("progress reporting disabled", slog.Bool("has_run_id", req.RunID != ""))
	}

	// Step 3: Open the stores
	if cfg.DatabaseURL == "" {
		return fail(fmt.Errorf("SCRAPER_DATABASE_URL or DATABASE_URL environment variable or --db-url flag is required"))
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fail(err)
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return fail(err)
	}
	deps.Results = database
	deps.Progress = workflow.MultiProgress(reporter, db.NewStepLog(database, req, logger))

	blobs, err := openBlobStore(cfg, database)
	if err != nil {
		return fail(err)
	}
	deps.Blobs = blobs

	// Step 4: Start the browser
	session, err := browser.NewSession(ctx, browser.Options{
		Headless:          cfg.IsHeadless(),
		DownloadDir:       cfg.DownloadDir,
		ElementTimeout:    cfg.ElementTimeout(),
		NavigationTimeout: cfg.NavigationTimeout(),
		DownloadTimeout:   cfg.DownloadTimeout(),
		PopupTimeout:      cfg.PopupTimeout(),
		Logger:            logger,
	})
	if err != nil {
		return fail(err)
	}
	defer session.Close()
	deps.Page = session
	deps.Settings = workflowSettings(cfg)

	// Step 5: Run
	rec, runErr := workflow.NewRunner(deps).Run(ctx, req)

	if cfg.Verbose {
		printer := observability.NewPrinter(cmd.OutOrStdout())
		if runErr != nil {
			printer.PrintError(&types.ErrorRecord{
				Code:     req.Code,
				CodeType: req.CodeType,
				RunID:    req.RunID,
				Kind:     workflow.Kind(runErr),
				Error:    runErr.Error(),
			})
		} else {
			printer.PrintResult(rec)
		}
	}

	return runErr
}

// bootstrapConfig resolves the progress endpoint from the environment and flags alone, so a
// run whose config file fails to load can still report its failure.
func bootstrapConfig(cmd *cobra.Command) config.Config {
	var cfg config.Config
	if env, err := config.LoadEnv(); err == nil {
		_ = cfg.ApplyEnv(env)
	}
	applyRunFlags(cmd, &cfg)
	return cfg
}

func newReporter(cfg config.Config, req types.RunRequest, logger *slog.Logger) *progress.Reporter {
	return progress.NewReporter(progress.Options{
		URL:    cfg.ProgressURL,
		Token:  cfg.ProgressToken,
		RunID:  req.RunID,
		Logger: logger,
	})
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("headless") {
		headless := runHeadless
		cfg.Headless = &headless
	}
	if cmd.Flags().Changed("download-dir") {
		cfg.DownloadDir = runDownloadDir
	}
	if cmd.Flags().Changed("blob-backend") {
		cfg.BlobBackend = runBlobBackend
	}
	if cmd.Flags().Changed("blob-dir") {
		cfg.BlobDir = runBlobDir
	}
	if cmd.Flags().Changed("progress-url") {
		cfg.ProgressURL = runProgressURL
	}
	if cmd.Flags().Changed("progress-token") {
		cfg.ProgressToken = runProgressAuth
	}
}

func openBlobStore(cfg config.Config, database *db.DB) (workflow.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendPostgres:
		return db.NewBlobStore(database), nil
	case config.BlobBackendFilesystem, "":
		store, err := blob.NewFileStore(cfg.BlobDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func workflowSettings(cfg config.Config) workflow.Settings {
	return workflow.Settings{
		NavigationTimeout:  cfg.NavigationTimeout(),
		FileAttempts:       cfg.FileRetryAttempts,
		ReportAttempts:     cfg.ReportRetryAttempts,
		RetryDelay:         cfg.RetryDelay(),
		InterDownloadDelay: cfg.InterDownloadDelay(),
		RunTimeout:         cfg.RunTimeout(),
	}
}
