// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Blob backends
const (
	BlobBackendFilesystem = "filesystem"
	BlobBackendPostgres   = "postgres"
)

// Default values applied by MergeWithDefaults
const (
	DefaultElementTimeoutSeconds     = 30
	DefaultNavigationTimeoutSeconds  = 60
	DefaultDownloadTimeoutSeconds    = 30
	DefaultPopupTimeoutSeconds       = 60
	DefaultFileRetryAttempts         = 3
	DefaultReportRetryAttempts       = 5
	DefaultRetryDelaySeconds         = 2
	DefaultInterDownloadDelaySeconds = 3
	DefaultRunTimeoutSeconds         = 15 * 60
	DefaultBlobDir                   = "data/blobs"
	DefaultLogLevel                  = "info"
	DefaultLogFormat                 = "json"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or come from the environment or CLI flags.
type Config struct {
	// Browser
	Headless    *bool  `json:"headless,omitempty"`     // Run Chrome without a window (default true)
	DownloadDir string `json:"download_dir,omitempty"` // Directory downloads land in before upload (temp dir if empty)

	// Storage
	BlobBackend string `json:"blob_backend,omitempty"` // "filesystem" or "postgres"
	BlobDir     string `json:"blob_dir,omitempty"`     // Root directory of the filesystem blob store
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Progress reporting
	ProgressURL   string `json:"progress_url,omitempty"`   // Progress service endpoint
	ProgressToken string `json:"progress_token,omitempty"` // Bearer token for the progress service

	// Timing
	ElementTimeoutSeconds     int `json:"element_timeout_seconds,omitempty"`
	NavigationTimeoutSeconds  int `json:"navigation_timeout_seconds,omitempty"`
	DownloadTimeoutSeconds    int `json:"download_timeout_seconds,omitempty"`
	PopupTimeoutSeconds       int `json:"popup_timeout_seconds,omitempty"`
	RetryDelaySeconds         int `json:"retry_delay_seconds,omitempty"`
	InterDownloadDelaySeconds int `json:"inter_download_delay_seconds,omitempty"`
	RunTimeoutSeconds         int `json:"run_timeout_seconds,omitempty"`

	// Retries
	FileRetryAttempts   int `json:"file_retry_attempts,omitempty"`   // Attempts per HR report download
	ReportRetryAttempts int `json:"report_retry_attempts,omitempty"` // Attempts per PROFILING_VALUES report

	// Output
	Verbose   bool   `json:"verbose,omitempty"`    // Print a run summary
	LogLevel  string `json:"log_level,omitempty"`  // debug, info, warn, error
	LogFormat string `json:"log_format,omitempty"` // json or text
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	headless := true
	return Config{
		Headless:                  &headless,
		BlobBackend:               BlobBackendFilesystem,
		BlobDir:                   DefaultBlobDir,
		ElementTimeoutSeconds:     DefaultElementTimeoutSeconds,
		NavigationTimeoutSeconds:  DefaultNavigationTimeoutSeconds,
		DownloadTimeoutSeconds:    DefaultDownloadTimeoutSeconds,
		PopupTimeoutSeconds:       DefaultPopupTimeoutSeconds,
		RetryDelaySeconds:         DefaultRetryDelaySeconds,
		InterDownloadDelaySeconds: DefaultInterDownloadDelaySeconds,
		RunTimeoutSeconds:         DefaultRunTimeoutSeconds,
		FileRetryAttempts:         DefaultFileRetryAttempts,
		ReportRetryAttempts:       DefaultReportRetryAttempts,
		LogLevel:                  DefaultLogLevel,
		LogFormat:                 DefaultLogFormat,
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.BlobBackend != "" && c.BlobBackend != BlobBackendFilesystem && c.BlobBackend != BlobBackendPostgres {
		return fmt.Errorf("config error: 'blob_backend' must be %q or %q, got %q",
			BlobBackendFilesystem, BlobBackendPostgres, c.BlobBackend)
	}

	// Validate numeric ranges
	numeric := []struct {
		name  string
		value int
	}{
		{"element_timeout_seconds", c.ElementTimeoutSeconds},
		{"navigation_timeout_seconds", c.NavigationTimeoutSeconds},
		{"download_timeout_seconds", c.DownloadTimeoutSeconds},
		{"popup_timeout_seconds", c.PopupTimeoutSeconds},
		{"retry_delay_seconds", c.RetryDelaySeconds},
		{"inter_download_delay_seconds", c.InterDownloadDelaySeconds},
		{"run_timeout_seconds", c.RunTimeoutSeconds},
		{"file_retry_attempts", c.FileRetryAttempts},
		{"report_retry_attempts", c.ReportRetryAttempts},
	}
	for _, n := range numeric {
		if n.value < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", n.name)
		}
	}

	if c.LogLevel != "" {
		switch strings.ToLower(c.LogLevel) {
		case "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("config error: unknown 'log_level' %q", c.LogLevel)
		}
	}
	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("config error: 'log_format' must be \"json\" or \"text\", got %q", c.LogFormat)
	}

	if c.BlobBackend == BlobBackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("config error: blob backend %q requires 'database_url'", BlobBackendPostgres)
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DownloadDir == "" {
		result.DownloadDir = defaults.DownloadDir
	}
	if result.BlobBackend == "" {
		result.BlobBackend = defaults.BlobBackend
	}
	if result.BlobDir == "" {
		result.BlobDir = defaults.BlobDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ProgressURL == "" {
		result.ProgressURL = defaults.ProgressURL
	}
	if result.ProgressToken == "" {
		result.ProgressToken = defaults.ProgressToken
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	// Int fields: use default if zero
	mergeInt(&result.ElementTimeoutSeconds, defaults.ElementTimeoutSeconds)
	mergeInt(&result.NavigationTimeoutSeconds, defaults.NavigationTimeoutSeconds)
	mergeInt(&result.DownloadTimeoutSeconds, defaults.DownloadTimeoutSeconds)
	mergeInt(&result.PopupTimeoutSeconds, defaults.PopupTimeoutSeconds)
	mergeInt(&result.RetryDelaySeconds, defaults.RetryDelaySeconds)
	mergeInt(&result.InterDownloadDelaySeconds, defaults.InterDownloadDelaySeconds)
	mergeInt(&result.RunTimeoutSeconds, defaults.RunTimeoutSeconds)
	mergeInt(&result.FileRetryAttempts, defaults.FileRetryAttempts)
	mergeInt(&result.ReportRetryAttempts, defaults.ReportRetryAttempts)

	// Headless is a pointer so an explicit false in the file survives the merge
	if result.Headless == nil && defaults.Headless != nil {
		v := *defaults.Headless
		result.Headless = &v
	}

	return result
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// IsHeadless reports the effective headless setting (true when unset).
func (c *Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// ElementTimeout returns the element wait timeout.
func (c *Config) ElementTimeout() time.Duration {
	return seconds(c.ElementTimeoutSeconds)
}

// NavigationTimeout returns the page navigation timeout.
func (c *Config) NavigationTimeout() time.Duration {
	return seconds(c.NavigationTimeoutSeconds)
}

// DownloadTimeout returns the per-download timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return seconds(c.DownloadTimeoutSeconds)
}

// PopupTimeout returns the popup window timeout.
func (c *Config) PopupTimeout() time.Duration {
	return seconds(c.PopupTimeoutSeconds)
}

// RetryDelay returns the fixed delay between retry attempts.
func (c *Config) RetryDelay() time.Duration {
	return seconds(c.RetryDelaySeconds)
}

// InterDownloadDelay returns the pause after each non-JSON PROFILING_VALUES report.
func (c *Config) InterDownloadDelay() time.Duration {
	return seconds(c.InterDownloadDelaySeconds)
}

// RunTimeout returns the overall run deadline.
func (c *Config) RunTimeout() time.Duration {
	return seconds(c.RunTimeoutSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
