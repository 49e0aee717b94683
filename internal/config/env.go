package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable read by LoadEnv.
const EnvPrefix = "SCRAPER"

// Env holds settings read from SCRAPER_* environment variables.
type Env struct {
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	ProgressURL   string `envconfig:"PROGRESS_URL"`
	ProgressToken string `envconfig:"PROGRESS_TOKEN"`
	BlobBackend   string `envconfig:"BLOB_BACKEND"`
	BlobDir       string `envconfig:"BLOB_DIR"`
	Headless      string `envconfig:"HEADLESS"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	LogFormat     string `envconfig:"LOG_FORMAT"`
}

// LoadEnv reads the environment overlay. A plain DATABASE_URL is used when
// SCRAPER_DATABASE_URL is not set.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if env.DatabaseURL == "" {
		env.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return &env, nil
}

// ApplyEnv overrides config values with the non-empty environment values.
func (c *Config) ApplyEnv(env *Env) error {
	if env == nil {
		return nil
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&c.DatabaseURL, env.DatabaseURL)
	override(&c.ProgressURL, env.ProgressURL)
	override(&c.ProgressToken, env.ProgressToken)
	override(&c.BlobBackend, env.BlobBackend)
	override(&c.BlobDir, env.BlobDir)
	override(&c.LogLevel, env.LogLevel)
	override(&c.LogFormat, env.LogFormat)

	if env.Headless != "" {
		headless, err := strconv.ParseBool(env.Headless)
		if err != nil {
			return fmt.Errorf("invalid %s_HEADLESS: %v", EnvPrefix, err)
		}
		c.Headless = &headless
	}
	return nil
}

// EnvCredentials resolves site credentials from process environment variables.
type EnvCredentials struct{}

// Lookup returns the value of the named variable and whether it is set and non-empty.
func (EnvCredentials) Lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
