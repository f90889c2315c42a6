package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-mdpost/internal/config"
)

// envPrefix marks the variables this CLI reads.
const envPrefix = "MDPOST_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // MDPOST_CONFIG: config file path
	OutputDir  string        // MDPOST_OUTPUT_DIR: output directory
	Collection string        // MDPOST_COLLECTION: collection prefix
	Theme      string        // MDPOST_THEME: default code theme
	Format     string        // MDPOST_FORMAT: html, text, meta
	SiteName   string        // MDPOST_SITE_NAME: page title suffix
	Workers    int           // MDPOST_WORKERS: parallel documents
	Timeout    time.Duration // MDPOST_TIMEOUT: per-document timeout
}

// knownEnvVars lists valid MDPOST_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"MDPOST_CONFIG":     true,
	"MDPOST_OUTPUT_DIR": true,
	"MDPOST_COLLECTION": true,
	"MDPOST_THEME":      true,
	"MDPOST_FORMAT":     true,
	"MDPOST_SITE_NAME":  true,
	"MDPOST_WORKERS":    true,
	"MDPOST_TIMEOUT":    true,
}

// loadEnvConfig reads the recognized MDPOST_* values. Malformed numbers and
// durations are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("MDPOST_CONFIG"),
		OutputDir:  getenv("MDPOST_OUTPUT_DIR"),
		Collection: getenv("MDPOST_COLLECTION"),
		Theme:      getenv("MDPOST_THEME"),
		Format:     getenv("MDPOST_FORMAT"),
		SiteName:   getenv("MDPOST_SITE_NAME"),
	}

	if timeout := getenv("MDPOST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if workers := getenv("MDPOST_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars warns about MDPOST_* variables nobody reads, such as
// MDPOST_THEMES for MDPOST_THEME.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Only sets values if the env var is set AND the config value is empty/zero.
// This ensures: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.OutputDir != "" && cfg.Build.OutputDir == "" {
		cfg.Build.OutputDir = env.OutputDir
	}
	if env.Collection != "" && cfg.Collection.Prefix == "" {
		cfg.Collection.Prefix = env.Collection
	}
	if env.Theme != "" && cfg.Code.Theme == "" {
		cfg.Code.Theme = env.Theme
	}
	if env.Format != "" && cfg.Build.Format == "" {
		cfg.Build.Format = env.Format
	}
	if env.SiteName != "" && cfg.Site.Name == "" {
		cfg.Site.Name = env.SiteName
	}
	if env.Workers > 0 && cfg.Build.Workers == 0 {
		cfg.Build.Workers = env.Workers
	}
}
