// Package config loads the YAML settings shared by the library and the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-mdpost/internal/dateutil"
	"github.com/alnah/go-mdpost/internal/fileutil"
	"github.com/alnah/go-mdpost/internal/pipeline"
	"github.com/alnah/go-mdpost/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxSiteNameLength   = 100  // Shown in page titles
	MaxURLLength        = 2048 // Browser limit
	MaxPrefixLength     = 100  // "posts", "blog/notes"
	MaxThemeLength      = 50   // chroma style names are short
	MaxDateFormatLength = dateutil.MaxDateFormatLength
	MaxDirLength        = 4096 // PATH_MAX on Linux
)

// MaxWorkers bounds Build.Workers. Zero means automatic.
const MaxWorkers = 64

// Output formats written by the CLI.
const (
	FormatHTML = "html"
	FormatText = "text"
	FormatMeta = "meta"
)

// Defaults.
const (
	DefaultCollection = "posts"
	DefaultTheme      = "github"
	DefaultFormat     = FormatHTML
	DefaultDateFormat = "long"
)

// Config holds all settings for ingesting and rendering posts.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Collection CollectionConfig `yaml:"collection"`
	Code       CodeConfig       `yaml:"code"`
	Dates      DatesConfig      `yaml:"dates"`
	Build      BuildConfig      `yaml:"build"`
}

// SiteConfig describes the publishing site.
type SiteConfig struct {
	Name string `yaml:"name"` // Appended to page titles
	URL  string `yaml:"url"`  // Base for absolute links (empty = relative only)
}

// CollectionConfig locates posts within the content tree.
type CollectionConfig struct {
	Prefix string `yaml:"prefix"` // First path segment of every post (default: "posts")
}

// CodeConfig defines code block highlighting.
type CodeConfig struct {
	Theme string `yaml:"theme"` // chroma style name (default: "github")
}

// DatesConfig defines how publish dates are displayed.
type DatesConfig struct {
	Format string `yaml:"format"` // Preset (iso, european, us, long) or tokens
}

// BuildConfig defines CLI build options.
type BuildConfig struct {
	OutputDir string `yaml:"outputDir"` // Empty = current directory
	Format    string `yaml:"format"`    // html, text, meta
	Workers   int    `yaml:"workers"`   // 0 = automatic
}

// Validate checks field lengths and values. Called automatically by
// LoadConfig, but available for callers who construct Config manually.
// Empty values are valid and mean "use the default".
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"site.name", c.Site.Name, MaxSiteNameLength},
		{"site.url", c.Site.URL, MaxURLLength},
		{"collection.prefix", c.Collection.Prefix, MaxPrefixLength},
		{"code.theme", c.Code.Theme, MaxThemeLength},
		{"dates.format", c.Dates.Format, MaxDateFormatLength},
		{"build.outputDir", c.Build.OutputDir, MaxDirLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if p := c.Collection.Prefix; p != "" {
		if strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") || strings.Contains(p, "..") || strings.Contains(p, "\\") {
			return fmt.Errorf("%w: collection.prefix %q (must be a relative path without \"..\")", ErrInvalidValue, p)
		}
	}
	if c.Code.Theme != "" {
		if _, err := pipeline.ValidateTheme(c.Code.Theme); err != nil {
			return fmt.Errorf("%w: code.theme: %v", ErrInvalidValue, err)
		}
	}
	if c.Dates.Format != "" {
		if _, err := dateutil.Layout(c.Dates.Format); err != nil {
			return fmt.Errorf("%w: dates.format: %v", ErrInvalidValue, err)
		}
	}
	switch strings.ToLower(c.Build.Format) {
	case "", FormatHTML, FormatText, FormatMeta:
	default:
		return fmt.Errorf("%w: build.format %q (must be html, text, or meta)", ErrInvalidValue, c.Build.Format)
	}
	if c.Build.Workers < 0 || c.Build.Workers > MaxWorkers {
		return fmt.Errorf("%w: build.workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Build.Workers)
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Collection: CollectionConfig{Prefix: DefaultCollection},
		Code:       CodeConfig{Theme: DefaultTheme},
		Dates:      DatesConfig{Format: DefaultDateFormat},
		Build:      BuildConfig{Format: DefaultFormat},
	}
}

// WithDefaults returns a copy with empty fields filled from DefaultConfig.
func (c *Config) WithDefaults() *Config {
	out := *c
	def := DefaultConfig()
	if out.Collection.Prefix == "" {
		out.Collection.Prefix = def.Collection.Prefix
	}
	if out.Code.Theme == "" {
		out.Code.Theme = def.Code.Theme
	}
	if out.Dates.Format == "" {
		out.Dates.Format = def.Dates.Format
	}
	if out.Build.Format == "" {
		out.Build.Format = def.Build.Format
	}
	out.Build.Format = strings.ToLower(out.Build.Format)
	return &out
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-mdpost/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-mdpost", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
