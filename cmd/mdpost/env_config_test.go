package main

// Notes:
// - loadEnvConfig takes an injected getenv, so every case runs in parallel
//   without t.Setenv.
// - Invalid and non-positive timeouts and worker counts are ignored, not
//   reported.
// - applyEnvConfig is checked for priority: env never overrides a value that
//   is already set.

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alnah/go-mdpost/internal/config"
)

func fakeGetenv(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		vars map[string]string
		want envConfig
	}{
		{
			name: "empty environment",
			vars: nil,
			want: envConfig{},
		},
		{
			name: "all variables",
			vars: map[string]string{
				"MDPOST_CONFIG":     "/etc/mdpost.yaml",
				"MDPOST_OUTPUT_DIR": "public",
				"MDPOST_COLLECTION": "blog",
				"MDPOST_THEME":      "dracula",
				"MDPOST_FORMAT":     "text",
				"MDPOST_SITE_NAME":  "bkase",
				"MDPOST_WORKERS":    "4",
				"MDPOST_TIMEOUT":    "2m",
			},
			want: envConfig{
				ConfigPath: "/etc/mdpost.yaml",
				OutputDir:  "public",
				Collection: "blog",
				Theme:      "dracula",
				Format:     "text",
				SiteName:   "bkase",
				Workers:    4,
				Timeout:    2 * time.Minute,
			},
		},
		{
			name: "invalid numbers are ignored",
			vars: map[string]string{"MDPOST_WORKERS": "many", "MDPOST_TIMEOUT": "soon"},
			want: envConfig{},
		},
		{
			name: "non-positive numbers are ignored",
			vars: map[string]string{"MDPOST_WORKERS": "-2", "MDPOST_TIMEOUT": "-5s"},
			want: envConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := loadEnvConfig(fakeGetenv(tt.vars))
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Errorf("loadEnvConfig() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf, []string{
		"MDPOST_THEME=github",
		"MDPOST_THEMES=github",
		"HOME=/root",
		"MDPOST_WORKER=2",
	})

	want := "warning: unknown environment variable MDPOST_THEMES (typo?)\n" +
		"warning: unknown environment variable MDPOST_WORKER (typo?)\n"
	if got := buf.String(); got != want {
		t.Errorf("warnings = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Priority over config values
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	env := &envConfig{
		OutputDir:  "env-out",
		Collection: "env-posts",
		Theme:      "monokai",
		Format:     "meta",
		SiteName:   "Env Site",
		Workers:    8,
	}

	t.Run("fills empty fields", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{}
		applyEnvConfig(env, cfg)

		want := &config.Config{
			Site:       config.SiteConfig{Name: "Env Site"},
			Collection: config.CollectionConfig{Prefix: "env-posts"},
			Code:       config.CodeConfig{Theme: "monokai"},
			Build:      config.BuildConfig{OutputDir: "env-out", Format: "meta", Workers: 8},
		}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("applyEnvConfig() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("keeps config values", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{
			Site:       config.SiteConfig{Name: "File Site"},
			Collection: config.CollectionConfig{Prefix: "blog"},
			Code:       config.CodeConfig{Theme: "github"},
			Build:      config.BuildConfig{OutputDir: "out", Format: "html", Workers: 2},
		}
		want := *cfg
		applyEnvConfig(env, cfg)

		if diff := cmp.Diff(&want, cfg); diff != "" {
			t.Errorf("applyEnvConfig() overrode config (-want +got):\n%s", diff)
		}
	})
}
