package hints

import (
	"strings"
	"testing"
)

func TestForConfigNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		searched []string
		contains []string
		excludes string
	}{
		{
			name:     "suggests user config path",
			searched: []string{"blog.yaml", "/home/u/.config/go-mdpost/blog.yaml"},
			contains: []string{"--config", "or create /home/u/.config/go-mdpost/blog.yaml"},
		},
		{
			name:     "no user path",
			searched: []string{"blog.yaml"},
			contains: []string{"--config"},
			excludes: "or create",
		},
		{
			name:     "nil paths",
			contains: []string{"--config"},
			excludes: "or create",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hint := ForConfigNotFound(tt.searched)
			for _, want := range tt.contains {
				if !strings.Contains(hint, want) {
					t.Errorf("hint %q should contain %q", hint, want)
				}
			}
			if tt.excludes != "" && strings.Contains(hint, tt.excludes) {
				t.Errorf("hint %q should not contain %q", hint, tt.excludes)
			}
		})
	}
}

func TestForThemeNotFound(t *testing.T) {
	t.Parallel()

	if got := ForThemeNotFound(nil); got != "" {
		t.Errorf("ForThemeNotFound(nil) = %q, want empty", got)
	}
	got := ForThemeNotFound([]string{"github", "monokai"})
	if got != "\n  hint: available: github, monokai" {
		t.Errorf("ForThemeNotFound() = %q", got)
	}
}

func TestForMissingField(t *testing.T) {
	t.Parallel()

	if got := ForMissingField(""); got != "" {
		t.Errorf("ForMissingField(\"\") = %q, want empty", got)
	}
	if got := ForMissingField("summary"); !strings.Contains(got, "`summary:`") {
		t.Errorf("ForMissingField(summary) = %q", got)
	}
}

func TestStaticHints(t *testing.T) {
	t.Parallel()

	hints := map[string]string{
		"ForOutputDirectory":    ForOutputDirectory(),
		"ForInvalidPath":        ForInvalidPath("posts"),
		"ForDirective":          ForDirective(),
		"ForUnterminatedMath":   ForUnterminatedMath(),
		"ForUnresolvedFootnote": ForUnresolvedFootnote(),
	}
	for name, hint := range hints {
		if !strings.HasPrefix(hint, "\n  hint: ") {
			t.Errorf("%s() = %q, want hint prefix", name, hint)
		}
	}
	if !strings.Contains(hints["ForInvalidPath"], "posts/") {
		t.Errorf("ForInvalidPath() = %q, want prefix mentioned", hints["ForInvalidPath"])
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	if got := format(""); got != "" {
		t.Errorf("format(\"\") = %q, want empty", got)
	}
	if got := format("x"); got != "\n  hint: x" {
		t.Errorf("format(x) = %q", got)
	}
}
