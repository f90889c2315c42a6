// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"strings"
)

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-mdpost/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-mdpost") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForThemeNotFound lists the available code themes.
func ForThemeNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForMissingField names the front matter key to add.
func ForMissingField(field string) string {
	if field == "" {
		return ""
	}
	return format("add `" + field + ":` to the front matter block")
}

// ForInvalidPath reminds where posts must live.
func ForInvalidPath(prefix string) string {
	return format("posts must be .md or .mdx files under " + prefix + "/ (set --collection to change)")
}

// ForDirective shows the directive syntax.
func ForDirective() string {
	return format("directives open with `:::name attrs` and close with a line holding only `:::`")
}

// ForUnterminatedMath explains math delimiters.
func ForUnterminatedMath() string {
	return format("close math with a matching `$$`, or escape a literal dollar pair as `\\$$`")
}

// ForUnresolvedFootnote explains footnote definitions.
func ForUnresolvedFootnote() string {
	return format("define each reference `[^label]` once with `[^label]: text`")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}
