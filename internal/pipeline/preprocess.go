package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Directive placeholders use Unicode Private Use Area characters.
// They are stripped from authored text and pass through goldmark as plain
// text, so the expanded node can be spliced back after structural parsing.
const (
	PlaceholderStart = "\uE000"
	PlaceholderEnd   = "\uE001"
)

// Precompiled regex patterns for performance.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Fenced code block delimiter (backticks or tildes), up to 3 spaces of indent
	fenceOpen = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})(.*)$")
)

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

var placeholderRunes = strings.NewReplacer(PlaceholderStart, "", PlaceholderEnd, "")

// stripPlaceholders removes placeholder delimiters from authored text so
// only the expander can produce a marker line.
func stripPlaceholders(content string) string {
	return placeholderRunes.Replace(content)
}

// placeholder returns the marker line standing in for directive i.
func placeholder(i int) string {
	return PlaceholderStart + strconv.Itoa(i) + PlaceholderEnd
}

// parsePlaceholder extracts the directive index from a marker line.
func parsePlaceholder(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, PlaceholderStart) || !strings.HasSuffix(s, PlaceholderEnd) {
		return 0, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, PlaceholderStart), PlaceholderEnd)
	i, err := strconv.Atoi(inner)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// fenceTracker follows fenced code blocks line by line.
type fenceTracker struct {
	marker byte // '`' or '~' while inside a fence
	length int
	line   int // line where the open fence started
}

// inside reports whether the last fed line left a fence open.
func (f *fenceTracker) inside() bool { return f.marker != 0 }

// feed consumes one line. It returns true when the line is part of a fence
// (opening, content or closing).
func (f *fenceTracker) feed(line string, lineNo int) bool {
	if f.inside() {
		trimmed := strings.TrimLeft(line, " ")
		if len(line)-len(trimmed) <= 3 && isClosingFence(trimmed, f.marker, f.length) {
			f.marker = 0
		}
		return true
	}
	m := fenceOpen.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	if m[1][0] == '`' && strings.Contains(m[2], "`") {
		return false
	}
	f.marker = m[1][0]
	f.length = len(m[1])
	f.line = lineNo
	return true
}

func isClosingFence(s string, marker byte, length int) bool {
	n := 0
	for n < len(s) && s[n] == marker {
		n++
	}
	return n >= length && strings.TrimSpace(s[n:]) == ""
}
