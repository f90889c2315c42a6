package pipeline

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/styles"

	"github.com/alnah/go-mdpost/internal/syntax"
)

// MaxDirectiveDepth bounds container directive nesting.
const MaxDirectiveDepth = 8

const (
	stageDirective = "directive"
	codeDirective  = "code"
)

var (
	directiveOpen  = regexp.MustCompile(`^:::([A-Za-z][A-Za-z0-9_-]*)(?:[ \t]+(.*?))?[ \t]*$`)
	directiveClose = regexp.MustCompile(`^:::[ \t]*$`)

	// Trailing marker such as "// [!mark]" or "# [!ins:new]" on a code line
	lineMarker = regexp.MustCompile(`[ \t]*(?:(?://|#|--|;)[ \t]*)?\[!(mark|focus|ins|del)(?::([^\]]*))?\][ \t]*$`)
)

// Annotation kinds accepted as code directive attributes and inline markers.
var annotationKinds = []string{"mark", "focus", "ins", "del"}

var codeAttrs = map[string]bool{
	"lang": true, "title": true, "theme": true,
	"mark": true, "focus": true, "ins": true, "del": true,
}

// Attribute keys a custom directive cannot set.
var reservedAttrs = map[string]bool{
	syntax.AttrName: true, syntax.AttrValue: true, syntax.AttrArgs: true,
}

// ValidateTheme returns the registered chroma style name matching name.
func ValidateTheme(name string) (string, error) {
	if canonical, ok := lookupTheme(name); ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTheme, name)
}

// Themes lists the registered chroma style names in lexical order.
func Themes() []string { return styles.Names() }

func lookupTheme(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if _, ok := styles.Registry[name]; ok {
		return name, true
	}
	for _, n := range styles.Names() {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}

// expansion is the Phase A result: Markdown with one placeholder paragraph
// per top-level directive.
type expansion struct {
	source string
	lines  []int // original 1-based line of each source line
	blocks []directiveBlock
}

// originalLine maps a 1-based line of source back to the authored body.
func (e *expansion) originalLine(line int) int {
	if line < 1 || len(e.lines) == 0 {
		return 0
	}
	if line > len(e.lines) {
		return e.lines[len(e.lines)-1]
	}
	return e.lines[line-1]
}

type directiveBlock struct {
	node *syntax.Node // code-block, or custom-directive without children
	body *expansion   // custom directive body; nil for code
}

// expander performs Phase A.
type expander struct {
	theme string // default code theme
}

func newExpander(theme string) (*expander, error) {
	canonical, err := ValidateTheme(theme)
	if err != nil {
		return nil, err
	}
	return &expander{theme: canonical}, nil
}

func (e *expander) expand(body string) (*expansion, error) {
	body = stripPlaceholders(normalizeLineEndings(body))
	return e.expandLines(strings.Split(body, "\n"), 1, 1)
}

func (e *expander) expandLines(lines []string, first, depth int) (*expansion, error) {
	exp := &expansion{}
	out := make([]string, 0, len(lines))
	var fence fenceTracker

	for i := 0; i < len(lines); i++ {
		lineNo := first + i
		line := lines[i]

		if !fence.inside() {
			if m := directiveOpen.FindStringSubmatch(line); m != nil {
				pos := syntax.Position{Line: lineNo, Column: 1}
				name := m[1]
				if depth > MaxDirectiveDepth {
					return nil, positionErr(stageDirective, pos, ErrDirective,
						"directives nested deeper than %d", MaxDirectiveDepth)
				}
				end := closingLine(lines, i, name == codeDirective)
				if end < 0 {
					return nil, positionErr(stageDirective, pos, ErrDirective, "unterminated directive %q", name)
				}
				attrs, err := parseAttrs(m[2])
				if err != nil {
					return nil, positionErr(stageDirective, pos, ErrDirective, "%s: %v", name, err)
				}
				block, err := e.block(name, attrs, lines[i+1:end], pos, depth)
				if err != nil {
					return nil, err
				}

				out = append(out, "", placeholder(len(exp.blocks)), "")
				exp.lines = append(exp.lines, lineNo, lineNo, first+end)
				exp.blocks = append(exp.blocks, block)
				i = end
				continue
			}
		}

		fence.feed(line, lineNo)
		out = append(out, line)
		exp.lines = append(exp.lines, lineNo)
	}

	exp.source = strings.Join(out, "\n")
	return exp, nil
}

// closingLine returns the index of the line closing the directive opened at
// lines[open], or -1. Code bodies are verbatim: the first ::: closes them.
func closingLine(lines []string, open int, verbatim bool) int {
	nested := 0
	var fence fenceTracker
	for j := open + 1; j < len(lines); j++ {
		line := lines[j]
		if verbatim {
			if directiveClose.MatchString(line) {
				return j
			}
			continue
		}
		if fence.inside() {
			fence.feed(line, j)
			continue
		}
		switch {
		case directiveOpen.MatchString(line):
			nested++
		case directiveClose.MatchString(line):
			if nested == 0 {
				return j
			}
			nested--
		default:
			fence.feed(line, j)
		}
	}
	return -1
}

func (e *expander) block(name string, attrs directiveAttrs, body []string, pos syntax.Position, depth int) (directiveBlock, error) {
	if name == codeDirective {
		n, err := e.codeBlock(attrs, body, pos)
		return directiveBlock{node: n}, err
	}

	n := syntax.New(syntax.KindDirective, pos).SetAttr(syntax.AttrName, name)
	for _, k := range attrs.keys() {
		if reservedAttrs[k] {
			return directiveBlock{}, positionErr(stageDirective, pos, ErrDirective,
				"%s: attribute %q is reserved", name, k)
		}
		n.SetAttr(k, attrs.named[k])
	}
	if len(attrs.args) > 0 {
		n.SetAttr(syntax.AttrArgs, strings.Join(attrs.args, " "))
	}

	sub, err := e.expandLines(body, pos.Line+1, depth+1)
	if err != nil {
		return directiveBlock{}, err
	}
	return directiveBlock{node: n, body: sub}, nil
}

func (e *expander) codeBlock(a directiveAttrs, body []string, pos syntax.Position) (*syntax.Node, error) {
	fail := func(format string, args ...any) error {
		return positionErr(stageDirective, pos, ErrDirective, format, args...)
	}

	for _, k := range a.keys() {
		if !codeAttrs[k] {
			return nil, fail("code: unknown attribute %q", k)
		}
	}

	lang := a.named["lang"]
	switch {
	case len(a.args) > 1:
		return nil, fail("code: expected one language, got %q", strings.Join(a.args, " "))
	case len(a.args) == 1 && lang != "":
		return nil, fail("code: language given twice")
	case len(a.args) == 1:
		lang = a.args[0]
	}

	theme := e.theme
	if t, ok := a.named["theme"]; ok {
		canonical, found := lookupTheme(t)
		if !found {
			return nil, fail("code: %v: %q", ErrUnknownTheme, t)
		}
		theme = canonical
	}

	code := make([]string, len(body))
	var notes []syntax.LineAnnotation
	for i, line := range body {
		for {
			m := lineMarker.FindStringSubmatchIndex(line)
			if m == nil {
				break
			}
			note := syntax.LineAnnotation{Line: i + 1, Kind: line[m[2]:m[3]]}
			if m[4] >= 0 {
				note.Label = strings.TrimSpace(line[m[4]:m[5]])
			}
			notes = append(notes, note)
			line = line[:m[0]]
		}
		code[i] = line
	}

	for _, kind := range annotationKinds {
		spec, ok := a.named[kind]
		if !ok {
			continue
		}
		nums, err := parseLineRanges(spec, len(body))
		if err != nil {
			return nil, fail("code: %s: %v", kind, err)
		}
		for _, n := range nums {
			notes = append(notes, syntax.LineAnnotation{Line: n, Kind: kind})
		}
	}

	n := syntax.New(syntax.KindCodeBlock, pos).
		SetAttr(syntax.AttrValue, strings.Join(code, "\n")).
		SetAttr(syntax.AttrTheme, theme)
	if lang != "" {
		n.SetAttr(syntax.AttrLang, lang)
	}
	if title := a.named["title"]; title != "" {
		n.SetAttr(syntax.AttrTitle, title)
	}
	n.Lines = normalizeAnnotations(notes)
	return n, nil
}

// parseLineRanges expands "1,3-4" into line numbers within 1..count.
func parseLineRanges(spec string, count int) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("empty line range")
	}
	var out []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid line %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid line range %q", part)
			}
		}
		if from < 1 || to < from || to > count {
			return nil, fmt.Errorf("line range %q outside 1-%d", part, count)
		}
		for l := from; l <= to; l++ {
			out = append(out, l)
		}
	}
	return out, nil
}

// normalizeAnnotations sorts annotations and keeps one per line and kind,
// preferring a labeled one.
func normalizeAnnotations(notes []syntax.LineAnnotation) []syntax.LineAnnotation {
	if len(notes) == 0 {
		return nil
	}
	slices.SortFunc(notes, func(a, b syntax.LineAnnotation) int {
		if c := cmp.Compare(a.Line, b.Line); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(b.Label, a.Label)
	})
	out := notes[:1]
	for _, n := range notes[1:] {
		last := out[len(out)-1]
		if n.Line == last.Line && n.Kind == last.Kind {
			continue
		}
		out = append(out, n)
	}
	return out
}

// directiveAttrs holds the parsed remainder of a directive opening line.
type directiveAttrs struct {
	args  []string
	named map[string]string
}

func (a directiveAttrs) keys() []string {
	keys := make([]string, 0, len(a.named))
	for k := range a.named {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// parseAttrs reads positional words and key=value pairs. Values may be
// double-quoted with Go escapes.
func parseAttrs(s string) (directiveAttrs, error) {
	a := directiveAttrs{named: make(map[string]string)}
	for i := 0; i < len(s); {
		if s[i] == ' ' || s[i] == '\t' {
			i++
			continue
		}
		start := i
		for i < len(s) && !strings.ContainsRune(" \t=\"", rune(s[i])) {
			i++
		}
		word := s[start:i]

		switch {
		case i < len(s) && s[i] == '=':
			if word == "" {
				return a, fmt.Errorf("attribute without a name at offset %d", start)
			}
			value, n, err := attrValue(s[i+1:])
			if err != nil {
				return a, err
			}
			if _, dup := a.named[word]; dup {
				return a, fmt.Errorf("duplicate attribute %q", word)
			}
			a.named[word] = value
			i += 1 + n
		case i < len(s) && s[i] == '"':
			if word != "" {
				return a, fmt.Errorf("unexpected quote after %q", word)
			}
			value, n, err := attrValue(s[i:])
			if err != nil {
				return a, err
			}
			a.args = append(a.args, value)
			i += n
		default:
			a.args = append(a.args, word)
		}
	}
	return a, nil
}

// attrValue reads a bare or quoted value at the start of s and returns it
// with the number of bytes consumed.
func attrValue(s string) (string, int, error) {
	if s == "" || s[0] == ' ' || s[0] == '\t' {
		return "", 0, nil
	}
	if s[0] != '"' {
		n := strings.IndexAny(s, " \t")
		if n < 0 {
			n = len(s)
		}
		if strings.Contains(s[:n], `"`) {
			return "", 0, fmt.Errorf("unexpected quote in %q", s[:n])
		}
		return s[:n], n, nil
	}
	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			v, err := strconv.Unquote(s[:j+1])
			if err != nil {
				return "", 0, fmt.Errorf("invalid quoted value %s", s[:j+1])
			}
			return v, j + 1, nil
		}
	}
	return "", 0, fmt.Errorf("unterminated quoted value %s", s)
}
