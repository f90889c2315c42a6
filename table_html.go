package mdpost

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-mdpost/internal/config"
	"github.com/alnah/go-mdpost/internal/fileutil"
	"github.com/alnah/go-mdpost/internal/syntax"
)

// HTMLOptions configures HTMLTable.
type HTMLOptions struct {
	// Theme highlights code blocks that do not name their own theme.
	// Empty means "github".
	Theme string
}

var headingTags = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// HTMLTable returns a table producing page markup: highlighted code with
// inline styles, math in "math" spans ready for a client-side typesetter,
// linked footnotes and rel attributes on external links.
func HTMLTable(opts HTMLOptions) (SubstitutionTable, error) {
	theme := opts.Theme
	if theme == "" {
		theme = config.DefaultTheme
	}
	theme, err := ValidateTheme(theme)
	if err != nil {
		return nil, err
	}
	h := &htmlTable{theme: theme}

	t := SubstitutionTable{
		string(syntax.KindDocument):           h.document,
		string(syntax.KindParagraph):          wrap(atom.P),
		string(syntax.KindBlockquote):         wrap(atom.Blockquote),
		KeyOrderedList:                        h.list,
		KeyUnorderedList:                      h.list,
		string(syntax.KindListItem):           h.listItem,
		string(syntax.KindCodeBlock):          h.codeBlock,
		string(syntax.KindThematicBreak):      void(atom.Hr),
		string(syntax.KindHTML):               h.rawHTML,
		string(syntax.KindText):               plainValue,
		string(syntax.KindEmphasis):           wrap(atom.Em),
		string(syntax.KindStrong):             wrap(atom.Strong),
		string(syntax.KindStrikethrough):      wrap(atom.Del),
		string(syntax.KindInlineCode):         h.inlineCode,
		string(syntax.KindLineBreak):          void(atom.Br),
		string(syntax.KindLink):               h.link,
		string(syntax.KindImage):              h.image,
		string(syntax.KindFigure):             wrap(atom.Figure),
		string(syntax.KindFigureCaption):      wrap(atom.Figcaption),
		string(syntax.KindTable):              h.table,
		string(syntax.KindTableRow):           wrap(atom.Tr),
		string(syntax.KindTableCell):          h.tableCell,
		string(syntax.KindSuperscript):        wrap(atom.Sup),
		string(syntax.KindMath):               h.math,
		string(syntax.KindFootnoteReference):  h.footnoteReference,
		string(syntax.KindFootnoteDefinition): h.footnoteDefinition,
		string(syntax.KindDirective):          h.directive,
	}
	for level := 1; level <= 6; level++ {
		t["heading-"+strconv.Itoa(level)] = h.heading
	}
	return t, nil
}

type htmlTable struct {
	theme string
}

func wrap(tag atom.Atom) SubstitutionFunc {
	return func(_ Props, children []*html.Node) *html.Node {
		n := element(tag)
		appendAll(n, children)
		return n
	}
}

func void(tag atom.Atom) SubstitutionFunc {
	return func(Props, []*html.Node) *html.Node { return element(tag) }
}

func (h *htmlTable) document(_ Props, children []*html.Node) *html.Node {
	n := &html.Node{Type: html.DocumentNode}
	appendAll(n, children)
	return n
}

func (h *htmlTable) heading(p Props, children []*html.Node) *html.Node {
	level := min(max(p.Int(syntax.AttrLevel), 1), 6)
	n := element(headingTags[level-1], "id", p.Attr(syntax.AttrID))
	appendAll(n, children)
	return n
}

func (h *htmlTable) list(p Props, children []*html.Node) *html.Node {
	var n *html.Node
	if p.Bool(syntax.AttrOrdered) {
		start := p.Attr(syntax.AttrStart)
		if start == "1" {
			start = ""
		}
		n = element(atom.Ol, "start", start)
	} else {
		n = element(atom.Ul)
	}
	appendAll(n, children)
	return n
}

func (h *htmlTable) listItem(p Props, children []*html.Node) *html.Node {
	if !p.Bool(syntax.AttrTask) {
		n := element(atom.Li)
		appendAll(n, children)
		return n
	}
	n := element(atom.Li, "class", "task-list-item")
	box := element(atom.Input, "type", "checkbox")
	box.Attr = append(box.Attr, html.Attribute{Key: "disabled"})
	if p.Bool(syntax.AttrChecked) {
		box.Attr = append(box.Attr, html.Attribute{Key: "checked"})
	}
	n.AppendChild(box)
	n.AppendChild(textNode(" "))
	appendAll(n, children)
	return n
}

func (h *htmlTable) rawHTML(p Props, _ []*html.Node) *html.Node {
	return &html.Node{Type: html.RawNode, Data: p.Value()}
}

func (h *htmlTable) inlineCode(p Props, _ []*html.Node) *html.Node {
	n := element(atom.Code)
	n.AppendChild(textNode(p.Value()))
	return n
}

// link keeps site-relative links plain and marks absolute web links as
// external.
func (h *htmlTable) link(p Props, children []*html.Node) *html.Node {
	href := p.Attr(syntax.AttrHref)
	attrs := []string{"href", href, "title", p.Attr(syntax.AttrTitle)}
	switch {
	case fileutil.IsURL(href):
		attrs = append(attrs, "class", "external", "rel", "noopener noreferrer")
	case strings.HasPrefix(href, "/"):
		attrs = append(attrs, "class", "internal")
	}
	n := element(atom.A, attrs...)
	appendAll(n, children)
	return n
}

func (h *htmlTable) image(p Props, _ []*html.Node) *html.Node {
	n := element(atom.Img,
		"src", p.Attr(syntax.AttrSrc),
		"title", p.Attr(syntax.AttrTitle),
		"loading", "lazy")
	// alt is kept even when empty: it marks decorative images.
	n.Attr = append(n.Attr, html.Attribute{Key: "alt", Val: p.Attr(syntax.AttrAlt)})
	return n
}

// table splits leading header rows into thead.
func (h *htmlTable) table(_ Props, children []*html.Node) *html.Node {
	n := element(atom.Table)
	var head, body *html.Node
	for _, row := range children {
		if body == nil && isHeaderRow(row) {
			if head == nil {
				head = element(atom.Thead)
				n.AppendChild(head)
			}
			appendAll(head, []*html.Node{row})
			continue
		}
		if body == nil {
			body = element(atom.Tbody)
			n.AppendChild(body)
		}
		appendAll(body, []*html.Node{row})
	}
	return n
}

func isHeaderRow(row *html.Node) bool {
	return row.Type == html.ElementNode && row.FirstChild != nil && row.FirstChild.DataAtom == atom.Th
}

func (h *htmlTable) tableCell(p Props, children []*html.Node) *html.Node {
	tag := atom.Td
	if p.Bool(syntax.AttrHeader) {
		tag = atom.Th
	}
	style := ""
	if align := p.Attr(syntax.AttrAlign); align != "" && align != "none" {
		style = "text-align:" + align
	}
	n := element(tag, "style", style)
	appendAll(n, children)
	return n
}

func (h *htmlTable) math(p Props, _ []*html.Node) *html.Node {
	var n *html.Node
	if p.IsInline() {
		n = element(atom.Span, "class", "math math-inline")
	} else {
		n = element(atom.Div, "class", "math math-display")
	}
	n.AppendChild(textNode(p.Value()))
	return n
}

func (h *htmlTable) footnoteReference(p Props, _ []*html.Node) *html.Node {
	n := element(atom.A,
		"href", "#"+p.Attr(syntax.AttrTarget),
		"id", p.Attr(syntax.AttrID),
		"class", "footnote-ref",
		"role", "doc-noteref")
	n.AppendChild(textNode(p.Attr(syntax.AttrIndex)))
	return n
}

func (h *htmlTable) footnoteDefinition(p Props, children []*html.Node) *html.Node {
	id := p.Attr(syntax.AttrID)
	n := element(atom.Div, "class", "footnote", "id", id, "role", "doc-endnote")
	if idx := p.Attr(syntax.AttrIndex); idx != "" && idx != "0" {
		label := element(atom.Span, "class", "footnote-index")
		label.AppendChild(textNode(idx + "."))
		n.AppendChild(label)
	}
	appendAll(n, children)
	if p.Int(syntax.AttrRefs) > 0 {
		back := element(atom.A,
			"href", "#fnref-"+strings.TrimPrefix(id, "fn-"),
			"class", "footnote-backref",
			"role", "doc-backlink")
		back.AppendChild(textNode("↩"))
		n.AppendChild(back)
	}
	return n
}

// directive renders any directive as a div carrying its name and
// attributes as data-* attributes.
func (h *htmlTable) directive(p Props, children []*html.Node) *html.Node {
	name := p.Attr(syntax.AttrName)
	attrs := []string{"class", "directive directive-" + name, "data-directive", name}
	keys := make([]string, 0, len(p.attrs))
	for k := range p.attrs {
		if k != syntax.AttrName {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, "data-"+k, p.attrs[k])
	}
	n := element(atom.Div, attrs...)
	appendAll(n, children)
	return n
}

// codeBlock highlights the code with chroma, one span per line. Line
// annotations become classes on the line spans (mark, focus, ins, del) and
// labels become data-label.
func (h *htmlTable) codeBlock(p Props, _ []*html.Node) *html.Node {
	theme := p.Attr(syntax.AttrTheme)
	if theme == "" {
		theme = h.theme
	}
	style := styles.Get(theme)
	lang := p.Attr(syntax.AttrLang)
	code := strings.TrimSuffix(p.Value(), "\n")

	notes := make(map[int][]LineAnnotation)
	focused := false
	for _, l := range p.Lines() {
		notes[l.Line] = append(notes[l.Line], l)
		focused = focused || l.Kind == "focus"
	}

	fig := element(atom.Figure, "class", "code-block", "data-lang", lang, "data-theme", theme)
	if title := p.Attr(syntax.AttrTitle); title != "" {
		caption := element(atom.Figcaption)
		caption.AppendChild(textNode(title))
		fig.AppendChild(caption)
	}

	preClass := ""
	if focused {
		preClass = "has-focus"
	}
	pre := element(atom.Pre, "class", preClass, "style", entryCSS(style.Get(chroma.Background), true))
	codeEl := element(atom.Code, "class", languageClass(lang))
	pre.AppendChild(codeEl)
	fig.AppendChild(pre)

	for i, tokens := range highlightLines(lang, code) {
		lineNo := i + 1
		classes := []string{"line"}
		label := ""
		for _, a := range notes[lineNo] {
			classes = append(classes, a.Kind)
			if a.Label != "" {
				label = a.Label
			}
		}
		line := element(atom.Span, "class", strings.Join(classes, " "), "data-line", strconv.Itoa(lineNo), "data-label", label)
		for _, tok := range tokens {
			value := strings.TrimSuffix(tok.Value, "\n")
			if value == "" {
				continue
			}
			if css := entryCSS(style.Get(tok.Type), false); css != "" {
				span := element(atom.Span, "style", css)
				span.AppendChild(textNode(value))
				line.AppendChild(span)
			} else {
				line.AppendChild(textNode(value))
			}
		}
		if i > 0 {
			codeEl.AppendChild(textNode("\n"))
		}
		codeEl.AppendChild(line)
	}
	return fig
}

// highlightLines tokenizes code and splits the tokens into exactly one slice
// per source line. Unknown languages are emitted as plain text.
func highlightLines(lang, code string) [][]chroma.Token {
	count := strings.Count(code, "\n") + 1

	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	var lines [][]chroma.Token
	if it, err := lexer.Tokenise(nil, code); err == nil {
		lines = chroma.SplitTokensIntoLines(it.Tokens())
	} else {
		for _, l := range strings.Split(code, "\n") {
			lines = append(lines, []chroma.Token{{Type: chroma.Text, Value: l}})
		}
	}

	for len(lines) < count {
		lines = append(lines, nil)
	}
	return lines[:count]
}

func languageClass(lang string) string {
	if lang == "" {
		return ""
	}
	return "language-" + lang
}

// entryCSS turns a chroma style entry into inline CSS. Background colors
// are only emitted for the block itself.
func entryCSS(e chroma.StyleEntry, block bool) string {
	var parts []string
	if block && e.Background.IsSet() {
		parts = append(parts, "background-color:"+e.Background.String())
	}
	if e.Colour.IsSet() {
		parts = append(parts, "color:"+e.Colour.String())
	}
	if e.Bold == chroma.Yes {
		parts = append(parts, "font-weight:bold")
	}
	if e.Italic == chroma.Yes {
		parts = append(parts, "font-style:italic")
	}
	if e.Underline == chroma.Yes {
		parts = append(parts, "text-decoration:underline")
	}
	return strings.Join(parts, ";")
}
