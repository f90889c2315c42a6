package pipeline

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/alnah/go-mdpost/internal/syntax"
)

const stageParse = "parse"

// markdownParser performs Phase B.
type markdownParser struct {
	md goldmark.Markdown
}

// newMarkdownParser creates a CommonMark parser with heading IDs and the
// footnote and math parsers. GFM extensions are not registered: tables,
// strikethrough, autolinks and task lists are tree stages.
func newMarkdownParser() *markdownParser {
	md := goldmark.New(
		goldmark.WithExtensions(postSyntax{}),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &markdownParser{md: md}
}

// parse validates and parses an expansion, then splices directive nodes back
// in place of their placeholders. Directive bodies share the document's
// heading id set, so ids stay unique across the whole tree.
func (p *markdownParser) parse(ctx context.Context, exp *expansion) (*syntax.Node, error) {
	return p.parseWithIDs(ctx, exp, parser.NewContext().IDs())
}

// parseWithIDs parses one expansion. Goldmark does not take a context, so
// the parse runs in a goroutine and cancellation is observed via select.
func (p *markdownParser) parseWithIDs(ctx context.Context, exp *expansion, ids parser.IDs) (*syntax.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateStructure(exp); err != nil {
		return nil, err
	}

	type result struct {
		tree *syntax.Node
		err  error
	}
	done := make(chan result, 1)

	go func() {
		src := []byte(exp.source)
		pc := parser.NewContext(parser.WithIDs(ids))
		doc := p.md.Parser().Parse(text.NewReader(src), parser.WithContext(pc))
		tree, err := newConverter(src, exp).document(doc)
		done <- result{tree: tree, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(exp.blocks) == 0 {
		return r.tree, nil
	}
	if err := p.splice(ctx, r.tree, exp, ids); err != nil {
		return nil, err
	}
	return r.tree, nil
}

// splice replaces placeholder paragraphs with their directive nodes.
func (p *markdownParser) splice(ctx context.Context, tree *syntax.Node, exp *expansion, ids parser.IDs) error {
	return syntax.Transform(tree, func(n *syntax.Node) ([]*syntax.Node, error) {
		idx, ok := placeholderIndex(n)
		if !ok || idx >= len(exp.blocks) {
			return []*syntax.Node{n}, nil
		}
		block := exp.blocks[idx]
		node := block.node.Clone()
		if block.body != nil {
			body, err := p.parseWithIDs(ctx, block.body, ids)
			if err != nil {
				return nil, err
			}
			node.Children = body.Children
		}
		return []*syntax.Node{node}, nil
	})
}

func placeholderIndex(n *syntax.Node) (int, bool) {
	if n.Kind != syntax.KindParagraph || len(n.Children) != 1 || n.Children[0].Kind != syntax.KindText {
		return 0, false
	}
	return parsePlaceholder(n.Children[0].Value())
}

// validateStructure rejects bodies goldmark would silently accept: invalid
// UTF-8 and code fences left open at the end of the body.
func validateStructure(exp *expansion) error {
	var fence fenceTracker
	for i, line := range strings.Split(exp.source, "\n") {
		lineNo := exp.originalLine(i + 1)
		if !utf8.ValidString(line) {
			return positionErr(stageParse, syntax.Position{Line: lineNo, Column: invalidUTF8Column(line)},
				ErrParse, "invalid UTF-8")
		}
		fence.feed(line, lineNo)
	}
	if fence.inside() {
		return positionErr(stageParse, syntax.Position{Line: fence.line, Column: 1},
			ErrParse, "unclosed code fence")
	}
	return nil
}

func invalidUTF8Column(line string) int {
	col := 1
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		if r == utf8.RuneError && size == 1 {
			return col
		}
		i += size
		col++
	}
	return col
}

// converter maps a goldmark AST onto syntax nodes.
type converter struct {
	src    []byte
	exp    *expansion
	starts []int // byte offset of each line start
}

func newConverter(src []byte, exp *expansion) *converter {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &converter{src: src, exp: exp, starts: starts}
}

func (c *converter) position(offset int) syntax.Position {
	if offset < 0 {
		return syntax.Position{}
	}
	i := sort.Search(len(c.starts), func(i int) bool { return c.starts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return syntax.Position{Line: c.exp.originalLine(i + 1), Column: offset - c.starts[i] + 1}
}

func (c *converter) document(doc gast.Node) (*syntax.Node, error) {
	root := syntax.New(syntax.KindDocument, syntax.Position{Line: 1, Column: 1})
	children, err := c.blocks(doc)
	if err != nil {
		return nil, err
	}
	root.Children = children
	return root, nil
}

func (c *converter) blocks(parent gast.Node) ([]*syntax.Node, error) {
	var out []*syntax.Node
	for ch := parent.FirstChild(); ch != nil; ch = ch.NextSibling() {
		nodes, err := c.block(ch)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (c *converter) block(n gast.Node) ([]*syntax.Node, error) {
	pos := c.position(blockOffset(n))

	switch n := n.(type) {
	case *gast.Paragraph:
		p := syntax.New(syntax.KindParagraph, pos)
		p.Children = c.inlines(n)
		return []*syntax.Node{p}, nil

	case *gast.TextBlock:
		// Tight list items: content belongs directly to the item.
		return c.inlines(n), nil

	case *gast.Heading:
		h := syntax.New(syntax.KindHeading, pos).SetIntAttr(syntax.AttrLevel, n.Level)
		if id, ok := n.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				h.SetAttr(syntax.AttrID, string(b))
			}
		}
		h.Children = c.inlines(n)
		return []*syntax.Node{h}, nil

	case *gast.ThematicBreak:
		return []*syntax.Node{syntax.New(syntax.KindThematicBreak, pos)}, nil

	case *gast.CodeBlock:
		code := syntax.New(syntax.KindCodeBlock, pos).SetAttr(syntax.AttrValue, c.lineText(n.Lines()))
		return []*syntax.Node{code}, nil

	case *gast.FencedCodeBlock:
		code := syntax.New(syntax.KindCodeBlock, pos).SetAttr(syntax.AttrValue, c.lineText(n.Lines()))
		if lang := n.Language(c.src); len(lang) > 0 {
			code.SetAttr(syntax.AttrLang, string(lang))
		}
		return []*syntax.Node{code}, nil

	case *gast.HTMLBlock:
		value := c.lineText(n.Lines())
		if n.HasClosure() {
			closure := strings.TrimRight(string(n.ClosureLine.Value(c.src)), "\n")
			if value != "" {
				value += "\n"
			}
			value += closure
		}
		return []*syntax.Node{syntax.New(syntax.KindHTML, pos).SetAttr(syntax.AttrValue, value)}, nil

	case *gast.Blockquote:
		return c.container(syntax.New(syntax.KindBlockquote, pos), n)

	case *gast.List:
		l := syntax.New(syntax.KindList, pos).SetBoolAttr(syntax.AttrOrdered, n.IsOrdered())
		if n.IsOrdered() {
			l.SetIntAttr(syntax.AttrStart, n.Start)
		}
		return c.container(l, n)

	case *gast.ListItem:
		return c.container(syntax.New(syntax.KindListItem, pos), n)

	case *footnoteDefinition:
		def := syntax.New(syntax.KindFootnoteDefinition, pos).SetAttr(syntax.AttrKey, n.key)
		return c.container(def, n)
	}

	return nil, positionErr(stageParse, pos, ErrParse, "unsupported block %s", n.Kind())
}

func (c *converter) container(node *syntax.Node, n gast.Node) ([]*syntax.Node, error) {
	children, err := c.blocks(n)
	if err != nil {
		return nil, err
	}
	node.Children = children
	return []*syntax.Node{node}, nil
}

// lineText joins block lines without the final newline.
func (c *converter) lineText(lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// inlines converts inline children, merging adjacent text. Soft line breaks
// stay in the text as "\n".
func (c *converter) inlines(parent gast.Node) []*syntax.Node {
	var (
		out  []*syntax.Node
		buf  strings.Builder
		pos  syntax.Position
		open bool
	)
	add := func(s string, at syntax.Position) {
		if !open {
			pos, open = at, true
		}
		buf.WriteString(s)
	}
	flush := func() {
		if open && buf.Len() > 0 {
			out = append(out, syntax.NewText(buf.String(), pos))
		}
		buf.Reset()
		open = false
	}

	for ch := parent.FirstChild(); ch != nil; ch = ch.NextSibling() {
		switch ch := ch.(type) {
		case *gast.Text:
			add(c.textValue(ch), c.position(ch.Segment.Start))
			switch {
			case ch.HardLineBreak():
				flush()
				out = append(out, syntax.New(syntax.KindLineBreak, c.position(ch.Segment.Stop)))
			case ch.SoftLineBreak():
				add("\n", pos)
			}
		case *gast.String:
			add(string(ch.Value), c.position(inlineOffset(parent)))
		default:
			flush()
			out = append(out, c.inline(ch)...)
		}
	}
	flush()
	return out
}

func (c *converter) textValue(t *gast.Text) string {
	v := t.Segment.Value(c.src)
	if t.IsRaw() {
		return string(v)
	}
	v = util.ResolveEntityNames(v)
	v = util.ResolveNumericReferences(v)
	return string(util.UnescapePunctuations(v))
}

func (c *converter) inline(n gast.Node) []*syntax.Node {
	pos := c.position(inlineOffset(n))

	switch n := n.(type) {
	case *gast.Emphasis:
		kind := syntax.KindEmphasis
		if n.Level >= 2 {
			kind = syntax.KindStrong
		}
		e := syntax.New(kind, pos)
		e.Children = c.inlines(n)
		return []*syntax.Node{e}

	case *gast.CodeSpan:
		var b strings.Builder
		for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
			switch t := ch.(type) {
			case *gast.Text:
				b.Write(t.Segment.Value(c.src))
			case *gast.String:
				b.Write(t.Value)
			}
		}
		value := strings.ReplaceAll(b.String(), "\n", " ")
		return []*syntax.Node{syntax.New(syntax.KindInlineCode, pos).SetAttr(syntax.AttrValue, value)}

	case *gast.Link:
		l := syntax.New(syntax.KindLink, pos).SetAttr(syntax.AttrHref, string(n.Destination))
		if len(n.Title) > 0 {
			l.SetAttr(syntax.AttrTitle, string(n.Title))
		}
		l.Children = c.inlines(n)
		return []*syntax.Node{l}

	case *gast.Image:
		alt := syntax.New(syntax.KindParagraph, pos)
		alt.Children = c.inlines(n)
		img := syntax.New(syntax.KindImage, pos).
			SetAttr(syntax.AttrSrc, string(n.Destination)).
			SetAttr(syntax.AttrAlt, alt.TextContent())
		if len(n.Title) > 0 {
			img.SetAttr(syntax.AttrTitle, string(n.Title))
		}
		return []*syntax.Node{img}

	case *gast.AutoLink:
		url := string(n.URL(c.src))
		if n.AutoLinkType == gast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
			url = "mailto:" + url
		}
		l := syntax.New(syntax.KindLink, pos).
			SetAttr(syntax.AttrHref, url).
			SetBoolAttr(syntax.AttrAutolink, true).
			Append(syntax.NewText(string(n.Label(c.src)), pos))
		return []*syntax.Node{l}

	case *gast.RawHTML:
		var b strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(c.src))
		}
		h := syntax.New(syntax.KindHTML, pos).
			SetBoolAttr(syntax.AttrInline, true).
			SetAttr(syntax.AttrValue, b.String())
		return []*syntax.Node{h}

	case *mathSpan:
		value := string(mathDelimiter)
		if n.closed {
			value += string(n.source) + string(mathDelimiter)
		}
		return []*syntax.Node{syntax.NewText(value, pos).SetBoolAttr(syntax.AttrVerbatim, true)}

	case *footnoteReference:
		return []*syntax.Node{syntax.New(syntax.KindFootnoteReference, pos).SetAttr(syntax.AttrKey, n.key)}
	}

	// Unknown inline: keep its content.
	return c.inlines(n)
}

// blockOffset returns the byte offset where a block starts, or -1.
func blockOffset(n gast.Node) int {
	switch n := n.(type) {
	case *footnoteDefinition:
		return n.offset
	case *gast.Text:
		return n.Segment.Start
	}
	if n.Type() == gast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lines.At(0).Start
		}
	}
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		if off := blockOffset(ch); off >= 0 {
			return off
		}
	}
	return -1
}

// inlineOffset returns the byte offset of an inline node, or -1.
func inlineOffset(n gast.Node) int {
	switch n := n.(type) {
	case *gast.Text:
		return n.Segment.Start
	case *mathSpan:
		return n.offset
	case *footnoteReference:
		return n.offset
	case *gast.RawHTML:
		if n.Segments.Len() > 0 {
			return n.Segments.At(0).Start
		}
	}
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		if off := inlineOffset(ch); off >= 0 {
			return off
		}
	}
	return -1
}
