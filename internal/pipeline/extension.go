package pipeline

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// postSyntax registers the parsers that keep footnotes and math intact
// through goldmark's CommonMark parse.
type postSyntax struct{}

var _ goldmark.Extender = postSyntax{}

func (postSyntax) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(&footnoteDefinitionParser{}, 999),
		),
		parser.WithInlineParsers(
			// Before the link parser (200) so [^key] never becomes a link label.
			util.Prioritized(&footnoteReferenceParser{}, 101),
			util.Prioritized(&mathSpanParser{}, 102),
		),
	)
}

var (
	kindFootnoteDefinition = gast.NewNodeKind("PostFootnoteDefinition")
	kindFootnoteReference  = gast.NewNodeKind("PostFootnoteReference")
	kindMathSpan           = gast.NewNodeKind("PostMathSpan")
)

// footnoteDefinition is a "[^key]: ..." container block.
type footnoteDefinition struct {
	gast.BaseBlock
	key    string
	offset int
}

func (n *footnoteDefinition) Kind() gast.NodeKind { return kindFootnoteDefinition }

func (n *footnoteDefinition) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{"Key": n.key}, nil)
}

// footnoteReference is an inline "[^key]".
type footnoteReference struct {
	gast.BaseInline
	key    string
	offset int
}

func (n *footnoteReference) Kind() gast.NodeKind { return kindFootnoteReference }

func (n *footnoteReference) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{"Key": n.key}, nil)
}

// mathSpan is a "$$...$$" span kept as raw source. closed is false when no
// closing delimiter followed the opener within the paragraph.
type mathSpan struct {
	gast.BaseInline
	source []byte
	closed bool
	offset int
}

func (n *mathSpan) Kind() gast.NodeKind { return kindMathSpan }

func (n *mathSpan) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{"Source": string(n.source)}, nil)
}

var (
	footnoteDefPattern = regexp.MustCompile(`^\[\^([^\]\s]+)\]:[ \t]?`)
	footnoteRefPattern = regexp.MustCompile(`^\[\^([^\]\s]+)\]`)
	mathDelimiter      = []byte("$$")
)

type footnoteDefinitionParser struct{}

var _ parser.BlockParser = (*footnoteDefinitionParser)(nil)

func (p *footnoteDefinitionParser) Trigger() []byte { return []byte{'['} }

func (p *footnoteDefinitionParser) Open(parent gast.Node, reader text.Reader, pc parser.Context) (gast.Node, parser.State) {
	line, seg := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) {
		return nil, parser.NoChildren
	}
	m := footnoteDefPattern.FindSubmatch(line[pos:])
	if m == nil {
		return nil, parser.NoChildren
	}
	node := &footnoteDefinition{key: string(m[1]), offset: seg.Start + pos}
	reader.Advance(pos + len(m[0]))
	return node, parser.HasChildren
}

func (p *footnoteDefinitionParser) Continue(node gast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, _ := reader.PeekLine()
	if util.IsBlank(line) {
		return parser.Continue | parser.HasChildren
	}
	pos, padding := util.IndentPosition(line, reader.LineOffset(), 4)
	if pos < 0 {
		return parser.Close
	}
	reader.AdvanceAndSetPadding(pos, padding)
	return parser.Continue | parser.HasChildren
}

func (p *footnoteDefinitionParser) Close(node gast.Node, reader text.Reader, pc parser.Context) {}

func (p *footnoteDefinitionParser) CanInterruptParagraph() bool { return true }

func (p *footnoteDefinitionParser) CanAcceptIndentedLine() bool { return false }

type footnoteReferenceParser struct{}

var _ parser.InlineParser = (*footnoteReferenceParser)(nil)

func (p *footnoteReferenceParser) Trigger() []byte { return []byte{'['} }

func (p *footnoteReferenceParser) Parse(parent gast.Node, block text.Reader, pc parser.Context) gast.Node {
	line, seg := block.PeekLine()
	m := footnoteRefPattern.FindSubmatch(line)
	if m == nil {
		return nil
	}
	block.Advance(len(m[0]))
	return &footnoteReference{key: string(m[1]), offset: seg.Start}
}

type mathSpanParser struct{}

var _ parser.InlineParser = (*mathSpanParser)(nil)

func (p *mathSpanParser) Trigger() []byte { return []byte{'$'} }

// Parse consumes "$$", then everything up to the next "$$", possibly across
// lines of the same paragraph.
func (p *mathSpanParser) Parse(parent gast.Node, block text.Reader, pc parser.Context) gast.Node {
	line, seg := block.PeekLine()
	if !bytes.HasPrefix(line, mathDelimiter) {
		return nil
	}
	start := seg.Start
	l, pos := block.Position()
	block.Advance(len(mathDelimiter))

	var content []byte
	for {
		line, _ = block.PeekLine()
		if line == nil {
			block.SetPosition(l, pos)
			block.Advance(len(mathDelimiter))
			return &mathSpan{offset: start}
		}
		if i := bytes.Index(line, mathDelimiter); i >= 0 {
			content = append(content, line[:i]...)
			block.Advance(i + len(mathDelimiter))
			return &mathSpan{source: content, closed: true, offset: start}
		}
		content = append(content, line...)
		block.AdvanceLine()
	}
}
