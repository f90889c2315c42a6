// Package syntax defines the document tree shared by the transform chain,
// the compiler and the renderer.
//
// A tree is an ordered, rooted set of typed nodes. Every node carries a kind
// tag from a closed set, a string attribute map and its children in document
// order. Stages treat trees as values: they clone before rewriting.
package syntax

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the type of a node.
type Kind string

// Node kinds. The set is closed: the compiler rejects anything else.
const (
	KindDocument           Kind = "document"
	KindParagraph          Kind = "paragraph"
	KindHeading            Kind = "heading"
	KindBlockquote         Kind = "blockquote"
	KindList               Kind = "list"
	KindListItem           Kind = "list-item"
	KindCodeBlock          Kind = "code-block"
	KindThematicBreak      Kind = "thematic-break"
	KindHTML               Kind = "html"
	KindText               Kind = "text"
	KindEmphasis           Kind = "emphasis"
	KindStrong             Kind = "strong"
	KindStrikethrough      Kind = "strikethrough"
	KindInlineCode         Kind = "inline-code"
	KindLineBreak          Kind = "line-break"
	KindLink               Kind = "link"
	KindImage              Kind = "image"
	KindFigure             Kind = "figure"
	KindFigureCaption      Kind = "figure-caption"
	KindTable              Kind = "table"
	KindTableRow           Kind = "table-row"
	KindTableCell          Kind = "table-cell"
	KindSuperscript        Kind = "superscript"
	KindMath               Kind = "math-expression"
	KindFootnoteReference  Kind = "footnote-reference"
	KindFootnoteDefinition Kind = "footnote-definition"
	KindDirective          Kind = "custom-directive"
)

// Attribute keys.
const (
	AttrValue    = "value"    // literal content of leaves (text, code, math, html)
	AttrLevel    = "level"    // heading level 1-6
	AttrID       = "id"       // anchor id (headings, footnotes)
	AttrOrdered  = "ordered"  // list: "true" for ordered lists
	AttrStart    = "start"    // ordered list start number
	AttrTask     = "task"     // list-item: "true" for task items
	AttrChecked  = "checked"  // list-item: task state
	AttrLang     = "lang"     // code-block language
	AttrTitle    = "title"    // code-block, link, image title
	AttrTheme    = "theme"    // code-block highlight theme
	AttrHref     = "href"     // link destination
	AttrAutolink = "autolink" // link: "true" when recognized from bare text
	AttrSrc      = "src"      // image source
	AttrAlt      = "alt"      // image alternative text
	AttrDisplay  = "display"  // math: "inline" or "block"
	AttrAlign    = "align"    // table: comma separated; cell: single value
	AttrHeader   = "header"   // table-row, table-cell: "true" for the header row
	AttrKey      = "key"      // footnote label
	AttrTarget   = "target"   // footnote-reference: id of the resolved definition
	AttrIndex    = "index"    // footnote number, by first reference
	AttrRefs     = "refs"     // footnote-definition: number of references
	AttrName     = "name"     // custom-directive name
	AttrArgs     = "args"     // custom-directive positional arguments, space separated
	AttrInline   = "inline"   // html: "true" for inline raw HTML
	AttrVerbatim = "verbatim" // text: "true" when the parser kept the span unparsed
)

var knownKinds = map[Kind]bool{
	KindDocument: true, KindParagraph: true, KindHeading: true, KindBlockquote: true,
	KindList: true, KindListItem: true, KindCodeBlock: true, KindThematicBreak: true,
	KindHTML: true, KindText: true, KindEmphasis: true, KindStrong: true,
	KindStrikethrough: true, KindInlineCode: true, KindLineBreak: true, KindLink: true,
	KindImage: true, KindFigure: true, KindFigureCaption: true, KindTable: true,
	KindTableRow: true, KindTableCell: true, KindSuperscript: true, KindMath: true,
	KindFootnoteReference: true, KindFootnoteDefinition: true, KindDirective: true,
}

var inlineKinds = map[Kind]bool{
	KindText: true, KindEmphasis: true, KindStrong: true, KindStrikethrough: true,
	KindInlineCode: true, KindLineBreak: true, KindLink: true, KindImage: true,
	KindSuperscript: true, KindFootnoteReference: true,
}

// Known reports whether k belongs to the closed kind set.
func (k Kind) Known() bool { return knownKinds[k] }

// Kinds returns the closed kind set in lexical order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(knownKinds))
	for k := range knownKinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Position locates a node in the authored body. Lines and columns are 1-based;
// the zero value means unknown.
type Position struct {
	Line   int
	Column int
}

// IsValid reports whether the position is known.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return "unknown position"
	}
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// LineAnnotation attaches metadata to one line of a code block.
type LineAnnotation struct {
	Line  int    // 1-based line within the code block
	Kind  string // mark, focus, ins, del
	Label string // optional free text
}

// Node is one element of a syntax tree.
type Node struct {
	Kind     Kind
	Attrs    map[string]string
	Lines    []LineAnnotation
	Children []*Node
	Pos      Position
}

// New returns a node of the given kind.
func New(kind Kind, pos Position) *Node {
	return &Node{Kind: kind, Pos: pos}
}

// NewText returns a text node holding value.
func NewText(value string, pos Position) *Node {
	return New(KindText, pos).SetAttr(AttrValue, value)
}

// Attr returns the attribute value or "".
func (n *Node) Attr(key string) string {
	return n.Attrs[key]
}

// HasAttr reports whether the attribute is set.
func (n *Node) HasAttr(key string) bool {
	_, ok := n.Attrs[key]
	return ok
}

// IntAttr returns the attribute parsed as an int, or 0.
func (n *Node) IntAttr(key string) int {
	v, err := strconv.Atoi(n.Attrs[key])
	if err != nil {
		return 0
	}
	return v
}

// BoolAttr reports whether the attribute equals "true".
func (n *Node) BoolAttr(key string) bool {
	return n.Attrs[key] == "true"
}

// SetAttr sets an attribute and returns n for chaining.
func (n *Node) SetAttr(key, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
	return n
}

// SetIntAttr stores an int attribute.
func (n *Node) SetIntAttr(key string, v int) *Node {
	return n.SetAttr(key, strconv.Itoa(v))
}

// SetBoolAttr stores a boolean attribute.
func (n *Node) SetBoolAttr(key string, v bool) *Node {
	return n.SetAttr(key, strconv.FormatBool(v))
}

// Value is shorthand for Attr(AttrValue).
func (n *Node) Value() string { return n.Attrs[AttrValue] }

// Append adds children in order and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// IsInline reports whether the node belongs in inline content.
func (n *Node) IsInline() bool {
	switch n.Kind {
	case KindMath:
		return n.Attr(AttrDisplay) != "block"
	case KindHTML:
		return n.BoolAttr(AttrInline)
	}
	return inlineKinds[n.Kind]
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Pos: n.Pos}
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if n.Lines != nil {
		c.Lines = append([]LineAnnotation(nil), n.Lines...)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// TextContent concatenates the literal values of n and its descendants.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	switch n.Kind {
	case KindText, KindInlineCode, KindMath, KindCodeBlock:
		b.WriteString(n.Value())
	case KindLineBreak:
		b.WriteByte('\n')
	}
	for _, c := range n.Children {
		c.writeText(b)
	}
}
