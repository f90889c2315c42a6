package mdpost

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-mdpost/internal/compiler"
	"github.com/alnah/go-mdpost/internal/syntax"
)

// Render keys that differ from the node kind.
const (
	KeyOrderedList     = "ordered-list"
	KeyUnorderedList   = "unordered-list"
	KeyDirectivePrefix = "custom-directive:"
)

// SubstitutionFunc renders one node from its properties and its already
// rendered children. A nil result contributes nothing to the parent.
// Children are detached nodes; the function may adopt them.
type SubstitutionFunc func(p Props, children []*html.Node) *html.Node

// SubstitutionTable maps render keys to rendering functions. Keys missing
// from the table fall back to a generic element that keeps the children.
// "custom-directive" without a name catches every directive not listed by
// name.
type SubstitutionTable map[string]SubstitutionFunc

// Props are the read-only properties of the node being rendered.
type Props struct {
	key   string
	kind  syntax.Kind
	attrs map[string]string
	lines []compiler.Line
}

// LineAnnotation marks one line of a code block.
type LineAnnotation struct {
	Line  int
	Kind  string
	Label string
}

// Key returns the render key, e.g. "heading-2".
func (p Props) Key() string { return p.key }

// Kind returns the node kind, e.g. "heading".
func (p Props) Kind() string { return string(p.kind) }

// Attr returns an attribute or "".
func (p Props) Attr(key string) string { return p.attrs[key] }

// Has reports whether the attribute is set.
func (p Props) Has(key string) bool {
	_, ok := p.attrs[key]
	return ok
}

// Int returns an attribute parsed as an int, or 0.
func (p Props) Int(key string) int {
	n, err := strconv.Atoi(p.attrs[key])
	if err != nil {
		return 0
	}
	return n
}

// Bool reports whether the attribute equals "true".
func (p Props) Bool(key string) bool { return p.attrs[key] == "true" }

// Value returns the literal content of leaves: text, code, math and html.
func (p Props) Value() string { return p.attrs[syntax.AttrValue] }

// Attrs returns a copy of all attributes.
func (p Props) Attrs() map[string]string {
	out := make(map[string]string, len(p.attrs))
	for k, v := range p.attrs {
		out[k] = v
	}
	return out
}

// Lines returns a copy of the code line annotations.
func (p Props) Lines() []LineAnnotation {
	if len(p.lines) == 0 {
		return nil
	}
	out := make([]LineAnnotation, len(p.lines))
	for i, l := range p.lines {
		out[i] = LineAnnotation{Line: l.Line, Kind: l.Kind, Label: l.Label}
	}
	return out
}

// IsInline reports whether the node belongs in inline content.
func (p Props) IsInline() bool {
	n := syntax.Node{Kind: p.kind, Attrs: p.attrs}
	return n.IsInline()
}

// RenderKey returns the table key for a node kind and its attributes.
func RenderKey(kind string, attrs map[string]string) string {
	switch syntax.Kind(kind) {
	case syntax.KindHeading:
		level, _ := strconv.Atoi(attrs[syntax.AttrLevel])
		level = min(max(level, 1), 6)
		return "heading-" + strconv.Itoa(level)
	case syntax.KindList:
		if attrs[syntax.AttrOrdered] == "true" {
			return KeyOrderedList
		}
		return KeyUnorderedList
	case syntax.KindDirective:
		return KeyDirectivePrefix + attrs[syntax.AttrName]
	}
	return kind
}

// RenderKeys returns the closed key set in lexical order. Named directive
// keys ("custom-directive:<name>") are open-ended and not listed.
func RenderKeys() []string {
	keys := make([]string, 0, len(syntax.Kinds())+6)
	for _, k := range syntax.Kinds() {
		switch k {
		case syntax.KindHeading:
			for level := 1; level <= 6; level++ {
				keys = append(keys, "heading-"+strconv.Itoa(level))
			}
		case syntax.KindList:
			keys = append(keys, KeyOrderedList, KeyUnorderedList)
		default:
			keys = append(keys, string(k))
		}
	}
	sort.Strings(keys)
	return keys
}

var renderKeys = func() map[string]bool {
	m := make(map[string]bool)
	for _, k := range RenderKeys() {
		m[k] = true
	}
	return m
}()

// ValidateTable checks every key belongs to the closed key set.
func ValidateTable(table SubstitutionTable) error {
	for key, fn := range table {
		if fn == nil {
			return fmt.Errorf("%w: %q has a nil function", ErrUnknownRenderKind, key)
		}
		if renderKeys[key] {
			continue
		}
		if name, ok := strings.CutPrefix(key, KeyDirectivePrefix); ok && name != "" {
			continue
		}
		return fmt.Errorf("%w: %q", ErrUnknownRenderKind, key)
	}
	return nil
}

// Render executes the artifact's program against table. Each call decodes
// its own copy of the program, so concurrent renders of one artifact never
// share state.
func Render(a *Artifact, table SubstitutionTable) (root *html.Node, err error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil artifact", ErrCorruptArtifact)
	}
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	prog, err := a.Program()
	if err != nil {
		return nil, err
	}

	var current string
	defer func() {
		if r := recover(); r != nil {
			root, err = nil, fmt.Errorf("internal error: rendering %s: %v", current, r)
		}
	}()

	stack := make([]*html.Node, 0, 32)
	for _, op := range prog.Ops {
		children := make([]*html.Node, 0, op.Arity)
		for _, c := range stack[len(stack)-op.Arity:] {
			if c != nil {
				children = append(children, c)
			}
		}
		stack = stack[:len(stack)-op.Arity]

		props := Props{
			key:   RenderKey(op.Kind, op.Attrs),
			kind:  syntax.Kind(op.Kind),
			attrs: op.Attrs,
			lines: op.Lines,
		}
		if props.attrs == nil {
			props.attrs = map[string]string{}
		}
		current = props.key

		fn := lookupFunc(table, props)
		if fn == nil {
			fn = fallback
		}
		stack = append(stack, fn(props, children))
	}

	if root = stack[0]; root == nil {
		root = &html.Node{Type: html.DocumentNode}
	}
	return root, nil
}

func lookupFunc(table SubstitutionTable, p Props) SubstitutionFunc {
	if fn, ok := table[p.key]; ok {
		return fn
	}
	if p.kind == syntax.KindDirective {
		return table[string(syntax.KindDirective)]
	}
	return nil
}

// fallback renders text as text and everything else as a generic element
// recording the render key, the literal value and every child.
func fallback(p Props, children []*html.Node) *html.Node {
	if p.kind == syntax.KindText {
		return textNode(p.Value())
	}
	tag := atom.Div
	if p.IsInline() {
		tag = atom.Span
	}
	n := element(tag, "data-kind", p.key)
	if p.Has(syntax.AttrValue) {
		n.AppendChild(textNode(p.Value()))
	}
	appendAll(n, children)
	return n
}

// WriteHTML serializes a render tree.
func WriteHTML(w io.Writer, n *html.Node) error {
	if n == nil {
		return nil
	}
	return html.Render(w, n)
}

// TextContent concatenates the text nodes under n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return b.String()
}

// element builds an element. attrs are key/value pairs, applied in order;
// empty values are skipped.
func element(tag atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: tag, Data: tag.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] == "" {
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// appendAll adopts children into parent. A document node is a fragment:
// its children are adopted in its place.
func appendAll(parent *html.Node, children []*html.Node) {
	for _, c := range children {
		if c.Type == html.DocumentNode {
			var inner []*html.Node
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				inner = append(inner, gc)
			}
			appendAll(parent, inner)
			continue
		}
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		parent.AppendChild(c)
	}
}
