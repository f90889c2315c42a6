package syntax

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// SkipChildren can be returned by a Walk callback to skip the node's subtree.
var SkipChildren = errors.New("skip children")

// Walk visits n and its descendants in document order (pre-order).
// parent is nil for the root. A callback error other than SkipChildren
// stops the walk and is returned.
func Walk(n *Node, fn func(n, parent *Node) error) error {
	return walk(n, nil, fn)
}

func walk(n, parent *Node, fn func(n, parent *Node) error) error {
	if err := fn(n, parent); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	for _, c := range n.Children {
		if err := walk(c, n, fn); err != nil {
			return err
		}
	}
	return nil
}

// Transform rewrites every descendant of root bottom-up. fn receives a node
// whose children were already transformed and returns the nodes that replace
// it: itself, several nodes, or none. The root is never replaced.
func Transform(root *Node, fn func(n *Node) ([]*Node, error)) error {
	if len(root.Children) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(root.Children))
	for _, c := range root.Children {
		if err := Transform(c, fn); err != nil {
			return err
		}
		repl, err := fn(c)
		if err != nil {
			return err
		}
		out = append(out, repl...)
	}
	root.Children = out
	return nil
}

// Find returns the first node in document order for which pred holds.
func Find(n *Node, pred func(*Node) bool) *Node {
	var found *Node
	_ = Walk(n, func(c, _ *Node) error {
		if found != nil {
			return SkipChildren
		}
		if pred(c) {
			found = c
			return SkipChildren
		}
		return nil
	})
	return found
}

// Dump renders the tree as a one-line s-expression. Attributes are sorted,
// the literal value comes last. Positions are omitted.
//
//	(paragraph (text "Inline ") (math-expression display=inline "x^2"))
func Dump(n *Node) string {
	var b strings.Builder
	dump(&b, n)
	return b.String()
}

func dump(b *strings.Builder, n *Node) {
	b.WriteByte('(')
	b.WriteString(string(n.Kind))

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		if k != AttrValue {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		v := n.Attrs[k]
		if v == "" || strings.ContainsAny(v, " ()\"") {
			v = strconv.Quote(v)
		}
		b.WriteString(v)
	}
	for _, l := range n.Lines {
		b.WriteString(" [")
		b.WriteString(strconv.Itoa(l.Line))
		b.WriteByte(':')
		b.WriteString(l.Kind)
		if l.Label != "" {
			b.WriteByte(':')
			b.WriteString(l.Label)
		}
		b.WriteByte(']')
	}
	if n.HasAttr(AttrValue) {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(n.Value()))
	}
	for _, c := range n.Children {
		b.WriteByte(' ')
		dump(b, c)
	}
	b.WriteByte(')')
}
