// Package compiler turns a transformed syntax tree into a compact,
// serializable render program.
//
// A program lists one instruction per node in post-order: children come
// before their parent, and each instruction records how many rendered
// children it consumes. Executing it needs a single stack.
package compiler

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/alnah/go-mdpost/internal/syntax"
)

// Sentinel errors for compilation and decoding.
var (
	ErrCompile         = errors.New("compile error")
	ErrCorruptArtifact = errors.New("corrupt artifact")
)

// FormatVersion identifies the program encoding.
const FormatVersion = 1

// Op is one program instruction.
type Op struct {
	Kind  string            `msgpack:"k"`
	Attrs map[string]string `msgpack:"a,omitempty"`
	Lines []Line            `msgpack:"l,omitempty"`
	Arity int               `msgpack:"n,omitempty"`
}

// Line is a code line annotation.
type Line struct {
	Line  int    `msgpack:"n"`
	Kind  string `msgpack:"k"`
	Label string `msgpack:"t,omitempty"`
}

// Program is a post-order instruction list.
type Program struct {
	Version int  `msgpack:"v"`
	Ops     []Op `msgpack:"o"`
}

// Encode validates tree and returns its msgpack-encoded program. Map keys are
// sorted, so equal trees encode to equal bytes.
func Encode(tree *syntax.Node) ([]byte, error) {
	if tree == nil || tree.Kind != syntax.KindDocument {
		return nil, fmt.Errorf("%w: root must be a %s node", ErrCompile, syntax.KindDocument)
	}
	if err := validate(tree); err != nil {
		return nil, err
	}

	prog := &Program{Version: FormatVersion}
	emit(tree, &prog.Ops)

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(prog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	return buf.Bytes(), nil
}

// validate checks the closed kind set and that every footnote reference
// points at a definition.
func validate(tree *syntax.Node) error {
	defs := make(map[string]bool)
	_ = syntax.Walk(tree, func(n, _ *syntax.Node) error {
		if n.Kind == syntax.KindFootnoteDefinition {
			defs[n.Attr(syntax.AttrID)] = true
		}
		return nil
	})

	return syntax.Walk(tree, func(n, _ *syntax.Node) error {
		if !n.Kind.Known() {
			return fmt.Errorf("%w: unknown node kind %q at %s", ErrCompile, n.Kind, n.Pos)
		}
		if n.Kind == syntax.KindFootnoteReference {
			target := n.Attr(syntax.AttrTarget)
			if target == "" || !defs[target] {
				return fmt.Errorf("%w: unresolved footnote %q at %s", ErrCompile, n.Attr(syntax.AttrKey), n.Pos)
			}
		}
		return nil
	})
}

func emit(n *syntax.Node, ops *[]Op) {
	for _, c := range n.Children {
		emit(c, ops)
	}
	op := Op{Kind: string(n.Kind), Arity: len(n.Children)}
	if len(n.Attrs) > 0 {
		op.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			op.Attrs[k] = v
		}
	}
	for _, l := range n.Lines {
		op.Lines = append(op.Lines, Line{Line: l.Line, Kind: l.Kind, Label: l.Label})
	}
	*ops = append(*ops, op)
}

// Decode returns a fresh program from payload. It checks the program is
// well formed: known kinds, arities within the stack and a single document
// root at the end.
func Decode(payload []byte) (*Program, error) {
	var prog Program
	if err := msgpack.Unmarshal(payload, &prog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if prog.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruptArtifact, prog.Version)
	}

	depth := 0
	for i, op := range prog.Ops {
		if !syntax.Kind(op.Kind).Known() {
			return nil, fmt.Errorf("%w: op %d: unknown kind %q", ErrCorruptArtifact, i, op.Kind)
		}
		if op.Arity < 0 || op.Arity > depth {
			return nil, fmt.Errorf("%w: op %d: arity %d exceeds stack depth %d", ErrCorruptArtifact, i, op.Arity, depth)
		}
		depth = depth - op.Arity + 1
	}
	if depth != 1 || prog.Ops[len(prog.Ops)-1].Kind != string(syntax.KindDocument) {
		return nil, fmt.Errorf("%w: program does not reduce to one document", ErrCorruptArtifact)
	}
	return &prog, nil
}

// Tree rebuilds a syntax tree from a program. Positions are not kept.
func (p *Program) Tree() *syntax.Node {
	var stack []*syntax.Node
	for _, op := range p.Ops {
		n := syntax.New(syntax.Kind(op.Kind), syntax.Position{})
		for k, v := range op.Attrs {
			n.SetAttr(k, v)
		}
		for _, l := range op.Lines {
			n.Lines = append(n.Lines, syntax.LineAnnotation{Line: l.Line, Kind: l.Kind, Label: l.Label})
		}
		if op.Arity > 0 {
			n.Children = append([]*syntax.Node(nil), stack[len(stack)-op.Arity:]...)
			stack = stack[:len(stack)-op.Arity]
		}
		stack = append(stack, n)
	}
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}
