package pipeline

import (
	"strings"

	"github.com/alnah/go-mdpost/internal/syntax"
)

const (
	StageMath = "math"

	DisplayInline = "inline"
	DisplayBlock  = "block"
)

// MathStage turns verbatim "$$...$$" spans into math-expression nodes.
// A span that is the only content of its paragraph replaces the paragraph
// and is displayed as a block.
func MathStage() Stage {
	return Stage{Name: StageMath, Apply: applyMath}
}

func applyMath(root *syntax.Node) (*syntax.Node, error) {
	root = root.Clone()
	err := syntax.Transform(root, func(n *syntax.Node) ([]*syntax.Node, error) {
		switch {
		case n.Kind == syntax.KindText && n.BoolAttr(syntax.AttrVerbatim):
			m, err := mathFromSpan(n)
			if err != nil {
				return nil, err
			}
			return []*syntax.Node{m}, nil

		case n.Kind == syntax.KindParagraph && len(n.Children) == 1 && n.Children[0].Kind == syntax.KindMath:
			m := n.Children[0]
			m.SetAttr(syntax.AttrDisplay, DisplayBlock)
			m.Pos = n.Pos
			return []*syntax.Node{m}, nil
		}
		return []*syntax.Node{n}, nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

func mathFromSpan(n *syntax.Node) (*syntax.Node, error) {
	v := n.Value()
	if len(v) < 2*len(mathDelimiter) || !strings.HasPrefix(v, string(mathDelimiter)) || !strings.HasSuffix(v, string(mathDelimiter)) {
		return nil, positionErr(StageMath, n.Pos, ErrUnterminatedMath, "no closing %s", mathDelimiter)
	}
	expr := strings.TrimSpace(v[len(mathDelimiter) : len(v)-len(mathDelimiter)])
	return syntax.New(syntax.KindMath, n.Pos).
		SetAttr(syntax.AttrValue, expr).
		SetAttr(syntax.AttrDisplay, DisplayInline), nil
}
