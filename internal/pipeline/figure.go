package pipeline

import (
	"strings"

	"github.com/alnah/go-mdpost/internal/syntax"
)

// StageFigures names the figure promotion stage.
const StageFigures = "figures"

// FigureStage promotes a paragraph holding a single image to a figure with
// a caption taken from the image title, else its alt text.
func FigureStage() Stage {
	return Stage{Name: StageFigures, Requires: []string{StageExtended}, Apply: applyFigures}
}

func applyFigures(root *syntax.Node) (*syntax.Node, error) {
	root = root.Clone()
	err := syntax.Transform(root, func(n *syntax.Node) ([]*syntax.Node, error) {
		if img := soleImage(n); img != nil {
			fig := syntax.New(syntax.KindFigure, n.Pos).Append(img)
			caption := img.Attr(syntax.AttrTitle)
			if caption == "" {
				caption = img.Attr(syntax.AttrAlt)
			}
			if caption != "" {
				fig.Append(syntax.New(syntax.KindFigureCaption, img.Pos).
					Append(syntax.NewText(caption, img.Pos)))
			}
			return []*syntax.Node{fig}, nil
		}
		return []*syntax.Node{n}, nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

func soleImage(p *syntax.Node) *syntax.Node {
	if p.Kind != syntax.KindParagraph {
		return nil
	}
	var img *syntax.Node
	for _, c := range p.Children {
		switch {
		case c.Kind == syntax.KindImage && img == nil:
			img = c
		case c.Kind == syntax.KindText && strings.TrimSpace(c.Value()) == "":
		default:
			return nil
		}
	}
	return img
}
