package pipeline

import (
	"strconv"
	"strings"

	"github.com/alnah/go-mdpost/internal/syntax"
)

// StageFootnotes names the footnote resolution stage.
const StageFootnotes = "footnotes"

// FootnoteStage resolves footnote references to their definitions. It must
// run last: earlier stages may still add or move references.
//
// References are numbered by first appearance, receive target and id
// attributes and are wrapped in a superscript node. Definitions stay where
// they were authored and receive id, index and refs.
func FootnoteStage() Stage {
	return Stage{Name: StageFootnotes, Last: true, Apply: applyFootnotes}
}

func applyFootnotes(root *syntax.Node) (*syntax.Node, error) {
	root = root.Clone()

	defs := make(map[string]*syntax.Node)
	var order []string
	if err := syntax.Walk(root, func(n, _ *syntax.Node) error {
		if n.Kind != syntax.KindFootnoteDefinition {
			return nil
		}
		key := footnoteKey(n.Attr(syntax.AttrKey))
		if prev, dup := defs[key]; dup {
			return positionErr(StageFootnotes, n.Pos, ErrDuplicateFootnote,
				"%q already defined at %s", n.Attr(syntax.AttrKey), prev.Pos)
		}
		defs[key] = n
		order = append(order, key)
		return nil
	}); err != nil {
		return nil, err
	}

	// Labels differing only in punctuation share an anchorKey; the later
	// definition gets a numeric suffix.
	ids := make(idSet)
	anchors := make(map[string]string, len(order))
	for _, key := range order {
		anchors[key] = ids.unique("fn-" + anchorKey(key))
	}

	index := make(map[string]int)
	refs := make(map[string]int)
	if err := syntax.Walk(root, func(n, _ *syntax.Node) error {
		if n.Kind != syntax.KindFootnoteReference {
			return nil
		}
		key := footnoteKey(n.Attr(syntax.AttrKey))
		if _, ok := defs[key]; !ok {
			return positionErr(StageFootnotes, n.Pos, ErrUnresolvedFootnote,
				"no definition for %q", n.Attr(syntax.AttrKey))
		}
		if index[key] == 0 {
			index[key] = len(index) + 1
		}
		refs[key]++

		id := "fnref-" + strings.TrimPrefix(anchors[key], "fn-")
		if refs[key] > 1 {
			id += "-" + strconv.Itoa(refs[key])
		}
		n.SetAttr(syntax.AttrTarget, anchors[key])
		n.SetAttr(syntax.AttrID, ids.unique(id))
		n.SetIntAttr(syntax.AttrIndex, index[key])
		return nil
	}); err != nil {
		return nil, err
	}

	for key, def := range defs {
		def.SetAttr(syntax.AttrID, anchors[key])
		def.SetIntAttr(syntax.AttrIndex, index[key])
		def.SetIntAttr(syntax.AttrRefs, refs[key])
	}

	err := syntax.Transform(root, func(n *syntax.Node) ([]*syntax.Node, error) {
		if n.Kind != syntax.KindFootnoteReference {
			return []*syntax.Node{n}, nil
		}
		return []*syntax.Node{syntax.New(syntax.KindSuperscript, n.Pos).Append(n)}, nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// footnoteKey normalizes a label for matching: labels are case-insensitive.
func footnoteKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// idSet hands out ids that are unique within one document.
type idSet map[string]bool

// unique returns base, or base with the smallest "-N" suffix not yet taken.
func (s idSet) unique(base string) string {
	id := base
	for n := 2; s[id]; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	s[id] = true
	return id
}

// anchorKey maps a normalized key onto characters safe in an id.
func anchorKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, key)
}
