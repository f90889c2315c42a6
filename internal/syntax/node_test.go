package syntax

import (
	"errors"
	"testing"
)

func sample() *Node {
	return New(KindDocument, Position{Line: 1, Column: 1}).Append(
		New(KindParagraph, Position{Line: 1, Column: 1}).Append(
			NewText("Inline ", Position{Line: 1, Column: 1}),
			New(KindMath, Position{Line: 1, Column: 8}).
				SetAttr(AttrValue, "x^2").
				SetAttr(AttrDisplay, "inline"),
		),
		New(KindCodeBlock, Position{Line: 3, Column: 1}).
			SetAttr(AttrLang, "go").
			SetAttr(AttrTitle, "main file").
			SetAttr(AttrValue, "x := 1"),
	)
}

func TestDump(t *testing.T) {
	t.Parallel()

	root := sample()
	root.Children[1].Lines = []LineAnnotation{{Line: 1, Kind: "mark", Label: "here"}}

	want := `(document (paragraph (text "Inline ") (math-expression display=inline "x^2")) ` +
		`(code-block lang=go title="main file" [1:mark:here] "x := 1"))`
	if got := Dump(root); got != want {
		t.Errorf("Dump()\n got: %s\nwant: %s", got, want)
	}
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()

	orig := sample()
	orig.Children[1].Lines = []LineAnnotation{{Line: 1, Kind: "mark"}}
	before := Dump(orig)

	c := orig.Clone()
	c.Children[0].Children[0].SetAttr(AttrValue, "changed")
	c.Children[1].Lines[0].Kind = "del"
	c.Children = c.Children[:1]

	if got := Dump(orig); got != before {
		t.Errorf("original changed through clone:\n got: %s\nwant: %s", got, before)
	}
	if (*Node)(nil).Clone() != nil {
		t.Error("Clone() of nil node should be nil")
	}
}

func TestNode_Attrs(t *testing.T) {
	t.Parallel()

	n := New(KindHeading, Position{}).SetIntAttr(AttrLevel, 2).SetBoolAttr(AttrTask, true)

	if got := n.IntAttr(AttrLevel); got != 2 {
		t.Errorf("IntAttr(level) = %d, want 2", got)
	}
	if got := n.IntAttr(AttrStart); got != 0 {
		t.Errorf("IntAttr(missing) = %d, want 0", got)
	}
	if !n.BoolAttr(AttrTask) || n.BoolAttr(AttrChecked) {
		t.Errorf("BoolAttr mismatch: %v", n.Attrs)
	}
	if !n.HasAttr(AttrTask) || n.HasAttr(AttrValue) {
		t.Errorf("HasAttr mismatch: %v", n.Attrs)
	}
}

func TestNode_IsInline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{"text", NewText("x", Position{}), true},
		{"paragraph", New(KindParagraph, Position{}), false},
		{"inline math", New(KindMath, Position{}).SetAttr(AttrDisplay, "inline"), true},
		{"block math", New(KindMath, Position{}).SetAttr(AttrDisplay, "block"), false},
		{"inline html", New(KindHTML, Position{}).SetBoolAttr(AttrInline, true), true},
		{"html block", New(KindHTML, Position{}), false},
		{"superscript", New(KindSuperscript, Position{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.node.IsInline(); got != tt.want {
				t.Errorf("IsInline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextContent(t *testing.T) {
	t.Parallel()

	if got := sample().TextContent(); got != "Inline x^2x := 1" {
		t.Errorf("TextContent() = %q", got)
	}
}

func TestKinds(t *testing.T) {
	t.Parallel()

	kinds := Kinds()
	if len(kinds) != 27 {
		t.Fatalf("Kinds() = %d kinds, want 27", len(kinds))
	}
	for i := 1; i < len(kinds); i++ {
		if kinds[i-1] >= kinds[i] {
			t.Errorf("Kinds() not sorted at %d: %q >= %q", i, kinds[i-1], kinds[i])
		}
	}
	if Kind("table-of-contents").Known() {
		t.Error("unexpected kind reported as known")
	}
}

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

func TestWalk_OrderAndSkip(t *testing.T) {
	t.Parallel()

	var visited []Kind
	err := Walk(sample(), func(n, parent *Node) error {
		visited = append(visited, n.Kind)
		if n.Kind == KindParagraph {
			return SkipChildren
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() unexpected error: %v", err)
	}
	want := []Kind{KindDocument, KindParagraph, KindCodeBlock}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}

	stop := errors.New("stop")
	if err := Walk(sample(), func(n, _ *Node) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want %v", err, stop)
	}
}

func TestTransform_ReplaceAndRemove(t *testing.T) {
	t.Parallel()

	root := sample()
	err := Transform(root, func(n *Node) ([]*Node, error) {
		switch n.Kind {
		case KindMath:
			return nil, nil
		case KindCodeBlock:
			return []*Node{New(KindThematicBreak, n.Pos), New(KindThematicBreak, n.Pos)}, nil
		}
		return []*Node{n}, nil
	})
	if err != nil {
		t.Fatalf("Transform() unexpected error: %v", err)
	}

	want := `(document (paragraph (text "Inline ")) (thematic-break) (thematic-break))`
	if got := Dump(root); got != want {
		t.Errorf("Transform()\n got: %s\nwant: %s", got, want)
	}
}
