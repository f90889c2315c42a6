package mdpost

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/alnah/go-mdpost/internal/syntax"
)

// PlainTextTable renders every node as a text node: paragraphs separated by
// blank lines, list items prefixed with "- ", table cells separated by tabs,
// footnote references as "[n]". Raw HTML and thematic breaks are dropped.
// Suited to summaries and search indexing; read the result with TextContent.
func PlainTextTable() SubstitutionTable {
	t := make(SubstitutionTable, len(renderKeys)+1)
	for key := range renderKeys {
		t[key] = plainGeneric
	}
	t[string(syntax.KindDirective)] = plainBlock

	t[string(syntax.KindDocument)] = func(_ Props, children []*html.Node) *html.Node {
		return textNode(strings.TrimSpace(joinText(children)))
	}
	t[string(syntax.KindText)] = plainValue
	t[string(syntax.KindInlineCode)] = plainValue
	t[string(syntax.KindMath)] = func(p Props, _ []*html.Node) *html.Node {
		if p.IsInline() {
			return textNode(p.Value())
		}
		return textNode(p.Value() + "\n\n")
	}
	t[string(syntax.KindCodeBlock)] = func(p Props, _ []*html.Node) *html.Node {
		return textNode(strings.TrimRight(p.Value(), "\n") + "\n\n")
	}
	t[string(syntax.KindLineBreak)] = func(Props, []*html.Node) *html.Node { return textNode("\n") }
	t[string(syntax.KindImage)] = func(p Props, _ []*html.Node) *html.Node {
		return textNode(p.Attr(syntax.AttrAlt))
	}
	t[string(syntax.KindFootnoteReference)] = func(p Props, _ []*html.Node) *html.Node {
		return textNode("[" + p.Attr(syntax.AttrIndex) + "]")
	}
	t[string(syntax.KindFootnoteDefinition)] = func(p Props, children []*html.Node) *html.Node {
		return textNode("[" + p.Attr(syntax.AttrIndex) + "] " + strings.TrimSpace(joinText(children)) + "\n\n")
	}
	t[string(syntax.KindHTML)] = plainDrop
	t[string(syntax.KindThematicBreak)] = plainDrop

	listItem := func(p Props, children []*html.Node) *html.Node {
		prefix := "- "
		if p.Bool(syntax.AttrTask) {
			prefix = "- [ ] "
			if p.Bool(syntax.AttrChecked) {
				prefix = "- [x] "
			}
		}
		return textNode(prefix + strings.TrimSpace(joinText(children)) + "\n")
	}
	list := func(_ Props, children []*html.Node) *html.Node {
		return textNode(joinText(children) + "\n")
	}
	t[string(syntax.KindListItem)] = listItem
	t[KeyOrderedList] = list
	t[KeyUnorderedList] = list

	t[string(syntax.KindTableCell)] = func(_ Props, children []*html.Node) *html.Node {
		return textNode(strings.TrimSpace(joinText(children)))
	}
	t[string(syntax.KindTableRow)] = func(_ Props, children []*html.Node) *html.Node {
		cells := make([]string, len(children))
		for i, c := range children {
			cells[i] = TextContent(c)
		}
		return textNode(strings.Join(cells, "\t") + "\n")
	}
	t[string(syntax.KindFigureCaption)] = func(_ Props, children []*html.Node) *html.Node {
		return textNode(strings.TrimSpace(joinText(children)) + "\n")
	}
	t[string(syntax.KindFigure)] = func(_ Props, children []*html.Node) *html.Node {
		// The caption repeats the image text.
		if len(children) > 1 {
			children = children[1:]
		}
		return textNode(strings.TrimSpace(joinText(children)) + "\n\n")
	}
	return t
}

func plainGeneric(p Props, children []*html.Node) *html.Node {
	if p.IsInline() {
		return textNode(joinText(children))
	}
	return plainBlock(p, children)
}

func plainBlock(_ Props, children []*html.Node) *html.Node {
	s := strings.TrimSpace(joinText(children))
	if s == "" {
		return nil
	}
	return textNode(s + "\n\n")
}

func plainValue(p Props, _ []*html.Node) *html.Node { return textNode(p.Value()) }

func plainDrop(Props, []*html.Node) *html.Node { return nil }

func joinText(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(TextContent(n))
	}
	return b.String()
}
