package mdpost

// Notes:
// - Highlighted code is checked on structure and text content; the exact
//   token spans depend on the chroma lexer version.

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-mdpost/internal/syntax"
)

func newHTMLTable(t *testing.T, theme string) SubstitutionTable {
	t.Helper()
	table, err := HTMLTable(HTMLOptions{Theme: theme})
	if err != nil {
		t.Fatalf("HTMLTable() unexpected error: %v", err)
	}
	return table
}

func node(kind syntax.Kind, children ...*syntax.Node) *syntax.Node {
	return syntax.New(kind, noPos).Append(children...)
}

func TestHTMLTable_Markup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []*syntax.Node
		want  string
	}{
		{
			name:  "heading with id",
			nodes: []*syntax.Node{node(syntax.KindHeading, text("Hello")).SetAttr(syntax.AttrLevel, "2").SetAttr(syntax.AttrID, "hello")},
			want:  `<h2 id="hello">Hello</h2>`,
		},
		{
			name:  "text is escaped",
			nodes: []*syntax.Node{para(text("a<b & c"))},
			want:  `<p>a&lt;b &amp; c</p>`,
		},
		{
			name: "ordered list with start",
			nodes: []*syntax.Node{
				node(syntax.KindList, node(syntax.KindListItem, text("a"))).
					SetAttr(syntax.AttrOrdered, "true").SetAttr(syntax.AttrStart, "3"),
			},
			want: `<ol start="3"><li>a</li></ol>`,
		},
		{
			name: "ordered list from one",
			nodes: []*syntax.Node{
				node(syntax.KindList, node(syntax.KindListItem, text("a"))).
					SetAttr(syntax.AttrOrdered, "true").SetAttr(syntax.AttrStart, "1"),
			},
			want: `<ol><li>a</li></ol>`,
		},
		{
			name: "task items",
			nodes: []*syntax.Node{
				node(syntax.KindList,
					node(syntax.KindListItem, text("done")).SetAttr(syntax.AttrTask, "true").SetAttr(syntax.AttrChecked, "true"),
				).SetAttr(syntax.AttrOrdered, "false"),
			},
			want: `<ul><li class="task-list-item"><input type="checkbox" disabled="" checked=""/> done</li></ul>`,
		},
		{
			name: "links",
			nodes: []*syntax.Node{para(
				node(syntax.KindLink, text("ext")).SetAttr(syntax.AttrHref, "https://example.com"),
				node(syntax.KindLink, text("int")).SetAttr(syntax.AttrHref, "/about").SetAttr(syntax.AttrTitle, "About"),
				node(syntax.KindLink, text("rel")).SetAttr(syntax.AttrHref, "other"),
			)},
			want: `<p><a href="https://example.com" class="external" rel="noopener noreferrer">ext</a>` +
				`<a href="/about" title="About" class="internal">int</a>` +
				`<a href="other">rel</a></p>`,
		},
		{
			name:  "image keeps empty alt",
			nodes: []*syntax.Node{para(node(syntax.KindImage).SetAttr(syntax.AttrSrc, "/a.png"))},
			want:  `<p><img src="/a.png" loading="lazy" alt=""/></p>`,
		},
		{
			name: "table head and body",
			nodes: []*syntax.Node{
				node(syntax.KindTable,
					node(syntax.KindTableRow,
						node(syntax.KindTableCell, text("A")).SetAttr(syntax.AttrHeader, "true").SetAttr(syntax.AttrAlign, "left"),
					).SetAttr(syntax.AttrHeader, "true"),
					node(syntax.KindTableRow,
						node(syntax.KindTableCell, text("1")).SetAttr(syntax.AttrAlign, "none"),
					),
				),
			},
			want: `<table><thead><tr><th style="text-align:left">A</th></tr></thead>` +
				`<tbody><tr><td>1</td></tr></tbody></table>`,
		},
		{
			name: "math",
			nodes: []*syntax.Node{
				para(node(syntax.KindMath).SetAttr(syntax.AttrValue, "x^2").SetAttr(syntax.AttrDisplay, "inline")),
				node(syntax.KindMath).SetAttr(syntax.AttrValue, "y").SetAttr(syntax.AttrDisplay, "block"),
			},
			want: `<p><span class="math math-inline">x^2</span></p><div class="math math-display">y</div>`,
		},
		{
			name: "footnotes link both ways",
			nodes: []*syntax.Node{
				para(text("See"), node(syntax.KindSuperscript,
					node(syntax.KindFootnoteReference).
						SetAttr(syntax.AttrTarget, "fn-1").
						SetAttr(syntax.AttrID, "fnref-1").
						SetAttr(syntax.AttrIndex, "1"))),
				node(syntax.KindFootnoteDefinition, para(text("Note."))).
					SetAttr(syntax.AttrID, "fn-1").
					SetAttr(syntax.AttrIndex, "1").
					SetAttr(syntax.AttrRefs, "1"),
			},
			want: `<p>See<sup><a href="#fn-1" id="fnref-1" class="footnote-ref" role="doc-noteref">1</a></sup></p>` +
				`<div class="footnote" id="fn-1" role="doc-endnote"><span class="footnote-index">1.</span><p>Note.</p>` +
				`<a href="#fnref-1" class="footnote-backref" role="doc-backlink">↩</a></div>`,
		},
		{
			name: "unreferenced footnote",
			nodes: []*syntax.Node{
				node(syntax.KindFootnoteDefinition, para(text("Orphan."))).
					SetAttr(syntax.AttrID, "fn-x").
					SetAttr(syntax.AttrIndex, "0").
					SetAttr(syntax.AttrRefs, "0"),
			},
			want: `<div class="footnote" id="fn-x" role="doc-endnote"><p>Orphan.</p></div>`,
		},
		{
			name: "directive attributes",
			nodes: []*syntax.Node{
				node(syntax.KindDirective, para(text("x"))).
					SetAttr(syntax.AttrName, "note").
					SetAttr("kind", "warning"),
			},
			want: `<div class="directive directive-note" data-directive="note" data-kind="warning"><p>x</p></div>`,
		},
		{
			name: "raw html and rules",
			nodes: []*syntax.Node{
				node(syntax.KindHTML).SetAttr(syntax.AttrValue, "<b>raw</b>"),
				node(syntax.KindThematicBreak),
				para(text("a"), node(syntax.KindLineBreak), node(syntax.KindStrikethrough, text("b"))),
			},
			want: `<b>raw</b><hr/><p>a<br/><del>b</del></p>`,
		},
	}

	table := newHTMLTable(t, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := renderString(t, compileTree(t, tt.nodes...), table)
			if got != tt.want {
				t.Errorf("HTML =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestHTMLTable_CodeBlock(t *testing.T) {
	t.Parallel()

	code := "func main() {\n\tx := 1\n}"
	block := node(syntax.KindCodeBlock).
		SetAttr(syntax.AttrValue, code).
		SetAttr(syntax.AttrLang, "go").
		SetAttr(syntax.AttrTitle, "main.go")
	block.Lines = []syntax.LineAnnotation{
		{Line: 2, Kind: "mark", Label: "here"},
		{Line: 3, Kind: "focus"},
	}

	root, err := Render(compileTree(t, block), newHTMLTable(t, ""))
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	var b strings.Builder
	if err := WriteHTML(&b, root); err != nil {
		t.Fatalf("WriteHTML() unexpected error: %v", err)
	}
	got := b.String()

	for _, want := range []string{
		`<figure class="code-block" data-lang="go" data-theme="github">`,
		`<figcaption>main.go</figcaption>`,
		`<pre class="has-focus"`,
		`<code class="language-go">`,
		`<span class="line" data-line="1">`,
		`<span class="line mark" data-line="2" data-label="here">`,
		`<span class="line focus" data-line="3">`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("code block missing %q in\n%s", want, got)
		}
	}
	if text := TextContent(root); text != "main.go"+code {
		t.Errorf("code block text = %q, want %q", text, "main.go"+code)
	}
}

func TestHTMLTable_CodeBlockThemes(t *testing.T) {
	t.Parallel()

	plain := node(syntax.KindCodeBlock).SetAttr(syntax.AttrValue, "just text").SetAttr(syntax.AttrLang, "no-such-lang")
	themed := node(syntax.KindCodeBlock).SetAttr(syntax.AttrValue, "x").SetAttr(syntax.AttrTheme, "monokai")

	got := renderString(t, compileTree(t, plain, themed), newHTMLTable(t, "dracula"))
	if !strings.Contains(got, `data-lang="no-such-lang" data-theme="dracula"`) {
		t.Errorf("default theme not applied:\n%s", got)
	}
	if !strings.Contains(got, `data-theme="monokai"`) {
		t.Errorf("block theme not applied:\n%s", got)
	}
	if !strings.Contains(got, "just text") {
		t.Errorf("unknown language lost its text:\n%s", got)
	}
}

func TestHTMLTable_UnknownTheme(t *testing.T) {
	t.Parallel()

	if _, err := HTMLTable(HTMLOptions{Theme: "no-such-theme"}); !errors.Is(err, ErrUnknownTheme) {
		t.Errorf("HTMLTable() error = %v, want %v", err, ErrUnknownTheme)
	}
}

func TestHTMLTable_FromMarkdown(t *testing.T) {
	t.Parallel()

	a := compileBody(t, "## Hello World\n\nA [link](https://example.com) and a note[^1].\n\n[^1]: Details.\n")
	got := renderString(t, a, newHTMLTable(t, ""))

	for _, want := range []string{
		`<h2 id="hello-world">Hello World</h2>`,
		`class="external"`,
		`class="footnote-ref"`,
		`class="footnote"`,
		"Details.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q in\n%s", want, got)
		}
	}
}
