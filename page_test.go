package mdpost

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func writePage(t *testing.T, n *html.Node) string {
	t.Helper()
	var b strings.Builder
	if err := WriteHTML(&b, n); err != nil {
		t.Fatalf("WriteHTML() unexpected error: %v", err)
	}
	return b.String()
}

func TestRenderPage(t *testing.T) {
	t.Parallel()

	a := compileTree(t, para(text("Body")))
	table := newHTMLTable(t, "")

	t.Run("default date format", func(t *testing.T) {
		t.Parallel()

		doc, err := RenderPage(a, table, PageOptions{Site: "bkase"})
		if err != nil {
			t.Fatalf("RenderPage() unexpected error: %v", err)
		}
		got := writePage(t, doc)

		if !strings.HasPrefix(got, "<!DOCTYPE html>") {
			t.Errorf("page should start with a doctype:\n%s", got)
		}
		for _, want := range []string{
			`<meta charset="utf-8"/>`,
			`<title>Hello - bkase</title>`,
			`<meta name="description" content="A post"/>`,
			`<h1>Hello</h1>`,
			`<time datetime="2024-03-01">Published on March 1, 2024</time>`,
			`<img src="/hero.png" alt="Hello" class="hero"/>`,
			`</header><p>Body</p></article>`,
		} {
			if !strings.Contains(got, want) {
				t.Errorf("page missing %q in\n%s", want, got)
			}
		}
	})

	t.Run("custom date format and no site", func(t *testing.T) {
		t.Parallel()

		doc, err := RenderPage(a, table, PageOptions{DateFormat: "iso"})
		if err != nil {
			t.Fatalf("RenderPage() unexpected error: %v", err)
		}
		got := writePage(t, doc)
		if !strings.Contains(got, "<title>Hello</title>") {
			t.Errorf("title should be the post title alone:\n%s", got)
		}
		if !strings.Contains(got, "Published on 2024-03-01") {
			t.Errorf("date not in iso format:\n%s", got)
		}
	})

	t.Run("invalid date format", func(t *testing.T) {
		t.Parallel()

		if _, err := RenderPage(a, table, PageOptions{DateFormat: "[broken"}); err == nil {
			t.Error("RenderPage() expected error for an invalid date format")
		}
	})

	t.Run("plain text body", func(t *testing.T) {
		t.Parallel()

		doc, err := RenderPage(a, PlainTextTable(), PageOptions{})
		if err != nil {
			t.Fatalf("RenderPage() unexpected error: %v", err)
		}
		if got := writePage(t, doc); !strings.Contains(got, "</header>Body</article>") {
			t.Errorf("plain body not appended:\n%s", got)
		}
	})
}

func TestRenderFeed(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	coll := NewCollection(
		mustProcess(t, p, source("posts/old.md", "title: Old\nsummary: First\ndate: 2023-01-05\nimage: /old.png\n", "x")),
		mustProcess(t, p, source("posts/new.md", "title: New\nsummary: Second\ndate: 2024-03-01\nimage: /new.png\n", "x")),
		mustProcess(t, p, source("posts/draft.md", "title: Draft\nsummary: Hidden\ndate: 2025-01-01\nimage: /d.png\npublished: false\n", "x")),
	)

	doc, err := RenderFeed(coll.Feed(), "Posts", PageOptions{Site: "bkase", DateFormat: "long"})
	if err != nil {
		t.Fatalf("RenderFeed() unexpected error: %v", err)
	}
	got := writePage(t, doc)

	for _, want := range []string{
		`<title>Posts - bkase</title>`,
		`<h1>Posts</h1>`,
		`<a href="/new"><img src="/new.png" alt="New"/><h2>New</h2></a>`,
		`<time datetime="2024-03-01">March 1, 2024</time><p>Second</p>`,
		`<time datetime="2023-01-05">January 5, 2023</time><p>First</p>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("feed missing %q in\n%s", want, got)
		}
	}
	if strings.Contains(got, "Draft") {
		t.Errorf("feed should not list drafts:\n%s", got)
	}
	if strings.Index(got, `href="/new"`) > strings.Index(got, `href="/old"`) {
		t.Errorf("feed should list newest first:\n%s", got)
	}
}
