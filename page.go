package mdpost

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-mdpost/internal/config"
	"github.com/alnah/go-mdpost/internal/dateutil"
)

// PageOptions configures RenderPage and RenderFeed.
type PageOptions struct {
	Site       string // appended to page titles; empty = title alone
	DateFormat string // dateutil preset or tokens; empty = "long"
}

func (o PageOptions) formatDate(iso string) (string, error) {
	format := o.DateFormat
	if format == "" {
		format = config.DefaultDateFormat
	}
	t, err := dateutil.ParseDate(iso)
	if err != nil {
		return "", err
	}
	return dateutil.FormatDate(t, format)
}

// RenderPage renders a complete HTML document for one post: head with title
// and description, then an article holding the title, the publish date, the
// hero image and the body rendered with table.
func RenderPage(a *Artifact, table SubstitutionTable, opts PageOptions) (*html.Node, error) {
	body, err := Render(a, table)
	if err != nil {
		return nil, err
	}
	meta := a.Metadata()
	published, err := opts.formatDate(meta.Date)
	if err != nil {
		return nil, fmt.Errorf("formatting date: %w", err)
	}

	doc, bodyEl := pageShell(meta.PageTitle(opts.Site), meta.Description())

	article := element(atom.Article)
	header := element(atom.Header)
	h1 := element(atom.H1)
	h1.AppendChild(textNode(meta.Title))
	header.AppendChild(h1)
	when := element(atom.Time, "datetime", meta.Date)
	when.AppendChild(textNode("Published on " + published))
	header.AppendChild(when)
	header.AppendChild(element(atom.Img, "src", meta.Image, "alt", meta.Title, "class", "hero"))
	article.AppendChild(header)
	appendAll(article, []*html.Node{body})
	bodyEl.AppendChild(article)
	return doc, nil
}

// RenderFeed renders the feed page: one entry per post with its hero image,
// title, date and summary, in the order given (use Collection.Feed).
func RenderFeed(posts []*Post, title string, opts PageOptions) (*html.Node, error) {
	pageTitle := title
	if opts.Site != "" {
		pageTitle = title + " - " + opts.Site
	}
	doc, bodyEl := pageShell(pageTitle, "")

	h1 := element(atom.H1)
	h1.AppendChild(textNode(title))
	bodyEl.AppendChild(h1)

	list := element(atom.Ul, "class", "feed")
	for _, p := range posts {
		meta := p.Artifact.Metadata()
		date, err := opts.formatDate(meta.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: formatting date: %w", p.Document.Path, err)
		}

		item := element(atom.Li)
		link := element(atom.A, "href", meta.Slug)
		link.AppendChild(element(atom.Img, "src", meta.Image, "alt", meta.Title))
		h2 := element(atom.H2)
		h2.AppendChild(textNode(meta.Title))
		link.AppendChild(h2)
		item.AppendChild(link)

		when := element(atom.Time, "datetime", meta.Date)
		when.AppendChild(textNode(date))
		item.AppendChild(when)

		summary := element(atom.P)
		summary.AppendChild(textNode(meta.Summary))
		item.AppendChild(summary)
		list.AppendChild(item)
	}
	bodyEl.AppendChild(list)
	return doc, nil
}

// pageShell builds <!DOCTYPE html><html><head>…</head><body></body></html>.
func pageShell(title, description string) (doc, body *html.Node) {
	doc = &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, "charset", "utf-8"))
	t := element(atom.Title)
	t.AppendChild(textNode(title))
	head.AppendChild(t)
	if description != "" {
		head.AppendChild(element(atom.Meta, "name", "description", "content", description))
	}
	root.AppendChild(head)

	body = element(atom.Body)
	root.AppendChild(body)
	doc.AppendChild(root)
	return doc, body
}
