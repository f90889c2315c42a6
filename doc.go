// Package mdpost turns authored Markdown posts into compiled, renderable
// documents.
//
// # Quick Start
//
// Create a processor, ingest the sources, then render a post:
//
//	proc, err := mdpost.NewProcessor(mdpost.WithCollectionPrefix("posts"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	coll, err := proc.Ingest(ctx, []mdpost.Source{
//	    {Path: "posts/2024/my-title.mdx", Content: content},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	post, err := coll.Lookup("2024/my-title")
//	if err != nil {
//	    // errors.Is(err, mdpost.ErrNotFound)
//	}
//	table, _ := mdpost.HTMLTable(mdpost.HTMLOptions{Theme: "github"})
//	tree, err := mdpost.Render(post.Artifact, table)
//	mdpost.WriteHTML(w, tree)
//
// # Pipeline
//
// Each source goes through these steps, once:
//
//  1. Front matter split (adrg/frontmatter, goccy/go-yaml)
//  2. Field resolution: required fields, canonical slug and route key
//  3. Directive expansion (:::code and custom containers)
//  4. Markdown parse via Goldmark into a syntax tree
//  5. Ordered stages: math, extended syntax, figures, footnotes
//  6. Compilation into a msgpack-encoded post-order render program
//
// Rendering runs per call. The caller passes a SubstitutionTable mapping
// render keys ("paragraph", "heading-2", "custom-directive:note", ...) to
// functions; keys it leaves out fall back to a generic element that keeps
// the children. PlainTextTable and HTMLTable are ready-made tables.
//
// # Errors
//
// Per-document failures never stop a collection. Lookup reports
// ErrNotFound for missing and failed documents alike; Failure returns the
// underlying error, which matches one of the sentinels in errors.go.
// Failures located in the body are *PositionError values.
//
// # Concurrency
//
// Processor, Collection and Artifact are safe for concurrent use. Render
// decodes its own program on every call.
package mdpost
