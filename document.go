package mdpost

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/alnah/go-mdpost/internal/compiler"
	"github.com/alnah/go-mdpost/internal/dateutil"
	"github.com/alnah/go-mdpost/internal/yamlutil"
)

// Front matter keys.
const (
	FieldTitle     = "title"
	FieldSummary   = "summary"
	FieldDate      = "date"
	FieldPublished = "published"
	FieldImage     = "image"

	// Accepted aliases.
	fieldPublishDate = "publishDate"
	fieldHeroImage   = "heroImage"
)

// Extensions accepted for post sources.
var sourceExtensions = map[string]bool{".md": true, ".mdx": true}

var yamlFormat = frontmatter.NewFormat("---", "---", yamlutil.UnmarshalFrontMatter)

// Source is one authored file as handed over by the caller.
type Source struct {
	Path    string // slash-separated storage path, e.g. "posts/2024/my-title.mdx"
	Content []byte
}

// RawDocument is a source split into front matter fields and body.
type RawDocument struct {
	Path   string
	Fields map[string]any
	Body   string
}

// Document is a resolved post. Slug and RouteKey are derived once by Resolve.
type Document struct {
	Path          string
	Title         string
	Summary       string
	PublishDate   time.Time
	Published     bool
	HeroImage     string
	Body          string
	CanonicalSlug string
	RouteKey      string
}

// ParseSource splits the YAML front matter block from the body. A source
// without front matter yields empty fields; Resolve then reports the first
// missing one.
func ParseSource(src Source) (RawDocument, error) {
	fields := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(src.Content), &fields, yamlFormat)
	if err != nil {
		return RawDocument{}, &FieldError{
			Path:   src.Path,
			Field:  "front matter",
			Err:    ErrInvalidField,
			Detail: err.Error(),
		}
	}
	return RawDocument{Path: src.Path, Fields: fields, Body: string(body)}, nil
}

// Resolve validates the required fields and derives the slug and route key.
// It is pure: resolving doc.Raw() again yields an equal Document.
func Resolve(raw RawDocument, collectionPrefix string) (*Document, error) {
	slug, key, err := deriveSlug(raw.Path, collectionPrefix)
	if err != nil {
		return nil, err
	}

	fieldErr := func(field string, sentinel error, format string, args ...any) error {
		return &FieldError{Path: raw.Path, Field: field, Err: sentinel, Detail: fmt.Sprintf(format, args...)}
	}

	doc := &Document{
		Path:          raw.Path,
		Body:          raw.Body,
		CanonicalSlug: slug,
		RouteKey:      key,
		Published:     true,
	}

	if doc.Title, err = stringField(raw.Fields, FieldTitle); err != nil {
		return nil, fieldErr(FieldTitle, ErrInvalidField, "%v", err)
	}
	if doc.Title == "" {
		return nil, fieldErr(FieldTitle, ErrMissingRequiredField, "")
	}
	if doc.Summary, err = stringField(raw.Fields, FieldSummary); err != nil {
		return nil, fieldErr(FieldSummary, ErrInvalidField, "%v", err)
	}
	if doc.Summary == "" {
		return nil, fieldErr(FieldSummary, ErrMissingRequiredField, "")
	}

	dateValue, ok := lookup(raw.Fields, FieldDate, fieldPublishDate)
	if !ok || isBlank(dateValue) {
		return nil, fieldErr(FieldDate, ErrMissingRequiredField, "")
	}
	if doc.PublishDate, err = dateutil.ParseDate(dateValue); err != nil {
		return nil, fieldErr(FieldDate, ErrInvalidField, "%v", err)
	}

	if doc.HeroImage, err = stringField(raw.Fields, FieldImage, fieldHeroImage); err != nil {
		return nil, fieldErr(FieldImage, ErrInvalidField, "%v", err)
	}
	if doc.HeroImage == "" {
		return nil, fieldErr(FieldImage, ErrMissingRequiredField, "")
	}

	if v, ok := raw.Fields[FieldPublished]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			return nil, fieldErr(FieldPublished, ErrInvalidField, "want true or false, got %T", v)
		}
		doc.Published = b
	}

	return doc, nil
}

// Raw returns the fields Resolve reads, in canonical form.
func (d *Document) Raw() RawDocument {
	return RawDocument{
		Path: d.Path,
		Fields: map[string]any{
			FieldTitle:     d.Title,
			FieldSummary:   d.Summary,
			FieldDate:      d.PublishDate,
			FieldPublished: d.Published,
			FieldImage:     d.HeroImage,
		},
		Body: d.Body,
	}
}

// Metadata returns the flat metadata stored with the compiled artifact.
func (d *Document) Metadata() Metadata {
	return compiler.Metadata{
		Title:     d.Title,
		Summary:   d.Summary,
		Date:      d.PublishDate.Format(dateutil.ISOLayout),
		Image:     d.HeroImage,
		Slug:      d.CanonicalSlug,
		RouteKey:  d.RouteKey,
		Published: d.Published,
	}
}

// deriveSlug maps "posts/2024/my-title.mdx" under prefix "posts" to
// "/2024/my-title" and "2024/my-title". A trailing "index" segment names its
// directory.
func deriveSlug(p, prefix string) (slug, key string, err error) {
	pathErr := func(format string, args ...any) error {
		return &FieldError{Path: p, Field: "path", Err: ErrInvalidPath, Detail: fmt.Sprintf(format, args...)}
	}

	clean := strings.ReplaceAll(p, "\\", "/")
	if clean == "" || strings.HasPrefix(clean, "/") {
		return "", "", pathErr("must be a relative storage path")
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", "", pathErr("must not contain \"..\"")
		}
	}
	clean = path.Clean(clean)

	ext := path.Ext(clean)
	if !sourceExtensions[strings.ToLower(ext)] {
		return "", "", pathErr("unsupported extension %q (want .md or .mdx)", ext)
	}
	rel := strings.TrimSuffix(clean, ext)

	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		if !strings.HasPrefix(rel, prefix+"/") {
			return "", "", pathErr("outside collection %q", prefix)
		}
		rel = strings.TrimPrefix(rel, prefix+"/")
	}

	if rel == "index" {
		rel = ""
	}
	rel = strings.TrimSuffix(rel, "/index")
	if rel == "" {
		return "", "", pathErr("collection index has no route key")
	}
	return "/" + rel, rel, nil
}

func lookup(fields map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func stringField(fields map[string]any, keys ...string) (string, error) {
	v, ok := lookup(fields, keys...)
	if !ok || v == nil {
		return "", nil
	}
	s, isString := v.(string)
	if !isString {
		return "", fmt.Errorf("want a string, got %T", v)
	}
	return strings.TrimSpace(s), nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
