package compiler

import (
	"fmt"
	"strconv"

	"github.com/alnah/go-mdpost/internal/syntax"
)

// Metadata is the flat description of a compiled document.
type Metadata struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Date      string `json:"date"` // YYYY-MM-DD
	Image     string `json:"image"`
	Slug      string `json:"slug"`
	RouteKey  string `json:"routeKey"`
	Published bool   `json:"published"`
}

// Map returns the metadata as string fields.
func (m Metadata) Map() map[string]string {
	return map[string]string{
		"title":     m.Title,
		"summary":   m.Summary,
		"date":      m.Date,
		"image":     m.Image,
		"slug":      m.Slug,
		"routeKey":  m.RouteKey,
		"published": strconv.FormatBool(m.Published),
	}
}

// PageTitle returns "<title> - <site>", or the title alone when site is empty.
func (m Metadata) PageTitle(site string) string {
	if site == "" {
		return m.Title
	}
	return m.Title + " - " + site
}

// Description is the page description, the document summary.
func (m Metadata) Description() string { return m.Summary }

func (m Metadata) validate() error {
	for _, f := range []struct{ name, value string }{
		{"title", m.Title},
		{"summary", m.Summary},
		{"date", m.Date},
		{"image", m.Image},
		{"slug", m.Slug},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: metadata %s is empty", ErrCompile, f.name)
		}
	}
	return nil
}

// Artifact is an immutable compiled document: an encoded program plus its
// metadata.
type Artifact struct {
	payload []byte
	meta    Metadata
}

// Compile validates tree and meta and returns the artifact.
func Compile(tree *syntax.Node, meta Metadata) (*Artifact, error) {
	if err := meta.validate(); err != nil {
		return nil, err
	}
	payload, err := Encode(tree)
	if err != nil {
		return nil, err
	}
	return &Artifact{payload: payload, meta: meta}, nil
}

// Load rebuilds an artifact from a stored payload, checking it decodes.
func Load(payload []byte, meta Metadata) (*Artifact, error) {
	if _, err := Decode(payload); err != nil {
		return nil, err
	}
	return &Artifact{payload: append([]byte(nil), payload...), meta: meta}, nil
}

// Metadata returns the document metadata.
func (a *Artifact) Metadata() Metadata { return a.meta }

// Payload returns a copy of the encoded program.
func (a *Artifact) Payload() []byte { return append([]byte(nil), a.payload...) }

// Program decodes a fresh copy of the program.
func (a *Artifact) Program() (*Program, error) { return Decode(a.payload) }
