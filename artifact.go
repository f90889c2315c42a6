package mdpost

import (
	"github.com/alnah/go-mdpost/internal/compiler"
	"github.com/alnah/go-mdpost/internal/pipeline"
)

// Artifact is an immutable compiled post: an encoded render program plus
// its metadata. Recompiling yields a new Artifact.
type Artifact = compiler.Artifact

// Metadata is the flat description of a compiled post. Title, Summary,
// Date, Image and Slug are never empty.
type Metadata = compiler.Metadata

// Stage is one ordered tree rewrite of the transform chain.
type Stage = pipeline.Stage

// LoadArtifact rebuilds an artifact from a stored payload.
func LoadArtifact(payload []byte, meta Metadata) (*Artifact, error) {
	return compiler.Load(payload, meta)
}

// DefaultStages returns math, extended syntax, figures and footnotes, in
// that order.
func DefaultStages() []Stage { return pipeline.DefaultStages() }

// Individual stages, for callers assembling a custom order.
var (
	MathStage     = pipeline.MathStage
	ExtendedStage = pipeline.ExtendedStage
	FigureStage   = pipeline.FigureStage
	FootnoteStage = pipeline.FootnoteStage
)

// ValidateTheme returns the canonical name of a code highlighting theme.
func ValidateTheme(name string) (string, error) { return pipeline.ValidateTheme(name) }

// Themes lists the available code highlighting themes.
func Themes() []string { return pipeline.Themes() }
