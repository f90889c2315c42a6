package mdpost

import (
	"errors"
	"fmt"

	"github.com/alnah/go-mdpost/internal/compiler"
	"github.com/alnah/go-mdpost/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	// Field resolution errors.
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidField         = errors.New("invalid field")
	ErrInvalidPath          = errors.New("invalid document path")

	// Transform chain errors.
	ErrParse              = pipeline.ErrParse
	ErrDirective          = pipeline.ErrDirective
	ErrUnterminatedMath   = pipeline.ErrUnterminatedMath
	ErrUnresolvedFootnote = pipeline.ErrUnresolvedFootnote
	ErrDuplicateFootnote  = pipeline.ErrDuplicateFootnote
	ErrStageOrder         = pipeline.ErrStageOrder
	ErrUnknownTheme       = pipeline.ErrUnknownTheme

	// Compilation errors.
	ErrCompile         = compiler.ErrCompile
	ErrCorruptArtifact = compiler.ErrCorruptArtifact

	// Collection and rendering errors.
	ErrDuplicateRouteKey = errors.New("duplicate route key")
	ErrUnknownRenderKind = errors.New("unknown render kind")
	ErrNotFound          = errors.New("not found")
)

// PositionError reports a transform failure located in the post body.
type PositionError = pipeline.PositionError

// FieldError reports a front matter or path problem.
type FieldError struct {
	Path   string // source path
	Field  string // front matter key, or "path"
	Err    error  // sentinel
	Detail string
}

func (e *FieldError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Path, e.Field, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *FieldError) Unwrap() error { return e.Err }

// IngestError ties a per-document failure to its source path.
type IngestError struct {
	Path string
	Err  error
}

func (e *IngestError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *IngestError) Unwrap() error { return e.Err }
