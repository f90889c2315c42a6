package pipeline

import (
	"errors"
	"fmt"

	"github.com/alnah/go-mdpost/internal/syntax"
)

// Sentinel errors for transform chain failures.
var (
	ErrParse              = errors.New("parse error")
	ErrDirective          = errors.New("directive error")
	ErrUnterminatedMath   = errors.New("unterminated math delimiter")
	ErrUnresolvedFootnote = errors.New("unresolved footnote")
	ErrDuplicateFootnote  = errors.New("duplicate footnote definition")
	ErrStageOrder         = errors.New("invalid stage order")
	ErrUnknownTheme       = errors.New("unknown theme")
)

// PositionError reports a failure located in the authored body.
type PositionError struct {
	Stage  string          // phase or stage name
	Pos    syntax.Position // offending source span start
	Err    error           // sentinel
	Detail string
}

func (e *PositionError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Stage, e.Pos, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *PositionError) Unwrap() error { return e.Err }

func positionErr(stage string, pos syntax.Position, err error, format string, args ...any) *PositionError {
	return &PositionError{
		Stage:  stage,
		Pos:    pos,
		Err:    err,
		Detail: fmt.Sprintf(format, args...),
	}
}
