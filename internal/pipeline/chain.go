package pipeline

import (
	"context"
	"fmt"

	"github.com/alnah/go-mdpost/internal/syntax"
)

// Stage is one Phase C rewrite. Apply must not modify its input.
type Stage struct {
	Name     string
	Requires []string // stages that must run earlier in the same chain
	Last     bool     // must be the final stage
	Apply    func(*syntax.Node) (*syntax.Node, error)
}

// DefaultStages returns the standard order: math, extended, figures,
// footnotes.
func DefaultStages() []Stage {
	return []Stage{MathStage(), ExtendedStage(), FigureStage(), FootnoteStage()}
}

// Chain runs Phase A, Phase B and the configured stages.
type Chain struct {
	expander *expander
	parser   *markdownParser
	stages   []Stage
}

// NewChain validates the theme and the stage order. With no stages the
// default order is used.
func NewChain(theme string, stages ...Stage) (*Chain, error) {
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}
	exp, err := newExpander(theme)
	if err != nil {
		return nil, err
	}
	return &Chain{
		expander: exp,
		parser:   newMarkdownParser(),
		stages:   append([]Stage(nil), stages...),
	}, nil
}

// ValidateStages checks names are unique, prerequisites run earlier and a
// stage marked Last is final.
func ValidateStages(stages []Stage) error {
	seen := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.Name == "" || s.Apply == nil {
			return fmt.Errorf("%w: stage %d is incomplete", ErrStageOrder, i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: stage %q appears twice", ErrStageOrder, s.Name)
		}
		for _, req := range s.Requires {
			if _, ok := seen[req]; !ok {
				return fmt.Errorf("%w: stage %q requires %q to run first", ErrStageOrder, s.Name, req)
			}
		}
		if s.Last && i != len(stages)-1 {
			return fmt.Errorf("%w: stage %q must be last", ErrStageOrder, s.Name)
		}
		seen[s.Name] = i
	}
	return nil
}

// Theme returns the canonical default code theme.
func (c *Chain) Theme() string { return c.expander.theme }

// Stages returns the stage names in execution order.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name
	}
	return names
}

// Transform turns a raw body into a syntax tree. The context is checked
// between phases and stages.
func (c *Chain) Transform(ctx context.Context, body string) (*syntax.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	exp, err := c.expander.expand(body)
	if err != nil {
		return nil, err
	}
	tree, err := c.parser.parse(ctx, exp)
	if err != nil {
		return nil, err
	}
	for _, s := range c.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if tree, err = s.Apply(tree); err != nil {
			return nil, err
		}
	}
	return tree, nil
}
