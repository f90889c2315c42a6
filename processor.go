package mdpost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-mdpost/internal/compiler"
	"github.com/alnah/go-mdpost/internal/config"
	"github.com/alnah/go-mdpost/internal/logfields"
	"github.com/alnah/go-mdpost/internal/pipeline"
)

// Option configures a Processor.
type Option func(*Processor)

// processorConfig holds internal configuration for Processor.
type processorConfig struct {
	collection string
	theme      string
	stages     []Stage
	workers    int
	timeout    time.Duration
}

// WithCollectionPrefix sets the path segment stripped when deriving slugs.
// An empty prefix treats every source path as relative to the collection.
func WithCollectionPrefix(prefix string) Option {
	return func(p *Processor) {
		p.cfg.collection = prefix
	}
}

// WithTheme sets the default code highlighting theme for :::code blocks.
func WithTheme(name string) Option {
	return func(p *Processor) {
		p.cfg.theme = name
	}
}

// WithStages replaces the default stage order.
func WithStages(stages ...Stage) Option {
	return func(p *Processor) {
		p.cfg.stages = append([]Stage(nil), stages...)
	}
}

// WithWorkers bounds concurrent documents in Ingest. Zero means automatic.
// Panics if n < 0 (programmer error).
func WithWorkers(n int) Option {
	if n < 0 {
		panic("mdpost: WithWorkers count must not be negative")
	}
	return func(p *Processor) {
		p.cfg.workers = n
	}
}

// WithTimeout bounds the transform of a single document.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mdpost: WithTimeout duration must be positive")
	}
	return func(p *Processor) {
		p.cfg.timeout = d
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// Processor turns sources into compiled posts. It is safe for concurrent use.
type Processor struct {
	cfg    processorConfig
	chain  *pipeline.Chain
	logger *slog.Logger
}

// Post is a successfully processed document.
type Post struct {
	Document *Document
	Artifact *Artifact
}

// NewProcessor creates a Processor. The theme and stage order are validated
// here, once.
func NewProcessor(opts ...Option) (*Processor, error) {
	p := &Processor{
		cfg: processorConfig{
			collection: config.DefaultCollection,
			theme:      config.DefaultTheme,
		},
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(p)
	}

	chain, err := pipeline.NewChain(p.cfg.theme, p.cfg.stages...)
	if err != nil {
		return nil, err
	}
	p.chain = chain
	p.cfg.workers = ResolveWorkers(p.cfg.workers)
	return p, nil
}

// NewProcessorFromConfig applies a loaded configuration, then opts.
func NewProcessorFromConfig(cfg *config.Config, opts ...Option) (*Processor, error) {
	cfg = cfg.WithDefaults()
	base := []Option{
		WithCollectionPrefix(cfg.Collection.Prefix),
		WithTheme(cfg.Code.Theme),
		WithWorkers(cfg.Build.Workers),
	}
	return NewProcessor(append(base, opts...)...)
}

// Theme returns the canonical default code theme.
func (p *Processor) Theme() string { return p.chain.Theme() }

// Collection returns the collection prefix.
func (p *Processor) Collection() string { return p.cfg.collection }

// Workers returns the resolved Ingest concurrency.
func (p *Processor) Workers() int { return p.cfg.workers }

// Process runs one source through resolution, the transform chain and the
// compiler. Failures are returned as *IngestError.
func (p *Processor) Process(ctx context.Context, src Source) (post *Post, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &IngestError{Path: src.Path, Err: fmt.Errorf("internal error: %v", r)}
		}
	}()

	start := time.Now()
	post, err = p.process(ctx, src)
	if err != nil {
		p.logger.Debug("document failed", logfields.Path(src.Path), logfields.Error(err))
		return nil, &IngestError{Path: src.Path, Err: err}
	}
	p.logger.Debug("document compiled",
		logfields.Path(src.Path),
		logfields.RouteKey(post.Document.RouteKey),
		logfields.Duration(time.Since(start)))
	return post, nil
}

func (p *Processor) process(ctx context.Context, src Source) (*Post, error) {
	raw, err := ParseSource(src)
	if err != nil {
		return nil, err
	}
	doc, err := Resolve(raw, p.cfg.collection)
	if err != nil {
		return nil, err
	}

	if p.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.timeout)
		defer cancel()
	}
	tree, err := p.chain.Transform(ctx, doc.Body)
	if err != nil {
		return nil, err
	}

	artifact, err := compiler.Compile(tree, doc.Metadata())
	if err != nil {
		return nil, err
	}
	return &Post{Document: doc, Artifact: artifact}, nil
}

// Ingest processes sources concurrently and assembles a collection. A
// failing document never stops the others; its error is kept in the
// collection. Ingest itself fails only when ctx is done.
func (p *Processor) Ingest(ctx context.Context, sources []Source) (*Collection, error) {
	start := time.Now()
	results := make([]ingestResult, len(sources))

	var g errgroup.Group
	g.SetLimit(p.cfg.workers)
	for i, src := range sources {
		g.Go(func() error {
			post, err := p.Process(ctx, src)
			results[i] = ingestResult{path: src.Path, post: post, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := newCollection(results)
	p.logger.Info("collection ingested",
		logfields.Documents(len(sources)),
		logfields.Failed(len(c.failures)),
		logfields.Workers(p.cfg.workers),
		logfields.Duration(time.Since(start)))
	for _, path := range c.FailedPaths() {
		err := c.failures[path]
		level := slog.LevelWarn
		if errors.Is(err, context.DeadlineExceeded) {
			level = slog.LevelError
		}
		p.logger.Log(ctx, level, "document excluded", logfields.Path(path), logfields.Error(err))
	}
	return c, nil
}

type ingestResult struct {
	path string
	post *Post
	err  error
}
