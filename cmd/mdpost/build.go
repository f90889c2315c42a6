package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/net/html"

	mdpost "github.com/alnah/go-mdpost"
	"github.com/alnah/go-mdpost/internal/config"
	"github.com/alnah/go-mdpost/internal/fileutil"
	"github.com/alnah/go-mdpost/internal/hints"
)

// Sentinel errors for the build command.
var (
	ErrNoInput            = errors.New("no input files")
	ErrReadSource         = errors.New("cannot read source")
	ErrWriteOutput        = errors.New("cannot write output")
	ErrInvalidSourcePath  = errors.New("source path must be relative to --root")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidTimeout     = errors.New("invalid timeout")
	ErrDocumentsFailed    = errors.New("documents failed")
	ErrUsage              = errors.New("invalid usage")
)

// feedKey names the listing page written next to the posts.
const feedKey = "index"

// buildResult holds the outcome of building a single document.
type buildResult struct {
	SourcePath string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// runBuildCmd parses flags, runs the build and maps the outcome to an exit code.
func runBuildCmd(args []string, env *Environment) int {
	f, files, err := parseBuildFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		err = fmt.Errorf("%w: %w", ErrUsage, err)
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	if err := runBuild(ctx, f, files, env); err != nil {
		if !errors.Is(err, ErrDocumentsFailed) {
			fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err, ""))
		}
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// runBuild ingests the given files and writes one output per routable post.
func runBuild(ctx context.Context, f *buildFlags, files []string, env *Environment) error {
	if len(files) == 0 {
		return ErrNoInput
	}

	warnUnknownEnvVars(env.Stderr, env.Environ())
	envCfg := loadEnvConfig(env.Getenv)

	if err := validateWorkers(f.workers); err != nil {
		return err
	}
	timeout, err := resolveTimeout(f.timeout, envCfg)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(f, envCfg)
	if err != nil {
		return err
	}

	sources, err := readSources(f.root, files)
	if err != nil {
		return err
	}

	opts := []mdpost.Option{mdpost.WithLogger(newLogger(f.common.verbose, env))}
	if timeout > 0 {
		opts = append(opts, mdpost.WithTimeout(timeout))
	}
	proc, err := mdpost.NewProcessorFromConfig(cfg, opts...)
	if err != nil {
		return err
	}

	coll, err := proc.Ingest(ctx, sources)
	if err != nil {
		return err
	}

	results, err := writeOutputs(coll, sources, cfg, env.Now)
	if err != nil {
		return err
	}

	failed := printResults(results, f.common.quiet, f.common.verbose, cfg.Collection.Prefix, env)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrDocumentsFailed, failed, len(results))
	}
	return nil
}

// validateWorkers rejects counts the processor would refuse.
func validateWorkers(n int) error {
	if n < 0 || n > mdpost.MaxWorkers {
		return fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidWorkerCount, n, mdpost.MaxWorkers)
	}
	return nil
}

// resolveTimeout returns the per-document timeout: flag first, then
// MDPOST_TIMEOUT. Zero means none.
func resolveTimeout(flagValue string, env *envConfig) (time.Duration, error) {
	if flagValue == "" {
		return env.Timeout, nil
	}
	d, err := time.ParseDuration(flagValue)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, flagValue)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: must be positive, got %s", ErrInvalidTimeout, d)
	}
	return d, nil
}

// resolveConfig builds the effective configuration.
// Priority: flags > env vars > config file > defaults.
func resolveConfig(f *buildFlags, env *envConfig) (*config.Config, error) {
	cfg := &config.Config{}

	name := f.common.config
	if name == "" {
		name = env.ConfigPath
	}
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvConfig(env, cfg)
	mergeFlags(f, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg.WithDefaults(), nil
}

// mergeFlags applies CLI flags over config values. Only non-empty flags
// override.
func mergeFlags(f *buildFlags, cfg *config.Config) {
	if f.output != "" {
		cfg.Build.OutputDir = f.output
	}
	if f.workers > 0 {
		cfg.Build.Workers = f.workers
	}
	if f.collection != "" {
		cfg.Collection.Prefix = f.collection
	}
	if f.theme != "" {
		cfg.Code.Theme = f.theme
	}
	if f.format != "" {
		cfg.Build.Format = f.format
	}
	if f.site != "" {
		cfg.Site.Name = f.site
	}
	if f.dateFormat != "" {
		cfg.Dates.Format = f.dateFormat
	}
}

// readSources loads each file below root. Arguments are slash-separated
// storage paths; they become the Source paths slugs are derived from.
// Repeated arguments are read once.
func readSources(root string, files []string) ([]mdpost.Source, error) {
	seen := make(map[string]bool, len(files))
	sources := make([]mdpost.Source, 0, len(files))
	for _, name := range files {
		if seen[name] {
			continue
		}
		seen[name] = true

		rel := filepath.FromSlash(name)
		if !filepath.IsLocal(rel) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSourcePath, name)
		}
		content, err := os.ReadFile(filepath.Join(root, rel)) // #nosec G304 -- user-provided source
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrReadSource, name, err)
		}
		sources = append(sources, mdpost.Source{Path: name, Content: content})
	}
	return sources, nil
}

// newLogger returns a text logger on stderr when verbose, nil otherwise
// (the processor then discards its logs).
func newLogger(verbose bool, env *Environment) *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// writeOutputs renders every routable post in the configured format, in
// source order. Durations cover rendering and writing. Per-document failures are carried in the results; only a
// feed write failure is returned as an error.
func writeOutputs(coll *mdpost.Collection, sources []mdpost.Source, cfg *config.Config, now func() time.Time) ([]buildResult, error) {
	w, err := newOutputWriter(cfg)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]*mdpost.Post, coll.Len())
	for _, p := range coll.Posts() {
		byPath[p.Document.Path] = p
	}

	results := make([]buildResult, len(sources))
	for i, src := range sources {
		results[i].SourcePath = src.Path
		if err := coll.Failure(src.Path); err != nil {
			results[i].Err = err
			continue
		}
		post := byPath[src.Path]
		if post.Document.RouteKey == feedKey && w.feed != nil {
			results[i].Err = fmt.Errorf("%w: route key %q collides with the feed page", ErrWriteOutput, feedKey)
			continue
		}
		start := now()
		results[i].OutputPath, results[i].Err = w.writePost(post)
		results[i].Duration = now().Sub(start)
	}

	if w.feed != nil {
		if err := w.feed(coll.Feed()); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// outputWriter renders and writes one format.
type outputWriter struct {
	dir    string
	ext    string
	render func(*mdpost.Post) ([]byte, error)
	feed   func([]*mdpost.Post) error // nil when the format has no listing
}

func newOutputWriter(cfg *config.Config) (*outputWriter, error) {
	w := &outputWriter{dir: cfg.Build.OutputDir}
	if w.dir == "" {
		w.dir = "."
	}

	switch cfg.Build.Format {
	case config.FormatText:
		table := mdpost.PlainTextTable()
		w.ext = "txt"
		w.render = func(p *mdpost.Post) ([]byte, error) {
			root, err := mdpost.Render(p.Artifact, table)
			if err != nil {
				return nil, err
			}
			return []byte(mdpost.TextContent(root) + "\n"), nil
		}

	case config.FormatMeta:
		w.ext = "json"
		w.render = func(p *mdpost.Post) ([]byte, error) {
			return marshalJSON(p.Artifact.Metadata())
		}
		w.feed = func(posts []*mdpost.Post) error {
			metas := make([]mdpost.Metadata, len(posts))
			for i, p := range posts {
				metas[i] = p.Artifact.Metadata()
			}
			data, err := marshalJSON(metas)
			if err != nil {
				return err
			}
			return w.write(feedKey, data)
		}

	default:
		table, err := mdpost.HTMLTable(mdpost.HTMLOptions{Theme: cfg.Code.Theme})
		if err != nil {
			return nil, err
		}
		opts := mdpost.PageOptions{Site: cfg.Site.Name, DateFormat: cfg.Dates.Format}
		w.ext = "html"
		w.render = func(p *mdpost.Post) ([]byte, error) {
			doc, err := mdpost.RenderPage(p.Artifact, table, opts)
			if err != nil {
				return nil, err
			}
			return encodeHTML(doc)
		}
		w.feed = func(posts []*mdpost.Post) error {
			doc, err := mdpost.RenderFeed(posts, "Posts", opts)
			if err != nil {
				return err
			}
			data, err := encodeHTML(doc)
			if err != nil {
				return err
			}
			return w.write(feedKey, data)
		}
	}
	return w, nil
}

// writePost renders a post and returns the written path.
func (w *outputWriter) writePost(p *mdpost.Post) (string, error) {
	data, err := w.render(p)
	if err != nil {
		return "", err
	}
	path, err := fileutil.OutputPath(w.dir, p.Document.RouteKey, w.ext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWriteOutput, path, err)
	}
	return path, nil
}

func (w *outputWriter) write(key string, data []byte) error {
	path, err := fileutil.OutputPath(w.dir, key, w.ext)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteOutput, path, err)
	}
	return nil
}

func encodeHTML(doc *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdpost.WriteHTML(&buf, doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// printResults reports each document and returns the failure count.
func printResults(results []buildResult, quiet, verbose bool, collection string, env *Environment) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.SourcePath, r.Err, hintFor(r.Err, collection))
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.SourcePath, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}
	return failed
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error, collection string) string {
	var fe *mdpost.FieldError
	switch {
	case errors.As(err, &fe) && fe.Field == "path":
		return hints.ForInvalidPath(collection)
	case errors.As(err, &fe) && errors.Is(err, mdpost.ErrMissingRequiredField):
		return hints.ForMissingField(fe.Field)
	case errors.Is(err, mdpost.ErrDirective):
		return hints.ForDirective()
	case errors.Is(err, mdpost.ErrUnterminatedMath):
		return hints.ForUnterminatedMath()
	case errors.Is(err, mdpost.ErrUnresolvedFootnote), errors.Is(err, mdpost.ErrDuplicateFootnote):
		return hints.ForUnresolvedFootnote()
	case errors.Is(err, mdpost.ErrUnknownTheme):
		return hints.ForThemeNotFound(mdpost.Themes())
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, ErrWriteOutput):
		return hints.ForOutputDirectory()
	}
	return ""
}
