package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// buildFlags holds all flags for the build command.
type buildFlags struct {
	common     commonFlags
	output     string
	root       string
	workers    int
	timeout    string
	collection string
	theme      string
	format     string
	site       string
	dateFormat string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log pipeline progress to stderr")
}

// newBuildFlagSet registers the build flags on a fresh FlagSet.
func newBuildFlagSet(f *buildFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)

	// I/O flags
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.StringVar(&f.root, "root", ".", "directory source paths are relative to")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel documents (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-document transform timeout (e.g., 5s)")

	// Pipeline flags
	fs.StringVar(&f.collection, "collection", "", "collection prefix stripped from slugs")
	fs.StringVar(&f.theme, "theme", "", "default code highlighting theme")
	fs.StringVarP(&f.format, "format", "f", "", "output format: html, text, meta")
	fs.StringVar(&f.site, "site", "", "site name appended to page titles")
	fs.StringVar(&f.dateFormat, "date-format", "", "date display: preset or tokens")

	addCommonFlags(fs, &f.common)
	return fs
}

// parseBuildFlags parses build command flags and returns positional args.
func parseBuildFlags(args []string, stderr io.Writer) (*buildFlags, []string, error) {
	f := &buildFlags{}
	fs := newBuildFlagSet(f)
	fs.SetOutput(io.Discard) // parse errors are reported by the caller
	fs.Usage = func() { printBuildUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
