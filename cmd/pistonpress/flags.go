package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrInvalidFlags wraps flag parsing failures other than --help.
var ErrInvalidFlags = errors.New("invalid flags")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pressFlags configure the launched press.
type pressFlags struct {
	templates   string
	assets      string
	extension   string
	concurrency int
	timeout     string
	browserBin  string
	noSandbox   bool
}

// pageFlags holds page layout flags.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
	background  bool
}

// jobFlags set the defaults applied to every print job.
type jobFlags struct {
	wait        string
	allowFailed bool
	page        pageFlags
}

// printFlags holds all flags for the print command.
type printFlags struct {
	common     commonFlags
	press      pressFlags
	job        jobFlags
	output     string
	values     string
	valuesJSON string
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common commonFlags
	press  pressFlags
	job    jobFlags
	addr   string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging and detailed timing")
}

// addPressFlags adds press flags to a FlagSet.
func addPressFlags(fs *flag.FlagSet, f *pressFlags) {
	fs.StringVarP(&f.templates, "templates", "T", "", "template directory")
	fs.StringVarP(&f.assets, "assets", "A", "", "asset directory, served under /assets/")
	fs.StringVar(&f.extension, "ext", "", "template file extension (default .html)")
	fs.IntVarP(&f.concurrency, "concurrency", "w", 0, "jobs printing at once (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-job timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.browserBin, "browser", "", "Chrome/Chromium binary")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox")
}

// addJobFlags adds completion and page flags to a FlagSet.
func addJobFlags(fs *flag.FlagSet, f *jobFlags) {
	fs.StringVar(&f.wait, "wait", "", "wait signal: ready, networkidle0, networkidle2, load")
	fs.BoolVar(&f.allowFailed, "allow-failed", false, "print even if assets are missing")
	fs.StringVarP(&f.page.size, "page-size", "p", "", "page size: letter, a4, legal")
	fs.StringVar(&f.page.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.page.margin, "margin", 0, "page margin in inches (0-3)")
	fs.BoolVar(&f.page.background, "background", false, "print background graphics")
}

// newPrintFlagSet registers the print command flags.
func newPrintFlagSet(stderr io.Writer) (*flag.FlagSet, *printFlags) {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &printFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output file or directory (- = stdout)")
	fs.StringVarP(&f.values, "values", "f", "", "values file (YAML or JSON)")
	fs.StringVar(&f.valuesJSON, "values-json", "", "inline values as a JSON object")

	addCommonFlags(fs, &f.common)
	addPressFlags(fs, &f.press)
	addJobFlags(fs, &f.job)

	fs.Usage = func() { printPrintUsage(stderr) }
	return fs, f
}

// newServeFlagSet registers the serve command flags.
func newServeFlagSet(stderr io.Writer) (*flag.FlagSet, *serveFlags) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &serveFlags{}

	fs.StringVar(&f.addr, "addr", "", "listen address (default :8080)")

	addCommonFlags(fs, &f.common)
	addPressFlags(fs, &f.press)
	addJobFlags(fs, &f.job)

	fs.Usage = func() { printServeUsage(stderr) }
	return fs, f
}

// parsePrintFlags parses print command flags and returns positional args.
func parsePrintFlags(args []string, stderr io.Writer) (*printFlags, []string, error) {
	fs, f := newPrintFlagSet(stderr)
	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, []string, error) {
	fs, f := newServeFlagSet(stderr)
	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parse runs fs.Parse, keeping flag.ErrHelp recognizable.
func parse(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidFlags, err)
}
