package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pistonpress "github.com/alnah/go-pistonpress"
	"github.com/alnah/go-pistonpress/internal/config"
	"github.com/alnah/go-pistonpress/internal/fileutil"
	"github.com/alnah/go-pistonpress/internal/hints"
	"github.com/alnah/go-pistonpress/internal/templatestore"
	"github.com/alnah/go-pistonpress/internal/yamlutil"
)

// Sentinel errors for CLI operations.
var (
	ErrNoTemplate       = errors.New("no template specified")
	ErrTooManyArgs      = errors.New("too many arguments")
	ErrValuesConflict   = errors.New("--values and --values-json are mutually exclusive")
	ErrReadValues       = errors.New("failed to read values")
	ErrWritePDF         = errors.New("failed to write PDF file")
	ErrOutputIsTerminal = errors.New("refusing to write PDF to a terminal")
)

// filePermissions is rw-r--r--: owner read+write, others read.
const filePermissions = 0o644

// stdoutOutput selects standard output as the PDF destination.
const stdoutOutput = "-"

// runPrint prints one template to a PDF file.
func runPrint(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parsePrintFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	switch {
	case len(positional) == 0:
		return ErrNoTemplate
	case len(positional) > 1:
		return fmt.Errorf("%w: %s", ErrTooManyArgs, strings.Join(positional[1:], " "))
	}
	name := positional[0]

	cfg, timeout, err := resolveConfig(flags.common, flags.press, flags.job, loadEnvConfig())
	if err != nil {
		return err
	}
	pdfOpts, printOpts, err := jobDefaults(cfg)
	if err != nil {
		return err
	}
	values, err := readValues(flags.values, flags.valuesJSON)
	if err != nil {
		return err
	}
	output := resolveOutputPath(flags.output, name)

	logger, err := newLogger(env.Stderr, cfg.Log, flags.common)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sw := pistonpress.NewStopwatch()
	press, err := env.Launch(ctx, pistonpress.Directories{Templates: cfg.Templates, Assets: cfg.Assets},
		launchOptions(cfg, timeout, logger, nil)...)
	if err != nil {
		return withHint(err, cfg)
	}
	launched := sw.Mark()

	pdf, printErr := press.Print(ctx, pistonpress.Request{
		TemplateName: name,
		Values:       values,
		PDF:          pdfOpts,
		Options:      printOpts,
	})
	printed := sw.Mark()

	var closeErr error
	if err := press.Close(); err != nil {
		closeErr = fmt.Errorf("closing press: %w", err)
	}
	if printErr != nil {
		return errors.Join(withHint(printErr, cfg), closeErr)
	}

	if err := writePDF(output, pdf, env.Stdout); err != nil {
		return errors.Join(err, closeErr)
	}

	if output != stdoutOutput && !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "Created %s (%s)\n", output, formatSize(len(pdf)))
		if flags.common.verbose {
			fmt.Fprintf(env.Stdout, "  launch %s, print %s\n", launched, printed)
		}
	}
	return closeErr
}

// readValues loads template values from a file or an inline JSON object.
// Returns nil when neither is given.
func readValues(file, inline string) (pistonpress.Values, error) {
	switch {
	case file != "" && inline != "":
		return nil, ErrValuesConflict
	case file != "":
		values, err := yamlutil.ReadValuesFile(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadValues, err)
		}
		return values, nil
	case inline != "":
		values, err := yamlutil.UnmarshalValues([]byte(inline))
		if err != nil {
			return nil, fmt.Errorf("%w: --values-json: %w", ErrReadValues, err)
		}
		return values, nil
	default:
		return nil, nil
	}
}

// resolveOutputPath returns where the PDF goes.
// An existing directory receives <template>.pdf; empty means the working directory.
func resolveOutputPath(flagOutput, templateName string) string {
	filename := templateName + ".pdf"
	switch {
	case flagOutput == "":
		return filename
	case flagOutput == stdoutOutput:
		return stdoutOutput
	case fileutil.DirExists(flagOutput):
		return filepath.Join(flagOutput, filename)
	default:
		return flagOutput
	}
}

// writePDF writes pdf atomically to path, or to stdout for "-".
func writePDF(path string, pdf []byte, stdout io.Writer) error {
	if path == stdoutOutput {
		if f, ok := stdout.(*os.File); ok && isTerminal(f) {
			return ErrOutputIsTerminal
		}
		if _, err := stdout.Write(pdf); err != nil {
			return fmt.Errorf("%w: stdout: %w", ErrWritePDF, err)
		}
		return nil
	}
	if err := fileutil.WriteFileAtomic(path, pdf, filePermissions); err != nil {
		return fmt.Errorf("%w: %s: %w%s", ErrWritePDF, path, err, hints.ForOutputDirectory())
	}
	return nil
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// withHint appends an actionable hint to errors users can fix.
func withHint(err error, cfg *config.Config) error {
	var hint string
	switch {
	case errors.Is(err, pistonpress.ErrTemplateNotFound):
		hint = hints.ForTemplateNotFound(listTemplates(cfg.Templates, cfg.TemplateExtension))
	case errors.Is(err, pistonpress.ErrAssetNotFound):
		hint = hints.ForAssetNotFound()
	case errors.Is(err, pistonpress.ErrPageScriptError):
		hint = hints.ForPageScriptError()
	case errors.Is(err, pistonpress.ErrBrowserConnect):
		hint = hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		hint = hints.ForTimeout()
	}
	if hint == "" {
		return err
	}
	return fmt.Errorf("%w%s", err, hint)
}

// listTemplates returns the template names found in dir, sorted.
// Returns nil when dir cannot be read.
func listTemplates(dir, ext string) []string {
	names, err := templatestore.New(dir, ext).List()
	if err != nil {
		return nil
	}
	return names
}

// formatSize renders a byte count for humans.
func formatSize(n int) string {
	const kb = 1024
	switch {
	case n < kb:
		return fmt.Sprintf("%d B", n)
	case n < kb*kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(kb*kb))
	}
}
