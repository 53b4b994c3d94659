package main

import (
	"errors"
	"os"

	pistonpress "github.com/alnah/go-pistonpress"
	"github.com/alnah/go-pistonpress/internal/config"
	"github.com/alnah/go-pistonpress/internal/logging"
	"github.com/alnah/go-pistonpress/internal/yamlutil"
)

// Exit codes for pistonpress CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful print
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or request
	ExitIO      = 3 // File not found, permission denied, bad values file
	ExitBrowser = 4 // Browser or render endpoint errors
	ExitRender  = 5 // The template or page failed
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Render errors (exit 5)
	if errors.Is(err, pistonpress.ErrTemplateNotFound) ||
		errors.Is(err, pistonpress.ErrAssetNotFound) ||
		errors.Is(err, pistonpress.ErrRenderError) ||
		errors.Is(err, pistonpress.ErrPageScriptError) {
		return ExitRender
	}

	// Browser errors (exit 4)
	if errors.Is(err, pistonpress.ErrBrowserConnect) ||
		errors.Is(err, pistonpress.ErrServerStart) ||
		errors.Is(err, pistonpress.ErrTransportError) ||
		errors.Is(err, ErrListen) {
		return ExitBrowser
	}

	// Usage/config/validation errors (exit 2)
	// Checked before I/O: a missing config file is a usage error.
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, pistonpress.ErrInvalidInput) ||
		errors.Is(err, pistonpress.ErrMissingOption) ||
		errors.Is(err, pistonpress.ErrInvalidPageSize) ||
		errors.Is(err, pistonpress.ErrInvalidOrientation) ||
		errors.Is(err, pistonpress.ErrInvalidMargin) ||
		errors.Is(err, pistonpress.ErrInvalidWaitSignal) ||
		errors.Is(err, logging.ErrUnknownFormat) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, ErrNoTemplate) ||
		errors.Is(err, ErrTooManyArgs) ||
		errors.Is(err, ErrValuesConflict) ||
		errors.Is(err, ErrInvalidFlags) ||
		errors.Is(err, ErrUnsupportedShell) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, pistonpress.ErrDirectoryNotFound) ||
		errors.Is(err, yamlutil.ErrNotMapping) ||
		errors.Is(err, ErrReadValues) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrOutputIsTerminal) {
		return ExitIO
	}

	return ExitGeneral
}
