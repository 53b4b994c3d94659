// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-pistonpress/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ciVars are set by common CI providers.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI", "BUILDKITE"}

// InCI reports whether a CI provider variable is set.
func InCI() bool {
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect returns hints for a browser that failed to start.
// Sandbox advice only appears in containers and CI, where Chrome's sandbox
// usually cannot start.
func ForBrowserConnect() string {
	var hints []string

	if (InCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "pass --no-sandbox (or ROD_NO_SANDBOX=1) in containers and CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "pass --browser (or ROD_BROWSER_BIN) to use an installed Chrome")
	}
	hints = append(hints, "run 'pistonpress doctor' to check the setup")

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow templates.
func ForTimeout() string {
	return format("for slow templates, raise --timeout or use --wait load")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-pistonpress/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	// Find a user config path (contains .config/go-pistonpress) to suggest
	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-pistonpress") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForTemplateNotFound lists the templates that do exist.
func ForTemplateNotFound(available []string) string {
	if len(available) == 0 {
		return format("no templates found; check --templates")
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForAssetNotFound suggests where assets are looked up, and how to tolerate gaps.
func ForAssetNotFound() string {
	return format("assets resolve under --assets as /assets/<path>; pass --allow-failed to print anyway")
}

// ForPageScriptError points at the page console.
func ForPageScriptError() string {
	return format("rerun with --verbose to see the page console")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
