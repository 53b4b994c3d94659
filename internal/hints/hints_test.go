package hints

// Notes:
// - ForBrowserConnect tests cannot use t.Parallel() because they:
//   1. Use t.Setenv() which modifies process environment
//   2. Modify the package-level IsInContainer variable
// These are acceptable gaps: we test observable behavior through environment manipulation.

import (
	"strings"
	"testing"
)

// clearCI unsets every CI variable for the duration of the test.
func clearCI(t *testing.T) {
	t.Helper()
	for _, v := range ciVars {
		t.Setenv(v, "")
	}
}

func TestInCI(t *testing.T) {
	clearCI(t)
	if InCI() {
		t.Fatal("InCI() = true with no CI variables")
	}

	t.Setenv("GITLAB_CI", "true")
	if !InCI() {
		t.Error("InCI() = false with GITLAB_CI set")
	}
}

func TestForBrowserConnect(t *testing.T) {
	// Not parallel: uses t.Setenv and swaps IsInContainer (see package notes)
	tests := []struct {
		name        string
		ci          bool
		container   bool
		noSandbox   string
		browserBin  string
		wantSandbox bool
		wantBrowser bool
	}{
		{name: "in CI", ci: true, wantSandbox: true, wantBrowser: true},
		{name: "in container", container: true, wantSandbox: true, wantBrowser: true},
		{name: "sandbox already disabled", ci: true, container: true, noSandbox: "1", wantBrowser: true},
		{name: "browser already set", browserBin: "/usr/bin/chromium"},
		{name: "everything configured", ci: true, noSandbox: "1", browserBin: "/usr/bin/chromium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := IsInContainer
			defer func() { IsInContainer = orig }()
			IsInContainer = func() bool { return tt.container }

			clearCI(t)
			if tt.ci {
				t.Setenv("CI", "true")
			}
			t.Setenv("ROD_NO_SANDBOX", tt.noSandbox)
			t.Setenv("ROD_BROWSER_BIN", tt.browserBin)

			hint := ForBrowserConnect()

			if !strings.HasPrefix(hint, "\n  hint: ") {
				t.Errorf("hint = %q, want hint prefix", hint)
			}
			if got := strings.Contains(hint, "--no-sandbox"); got != tt.wantSandbox {
				t.Errorf("sandbox advice = %v, want %v (%q)", got, tt.wantSandbox, hint)
			}
			if got := strings.Contains(hint, "--browser"); got != tt.wantBrowser {
				t.Errorf("browser advice = %v, want %v (%q)", got, tt.wantBrowser, hint)
			}
			if !strings.Contains(hint, "pistonpress doctor") {
				t.Errorf("hint = %q, want doctor suggestion", hint)
			}
		})
	}
}

func TestForTimeout(t *testing.T) {
	hint := ForTimeout()

	if !strings.Contains(hint, "hint:") {
		t.Error("expected hint prefix")
	}
	if !strings.Contains(hint, "--timeout") {
		t.Error("expected --timeout flag mention")
	}
}

func TestForConfigNotFound(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		wantHint bool
		contains string
	}{
		{
			name:     "empty paths",
			paths:    []string{},
			wantHint: true,
			contains: "--config",
		},
		{
			name:     "with paths",
			paths:    []string{"./foo.yaml", "~/.config/go-pistonpress/foo.yaml"},
			wantHint: true,
			contains: "go-pistonpress/foo.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := ForConfigNotFound(tt.paths)

			if tt.wantHint && !strings.Contains(hint, "hint:") {
				t.Error("expected hint prefix")
			}
			if !strings.Contains(hint, tt.contains) {
				t.Errorf("expected hint to contain %q, got %q", tt.contains, hint)
			}
		})
	}
}

func TestForOutputDirectory(t *testing.T) {
	hint := ForOutputDirectory()

	if !strings.Contains(hint, "hint:") {
		t.Error("expected hint prefix")
	}
	if !strings.Contains(hint, "parent directory") {
		t.Error("expected parent directory mention")
	}
}

func TestForTemplateNotFound(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		contains  string
	}{
		{
			name:      "no templates",
			available: nil,
			contains:  "--templates",
		},
		{
			name:      "with templates",
			available: []string{"hello", "invoice"},
			contains:  "available: hello, invoice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := ForTemplateNotFound(tt.available)

			if !strings.Contains(hint, tt.contains) {
				t.Errorf("expected hint to contain %q, got %q", tt.contains, hint)
			}
		})
	}
}

func TestForAssetNotFound(t *testing.T) {
	hint := ForAssetNotFound()

	if !strings.Contains(hint, "--assets") {
		t.Error("expected --assets mention")
	}
	if !strings.Contains(hint, "--allow-failed") {
		t.Error("expected --allow-failed mention")
	}
}

func TestFormat_Consistency(t *testing.T) {
	// All hints should start with newline, spaces, and "hint:"
	hints := []string{
		ForTimeout(),
		ForOutputDirectory(),
		ForTemplateNotFound(nil),
		ForAssetNotFound(),
		ForPageScriptError(),
	}

	for _, h := range hints {
		if !strings.HasPrefix(h, "\n  hint: ") {
			t.Errorf("hint format inconsistent: %q", h)
		}
	}
}
