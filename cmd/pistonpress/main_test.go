package main

// Notes:
// - runMain: we test dispatch and exit codes with a fake press. Real printing
//   is covered by the library's integration tests.
// - loadDotenv: we test that a missing file is ignored and that existing
//   variables win over the file.
// - main() itself is not tested: it only wires os.Args, os.Exit and maxprocs.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pistonpress "github.com/alnah/go-pistonpress"
)

// ---------------------------------------------------------------------------
// TestRunMain_Dispatch - Commands without a press
// ---------------------------------------------------------------------------

func TestRunMain_Dispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "no command",
			args:       []string{"pistonpress"},
			wantCode:   ExitUsage,
			wantStderr: "Usage: pistonpress <command>",
		},
		{
			name:       "version",
			args:       []string{"pistonpress", "version"},
			wantCode:   ExitSuccess,
			wantStdout: "pistonpress dev",
		},
		{
			name:       "help",
			args:       []string{"pistonpress", "help"},
			wantCode:   ExitSuccess,
			wantStdout: "Commands:",
		},
		{
			name:       "help print",
			args:       []string{"pistonpress", "help", "print"},
			wantCode:   ExitSuccess,
			wantStdout: "Usage: pistonpress print <template>",
		},
		{
			name:       "help unknown",
			args:       []string{"pistonpress", "help", "nope"},
			wantCode:   ExitUsage,
			wantStderr: "Unknown command: nope",
		},
		{
			name:       "unknown command",
			args:       []string{"pistonpress", "convert"},
			wantCode:   ExitUsage,
			wantStderr: "Unknown command: convert",
		},
		{
			name:       "print without template",
			args:       []string{"pistonpress", "print"},
			wantCode:   ExitUsage,
			wantStderr: "no template specified",
		},
		{
			name:       "print with two templates",
			args:       []string{"pistonpress", "print", "a", "b"},
			wantCode:   ExitUsage,
			wantStderr: "too many arguments: b",
		},
		{
			name:     "print help",
			args:     []string{"pistonpress", "print", "--help"},
			wantCode: ExitSuccess,
		},
		{
			name:       "print unknown flag",
			args:       []string{"pistonpress", "print", "--bogus", "x"},
			wantCode:   ExitUsage,
			wantStderr: "invalid flags",
		},
		{
			name:       "serve with positional args",
			args:       []string{"pistonpress", "serve", "extra"},
			wantCode:   ExitUsage,
			wantStderr: "too many arguments",
		},
		{
			name:     "doctor unknown flag",
			args:     []string{"pistonpress", "doctor", "--bogus"},
			wantCode: ExitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			launcher := &launchRecorder{press: &fakePress{}}
			env, stdout, stderr := newTestEnv(launcher.launch)

			code := runMain(tt.args, env)

			if code != tt.wantCode {
				t.Errorf("runMain(%v) = %d, want %d\nstderr: %s", tt.args, code, tt.wantCode, stderr.String())
			}
			if tt.wantStdout != "" && !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want it to contain %q", stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.wantStderr)
			}
			if launcher.calls != 0 {
				t.Errorf("Launch called %d times, want 0", launcher.calls)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunMain_Print - Exit codes with a fake press
// ---------------------------------------------------------------------------

func TestRunMain_Print(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		printErr   error
		launchErr  error
		wantCode   int
		wantStderr string
	}{
		{
			name:     "success",
			wantCode: ExitSuccess,
		},
		{
			name:       "template not found lists available templates",
			printErr:   &pistonpress.Error{Kind: pistonpress.KindTemplateNotFound, Message: "/render"},
			wantCode:   ExitRender,
			wantStderr: "hint: available: hello, invoice",
		},
		{
			name:       "page script error",
			printErr:   &pistonpress.Error{Kind: pistonpress.KindPageScriptError, Message: "boom"},
			wantCode:   ExitRender,
			wantStderr: "--verbose",
		},
		{
			name:       "transport error",
			printErr:   &pistonpress.Error{Kind: pistonpress.KindTransportError, Message: "target crashed"},
			wantCode:   ExitBrowser,
			wantStderr: "TransportError",
		},
		{
			name:       "browser launch failure",
			launchErr:  fmt.Errorf("%w: no chrome", pistonpress.ErrBrowserConnect),
			wantCode:   ExitBrowser,
			wantStderr: "no chrome",
		},
		{
			name:      "directory not found",
			launchErr: fmt.Errorf("%w: templates %q", pistonpress.ErrDirectoryNotFound, "nope"),
			wantCode:  ExitIO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			templates, assets := newTemplateDirs(t, "hello", "invoice")
			output := filepath.Join(t.TempDir(), "out.pdf")

			press := &fakePress{err: tt.printErr}
			launcher := &launchRecorder{press: press, err: tt.launchErr}
			env, stdout, stderr := newTestEnv(launcher.launch)

			code := runMain([]string{"pistonpress", "print", "hello",
				"--templates", templates, "--assets", assets, "-o", output}, env)

			if code != tt.wantCode {
				t.Fatalf("runMain() = %d, want %d\nstderr: %s", code, tt.wantCode, stderr.String())
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.wantStderr)
			}
			if tt.launchErr == nil && press.closeCount() != 1 {
				t.Errorf("press closed %d times, want 1", press.closeCount())
			}

			data, readErr := os.ReadFile(output)
			if tt.wantCode != ExitSuccess {
				if readErr == nil {
					t.Error("output written despite failure")
				}
				return
			}
			if readErr != nil {
				t.Fatalf("reading output: %v", readErr)
			}
			if !bytes.Equal(data, fakePDF) {
				t.Errorf("output = %q, want %q", data, fakePDF)
			}
			if !strings.Contains(stdout.String(), "Created "+output) {
				t.Errorf("stdout = %q, want Created line", stdout.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestLoadDotenv - .env loading
// ---------------------------------------------------------------------------

func TestLoadDotenv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		if err := loadDotenv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("loadDotenv() = %v, want nil", err)
		}
	})

	t.Run("loads variables without overriding existing ones", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "PISTONPRESS_DOTENV_NEW=from-file\nPISTONPRESS_DOTENV_SET=from-file\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		t.Setenv("PISTONPRESS_DOTENV_SET", "from-env")
		t.Setenv("PISTONPRESS_DOTENV_NEW", "")
		os.Unsetenv("PISTONPRESS_DOTENV_NEW")

		if err := loadDotenv(path); err != nil {
			t.Fatalf("loadDotenv() = %v", err)
		}
		if got := os.Getenv("PISTONPRESS_DOTENV_NEW"); got != "from-file" {
			t.Errorf("PISTONPRESS_DOTENV_NEW = %q, want from-file", got)
		}
		if got := os.Getenv("PISTONPRESS_DOTENV_SET"); got != "from-env" {
			t.Errorf("PISTONPRESS_DOTENV_SET = %q, want from-env", got)
		}
	})
}
