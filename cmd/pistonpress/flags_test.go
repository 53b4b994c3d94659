package main

import (
	"bytes"
	"errors"
	"testing"

	flag "github.com/spf13/pflag"
)

// ---------------------------------------------------------------------------
// TestParsePrintFlags - Print command flags
// ---------------------------------------------------------------------------

func TestParsePrintFlags(t *testing.T) {
	t.Parallel()

	t.Run("long and short forms", func(t *testing.T) {
		t.Parallel()

		f, positional, err := parsePrintFlags([]string{
			"invoice",
			"-o", "out.pdf", "-f", "values.yaml",
			"-c", "work", "-q",
			"-T", "tpl", "-A", "static", "--ext", ".tmpl",
			"-w", "3", "-t", "1m", "--browser", "/usr/bin/chromium", "--no-sandbox",
			"--wait", "load", "--allow-failed",
			"-p", "legal", "--orientation", "landscape", "--margin", "1.25", "--background",
		}, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("parsePrintFlags() error = %v", err)
		}

		if len(positional) != 1 || positional[0] != "invoice" {
			t.Errorf("positional = %v, want [invoice]", positional)
		}
		if f.output != "out.pdf" || f.values != "values.yaml" || f.valuesJSON != "" {
			t.Errorf("io flags = %q %q %q", f.output, f.values, f.valuesJSON)
		}
		if f.common != (commonFlags{config: "work", quiet: true}) {
			t.Errorf("common = %+v", f.common)
		}
		wantPress := pressFlags{
			templates: "tpl", assets: "static", extension: ".tmpl",
			concurrency: 3, timeout: "1m", browserBin: "/usr/bin/chromium", noSandbox: true,
		}
		if f.press != wantPress {
			t.Errorf("press = %+v, want %+v", f.press, wantPress)
		}
		wantJob := jobFlags{
			wait: "load", allowFailed: true,
			page: pageFlags{size: "legal", orientation: "landscape", margin: 1.25, background: true},
		}
		if f.job != wantJob {
			t.Errorf("job = %+v, want %+v", f.job, wantJob)
		}
	})

	t.Run("flags after the template", func(t *testing.T) {
		t.Parallel()

		f, positional, err := parsePrintFlags([]string{"--values-json", `{"a":1}`, "letter", "-v"}, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("parsePrintFlags() error = %v", err)
		}
		if len(positional) != 1 || positional[0] != "letter" {
			t.Errorf("positional = %v", positional)
		}
		if !f.common.verbose || f.valuesJSON != `{"a":1}` {
			t.Errorf("flags = %+v", f)
		}
	})

	t.Run("help is not an invalid flag", func(t *testing.T) {
		t.Parallel()

		var stderr bytes.Buffer
		_, _, err := parsePrintFlags([]string{"--help"}, &stderr)
		if !errors.Is(err, flag.ErrHelp) {
			t.Fatalf("error = %v, want ErrHelp", err)
		}
		if errors.Is(err, ErrInvalidFlags) {
			t.Error("help must not wrap ErrInvalidFlags")
		}
		if !bytes.Contains(stderr.Bytes(), []byte("pistonpress print <template>")) {
			t.Errorf("stderr = %q, want print usage", stderr.String())
		}
	})

	t.Run("invalid flags", func(t *testing.T) {
		t.Parallel()

		for _, args := range [][]string{
			{"--bogus"},
			{"-w", "many"},
			{"--margin", "wide"},
			{"--output"},
		} {
			_, _, err := parsePrintFlags(args, &bytes.Buffer{})
			if !errors.Is(err, ErrInvalidFlags) {
				t.Errorf("parsePrintFlags(%v) error = %v, want ErrInvalidFlags", args, err)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// TestParseServeFlags - Serve command flags
// ---------------------------------------------------------------------------

func TestParseServeFlags(t *testing.T) {
	t.Parallel()

	f, positional, err := parseServeFlags([]string{"--addr", "127.0.0.1:9000", "-T", "tpl", "--wait", "ready"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseServeFlags() error = %v", err)
	}
	if len(positional) != 0 {
		t.Errorf("positional = %v, want none", positional)
	}
	if f.addr != "127.0.0.1:9000" || f.press.templates != "tpl" || f.job.wait != "ready" {
		t.Errorf("flags = %+v", f)
	}

	if _, _, err := parseServeFlags([]string{"--output", "x.pdf"}, &bytes.Buffer{}); !errors.Is(err, ErrInvalidFlags) {
		t.Errorf("serve --output error = %v, want ErrInvalidFlags", err)
	}
}
