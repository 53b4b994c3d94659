package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-pistonpress/internal/fileutil"
	"github.com/alnah/go-pistonpress/internal/hints"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// Report line levels.
const (
	levelOK    = "OK"
	levelWarn  = "WARN"
	levelError = "ERROR"
)

// doctorReport is the outcome of every doctor check. It is also the --json output.
type doctorReport struct {
	Status    string        `json:"status"`
	Browser   browserReport `json:"chrome"`
	Host      hostReport    `json:"environment"`
	Templates dirReport     `json:"templates"`
	Assets    dirReport     `json:"assets"`
	Warnings  []string      `json:"warnings,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

type browserReport struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type hostReport struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

type dirReport struct {
	Path      string   `json:"path,omitempty"`
	Exists    bool     `json:"exists"`
	Templates []string `json:"templates,omitempty"`
}

func (r *doctorReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *doctorReport) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

type doctorFlags struct {
	json      bool
	templates string
	assets    string
	extension string
}

// runDoctorCmd checks the printing setup. It exits 1 only when a check
// found an error; warnings still exit 0.
func runDoctorCmd(args []string, env *Environment) int {
	fs, f := newDoctorFlagSet(env.Stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsage
	}

	report := runDoctor(f)

	if f.json {
		out := json.NewEncoder(env.Stdout)
		out.SetIndent("", "  ")
		if err := out.Encode(report); err != nil {
			return ExitIO
		}
	} else {
		printDoctorResult(env.Stdout, report)
	}

	if report.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// newDoctorFlagSet registers the doctor flags. Directories default to the environment.
func newDoctorFlagSet(stderr io.Writer) (*flag.FlagSet, *doctorFlags) {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &doctorFlags{}
	fs.BoolVar(&f.json, "json", false, "output JSON")
	fs.StringVarP(&f.templates, "templates", "T", os.Getenv(envPrefix+"TEMPLATES"), "template directory to check")
	fs.StringVarP(&f.assets, "assets", "A", os.Getenv(envPrefix+"ASSETS"), "asset directory to check")
	fs.StringVar(&f.extension, "ext", ".html", "template file extension")
	fs.Usage = func() { printDoctorUsage(stderr) }
	return fs, f
}

func runDoctor(f *doctorFlags) *doctorReport {
	r := &doctorReport{
		Host: hostReport{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkBrowser(r)
	checkHost(r)
	checkDirectories(r, f)
	r.Status = finalStatus(r)
	return r
}

func finalStatus(r *doctorReport) string {
	switch {
	case len(r.Errors) > 0:
		return statusErrors
	case len(r.Warnings) > 0:
		return statusWarnings
	default:
		return statusReady
	}
}

// checkBrowser locates the browser binary the press would launch.
// ROD_BROWSER_BIN wins over the launcher's lookup.
func checkBrowser(r *doctorReport) {
	bin := r.Host.BrowserBin
	if bin == "" {
		var ok bool
		if bin, ok = launcher.LookPath(); !ok {
			r.warn("no local Chrome/Chromium; a managed Chromium is downloaded on the first print (or set ROD_BROWSER_BIN)")
			return
		}
	}

	if _, err := os.Stat(bin); err != nil {
		r.fail("browser binary %s: %v", bin, err)
		return
	}

	r.Browser = browserReport{
		Found:   true,
		Path:    bin,
		Sandbox: r.Host.NoSandbox != "1",
	}

	version, err := exec.Command(bin, "--version").Output() // #nosec G204 -- path from LookPath or ROD_BROWSER_BIN
	if err != nil {
		r.warn("%s --version failed: %v", bin, err)
		return
	}
	r.Browser.Version = strings.TrimSpace(string(version))
}

func checkHost(r *doctorReport) {
	r.Host.Container, r.Host.ContainerHint = isContainer()
	r.Host.CI = hints.InCI()

	if r.Host.NoSandbox == "1" {
		return
	}
	if r.Host.Container || r.Host.CI {
		r.warn("sandboxed Chrome usually fails in containers and CI; pass --no-sandbox or set ROD_NO_SANDBOX=1")
	}
}

// isContainer reports whether the process runs in a container, and the
// signal that gave it away.
func isContainer() (bool, string) {
	if os.Getenv(envPrefix+"CONTAINER") == "1" {
		return true, envPrefix + "CONTAINER=1"
	}
	if fileutil.FileExists("/.dockerenv") {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkDirectories verifies the templates and assets directories, when given.
func checkDirectories(r *doctorReport, f *doctorFlags) {
	if f.templates != "" {
		r.Templates = dirReport{Path: f.templates, Exists: fileutil.DirExists(f.templates)}
		if !r.Templates.Exists {
			r.fail("Templates directory not found: %s", f.templates)
		} else if r.Templates.Templates = listTemplates(f.templates, f.extension); len(r.Templates.Templates) == 0 {
			r.warn("No *%s templates in %s", f.extension, f.templates)
		}
	}

	if f.assets != "" {
		r.Assets = dirReport{Path: f.assets, Exists: fileutil.DirExists(f.assets)}
		if !r.Assets.Exists {
			r.fail("Assets directory not found: %s", f.assets)
		}
	}
}

type reportLine struct {
	level string
	text  string
}

type reportSection struct {
	title string
	lines []reportLine
}

// sections lays the report out for humans. Empty sections are dropped.
func (r *doctorReport) sections() []reportSection {
	browser := reportSection{title: "Chrome/Chromium"}
	if r.Browser.Found {
		browser.lines = append(browser.lines, reportLine{levelOK, "Found at " + r.Browser.Path})
		if r.Browser.Version != "" {
			browser.lines = append(browser.lines, reportLine{levelOK, "Version: " + r.Browser.Version})
		}
		sandbox := "Sandbox: enabled"
		if !r.Browser.Sandbox {
			sandbox = "Sandbox: disabled (ROD_NO_SANDBOX=1)"
		}
		browser.lines = append(browser.lines, reportLine{levelOK, sandbox})
	} else {
		browser.lines = append(browser.lines, reportLine{levelWarn, "Not found locally"})
	}

	host := reportSection{title: "Environment"}
	host.lines = append(host.lines, reportLine{levelOK, "Platform: " + r.Host.OS + "/" + r.Host.Arch})
	if r.Host.Container {
		host.lines = append(host.lines, reportLine{levelOK, "Container: detected (" + r.Host.ContainerHint + ")"})
	}
	if r.Host.CI {
		host.lines = append(host.lines, reportLine{levelOK, "CI: detected"})
	}

	dirs := reportSection{title: "Directories"}
	if t := r.Templates; t.Path != "" {
		if t.Exists {
			dirs.lines = append(dirs.lines, reportLine{levelOK, fmt.Sprintf("Templates: %s (%d found)", t.Path, len(t.Templates))})
		} else {
			dirs.lines = append(dirs.lines, reportLine{levelError, "Templates: " + t.Path + " not found"})
		}
	}
	if a := r.Assets; a.Path != "" {
		if a.Exists {
			dirs.lines = append(dirs.lines, reportLine{levelOK, "Assets: " + a.Path})
		} else {
			dirs.lines = append(dirs.lines, reportLine{levelError, "Assets: " + a.Path + " not found"})
		}
	}

	warnings := reportSection{title: "Warnings:"}
	for _, msg := range r.Warnings {
		warnings.lines = append(warnings.lines, reportLine{levelWarn, msg})
	}
	problems := reportSection{title: "Errors:"}
	for _, msg := range r.Errors {
		problems.lines = append(problems.lines, reportLine{levelError, msg})
	}

	var out []reportSection
	for _, s := range []reportSection{browser, host, dirs, warnings, problems} {
		if len(s.lines) > 0 {
			out = append(out, s)
		}
	}
	return out
}

var statusLines = map[string]string{
	statusReady:    "Ready to print",
	statusWarnings: "Ready with warnings",
	statusErrors:   "Not ready (see errors above)",
}

func printDoctorResult(w io.Writer, r *doctorReport) {
	fmt.Fprint(w, "pistonpress doctor\n\n")
	for _, s := range r.sections() {
		fmt.Fprintln(w, s.title)
		for _, l := range s.lines {
			fmt.Fprintf(w, "  [%s] %s\n", l.level, l.text)
		}
		fmt.Fprintln(w)
	}
	if line, ok := statusLines[r.Status]; ok {
		fmt.Fprintf(w, "Status: %s\n", line)
	}
}
