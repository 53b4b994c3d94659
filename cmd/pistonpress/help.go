package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pistonpress <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  print      Print a template to PDF")
	fmt.Fprintln(w, "  serve      Serve print jobs over HTTP")
	fmt.Fprintln(w, "  doctor     Check the browser and directories")
	fmt.Fprintln(w, "  completion Generate shell completion script")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'pistonpress help <command>' for details on a specific command.")
}

// printPressFlags prints the flags shared by print and serve.
func printPressFlags(w io.Writer) {
	fmt.Fprintln(w, "Press:")
	fmt.Fprintln(w, "  -T, --templates <dir>     Template directory")
	fmt.Fprintln(w, "  -A, --assets <dir>        Asset directory, served under /assets/")
	fmt.Fprintln(w, "      --ext <s>             Template file extension (default .html)")
	fmt.Fprintln(w, "  -w, --concurrency <n>     Jobs printing at once (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-job timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --browser <path>      Chrome/Chromium binary")
	fmt.Fprintln(w, "      --no-sandbox          Disable the Chrome sandbox")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Job:")
	fmt.Fprintln(w, "      --wait <s>            ready, networkidle0 (default), networkidle2, load")
	fmt.Fprintln(w, "      --allow-failed        Print even if assets are missing")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: letter, a4, legal")
	fmt.Fprintln(w, "      --orientation <s>     Orientation: portrait, landscape")
	fmt.Fprintln(w, "      --margin <f>          Margin in inches (0-3)")
	fmt.Fprintln(w, "      --background          Print background graphics")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Debug logging and detailed timing")
}

// printPrintUsage prints usage for the print command.
func printPrintUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pistonpress print <template> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print a template to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  template    Template name, without extension")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory (- = stdout)")
	fmt.Fprintln(w, "  -f, --values <path>       Values file (YAML or JSON)")
	fmt.Fprintln(w, "      --values-json <json>  Inline values as a JSON object")
	fmt.Fprintln(w)
	printPressFlags(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pistonpress serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve print jobs over HTTP.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Endpoints:")
	fmt.Fprintln(w, "  POST /print      {\"templateName\": ..., \"values\": {...}} -> application/pdf")
	fmt.Fprintln(w, "  GET  /healthz    Queue depth and concurrency limit")
	fmt.Fprintln(w, "  GET  /metrics    Prometheus metrics")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "      --addr <host:port>    Listen address (default :8080)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Job flags set defaults for requests that omit pdf or options.")
	fmt.Fprintln(w)
	printPressFlags(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pistonpress doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check the browser installation and, when given, the directories.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Output JSON")
	fmt.Fprintln(w, "  -T, --templates <dir>     Template directory to check")
	fmt.Fprintln(w, "  -A, --assets <dir>        Asset directory to check")
	fmt.Fprintln(w, "      --ext <s>             Template file extension (default .html)")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "print":
		printPrintUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: pistonpress version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: pistonpress help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
