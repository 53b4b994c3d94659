package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash       Shell = "bash"
	ShellZsh        Shell = "zsh"
	ShellFish       Shell = "fish"
	ShellPowerShell Shell = "powershell"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType is how a flag's value is completed.
type flagType int

const (
	flagString flagType = iota
	flagBool
	flagNumber
	flagEnum
	flagFile
	flagDir
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long     string
	Short    string
	Type     flagType
	Desc     string
	Values   []string // flagEnum
	FileGlob string   // flagFile, comma-separated
}

// commandDef describes a command for completion.
type commandDef struct {
	Name  string
	Desc  string
	Flags []flagDef
}

// completionMeta holds value hints the FlagSet does not carry.
type completionMeta struct {
	Values   []string
	FileGlob string
	IsDir    bool
}

// flagCompletionMeta maps flag names to their completion hints.
// Names, shorthands and descriptions come from the FlagSets.
var flagCompletionMeta = map[string]completionMeta{
	"wait":        {Values: []string{"ready", "networkidle0", "networkidle2", "load"}},
	"page-size":   {Values: []string{"letter", "a4", "legal"}},
	"orientation": {Values: []string{"portrait", "landscape"}},

	"config":  {FileGlob: "*.yaml,*.yml"},
	"values":  {FileGlob: "*.yaml,*.yml,*.json"},
	"output":  {FileGlob: "*.pdf"},
	"browser": {FileGlob: "*"},

	"templates": {IsDir: true},
	"assets":    {IsDir: true},
}

// extractFlags converts a FlagSet into completion definitions.
func extractFlags(fs *flag.FlagSet) []flagDef {
	var flags []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{Long: f.Name, Short: f.Shorthand, Desc: f.Usage}

		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int", "int64", "uint", "uint64", "float32", "float64":
			fd.Type = flagNumber
		default:
			fd.Type = flagString
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type = flagEnum
				fd.Values = meta.Values
			case meta.FileGlob != "":
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}
		flags = append(flags, fd)
	})
	return flags
}

// getCommands returns the command registry, flags read from the real FlagSets.
func getCommands() []commandDef {
	printFS, _ := newPrintFlagSet(io.Discard)
	serveFS, _ := newServeFlagSet(io.Discard)
	doctorFS, _ := newDoctorFlagSet(io.Discard)

	return []commandDef{
		{Name: "print", Desc: "Print a template to PDF", Flags: extractFlags(printFS)},
		{Name: "serve", Desc: "Serve print jobs over HTTP", Flags: extractFlags(serveFS)},
		{Name: "doctor", Desc: "Check the browser and directories", Flags: extractFlags(doctorFS)},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command"},
		{Name: "completion", Desc: "Generate shell completion script"},
	}
}

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	switch shell {
	case ShellBash:
		return generateBash(w)
	case ShellZsh:
		return generateZsh(w)
	case ShellFish:
		return generateFish(w)
	case ShellPowerShell:
		return generatePowerShell(w)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish, powershell)", ErrUnsupportedShell, shell)
	}
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

func commandNames(cmds []commandDef) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return names
}

// flagWords lists "--long" and "-s" forms.
func flagWords(flags []flagDef) []string {
	var words []string
	for _, f := range flags {
		words = append(words, "--"+f.Long)
		if f.Short != "" {
			words = append(words, "-"+f.Short)
		}
	}
	return words
}

// bashPattern turns "*.yaml,*.yml" into "*.@(yaml|yml)" for compgen -X.
func bashPattern(glob string) string {
	var exts []string
	for _, g := range strings.Split(glob, ",") {
		exts = append(exts, strings.TrimPrefix(g, "*."))
	}
	return "*.@(" + strings.Join(exts, "|") + ")"
}

func generateBash(w io.Writer) error {
	cmds := getCommands()
	var b strings.Builder

	b.WriteString("# bash completion for pistonpress\n")
	b.WriteString("_pistonpress() {\n")
	b.WriteString("    local cur prev cmd\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	b.WriteString("    cmd=\"${COMP_WORDS[1]}\"\n\n")
	b.WriteString("    if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=( $(compgen -W %q -- \"${cur}\") )\n", strings.Join(commandNames(cmds), " "))
	b.WriteString("        return\n    fi\n\n")

	// Flag values. The same flag means the same thing in every command.
	seen := map[string]bool{}
	b.WriteString("    case \"${prev}\" in\n")
	for _, c := range cmds {
		for _, f := range c.Flags {
			if seen[f.Long] || (f.Type != flagEnum && f.Type != flagFile && f.Type != flagDir) {
				continue
			}
			seen[f.Long] = true
			pattern := "--" + f.Long
			if f.Short != "" {
				pattern += "|-" + f.Short
			}
			fmt.Fprintf(&b, "        %s)\n", pattern)
			switch f.Type {
			case flagEnum:
				fmt.Fprintf(&b, "            COMPREPLY=( $(compgen -W %q -- \"${cur}\") )\n", strings.Join(f.Values, " "))
			case flagDir:
				b.WriteString("            COMPREPLY=( $(compgen -d -- \"${cur}\") )\n")
			case flagFile:
				if f.FileGlob == "*" {
					b.WriteString("            COMPREPLY=( $(compgen -f -- \"${cur}\") )\n")
				} else {
					fmt.Fprintf(&b, "            COMPREPLY=( $(compgen -f -X '!%s' -- \"${cur}\") $(compgen -d -- \"${cur}\") )\n", bashPattern(f.FileGlob))
				}
			}
			b.WriteString("            return\n            ;;\n")
		}
	}
	b.WriteString("    esac\n\n")

	b.WriteString("    case \"${cmd}\" in\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        %s)\n", c.Name)
		switch {
		case c.Name == "help":
			fmt.Fprintf(&b, "            COMPREPLY=( $(compgen -W %q -- \"${cur}\") )\n", strings.Join(commandNames(cmds), " "))
		case c.Name == "completion":
			b.WriteString("            COMPREPLY=( $(compgen -W \"bash zsh fish powershell\" -- \"${cur}\") )\n")
		case len(c.Flags) > 0:
			fmt.Fprintf(&b, "            COMPREPLY=( $(compgen -W %q -- \"${cur}\") )\n", strings.Join(flagWords(c.Flags), " "))
		}
		b.WriteString("            ;;\n")
	}
	b.WriteString("    esac\n")
	b.WriteString("}\n")
	b.WriteString("complete -F _pistonpress pistonpress\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// zshEscape escapes characters with meaning inside _arguments specs.
func zshEscape(s string) string {
	r := strings.NewReplacer("[", "\\[", "]", "\\]", "'", "'\\''")
	return r.Replace(s)
}

// zshAction returns the _arguments action for a flag value.
func zshAction(f flagDef) string {
	switch f.Type {
	case flagBool:
		return ""
	case flagEnum:
		return ":" + f.Long + ":(" + strings.Join(f.Values, " ") + ")"
	case flagDir:
		return ":directory:_files -/"
	case flagFile:
		if f.FileGlob == "*" {
			return ":file:_files"
		}
		globs := strings.Split(f.FileGlob, ",")
		return ":file:_files -g \"" + strings.Join(globs, " ") + "\""
	default:
		return ":" + f.Long + ":"
	}
}

func generateZsh(w io.Writer) error {
	cmds := getCommands()
	var b strings.Builder

	b.WriteString("#compdef pistonpress\n\n")
	b.WriteString("_pistonpress() {\n")
	b.WriteString("    local -a commands\n")
	b.WriteString("    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	b.WriteString("    )\n\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n")
	b.WriteString("        _describe 'command' commands\n")
	b.WriteString("        return\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    case \"${words[2]}\" in\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        %s)\n", c.Name)
		switch {
		case c.Name == "help":
			b.WriteString("            _describe 'command' commands\n")
		case c.Name == "completion":
			b.WriteString("            _values 'shell' bash zsh fish powershell\n")
		case len(c.Flags) > 0:
			b.WriteString("            _arguments -s \\\n")
			for _, f := range c.Flags {
				desc := zshEscape(f.Desc)
				action := zshAction(f)
				if f.Short != "" {
					fmt.Fprintf(&b, "                '(-%s --%s)'{-%s,--%s}'[%s]%s' \\\n",
						f.Short, f.Long, f.Short, f.Long, desc, action)
				} else {
					fmt.Fprintf(&b, "                '--%s[%s]%s' \\\n", f.Long, desc, action)
				}
			}
			if c.Name == "print" {
				b.WriteString("                '1:template:'\n")
			} else {
				b.WriteString("                '*::'\n")
			}
		}
		b.WriteString("            ;;\n")
	}
	b.WriteString("    esac\n")
	b.WriteString("}\n\n")
	b.WriteString("compdef _pistonpress pistonpress\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// fishQuote single-quotes s for fish.
func fishQuote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func generateFish(w io.Writer) error {
	cmds := getCommands()
	var b strings.Builder

	b.WriteString("# fish completion for pistonpress\n")
	b.WriteString("complete -c pistonpress -f\n\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c pistonpress -n '__fish_use_subcommand' -a %s -d %s\n", c.Name, fishQuote(c.Desc))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "complete -c pistonpress -n '__fish_seen_subcommand_from help' -a %s\n",
		fishQuote(strings.Join(commandNames(cmds), " ")))
	b.WriteString("complete -c pistonpress -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish powershell'\n")

	for _, c := range cmds {
		if len(c.Flags) == 0 {
			continue
		}
		b.WriteString("\n")
		for _, f := range c.Flags {
			fmt.Fprintf(&b, "complete -c pistonpress -n '__fish_seen_subcommand_from %s' -l %s", c.Name, f.Long)
			if f.Short != "" {
				fmt.Fprintf(&b, " -s %s", f.Short)
			}
			switch f.Type {
			case flagBool:
			case flagEnum:
				fmt.Fprintf(&b, " -x -a %s", fishQuote(strings.Join(f.Values, " ")))
			case flagDir:
				b.WriteString(" -x -a '(__fish_complete_directories)'")
			case flagFile:
				b.WriteString(" -r -F")
			default:
				b.WriteString(" -x")
			}
			fmt.Fprintf(&b, " -d %s\n", fishQuote(f.Desc))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// psQuote single-quotes s for PowerShell.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func generatePowerShell(w io.Writer) error {
	cmds := getCommands()
	var b strings.Builder

	b.WriteString("# PowerShell completion for pistonpress\n")
	b.WriteString("Register-ArgumentCompleter -Native -CommandName pistonpress -ScriptBlock {\n")
	b.WriteString("    param($wordToComplete, $commandAst, $cursorPosition)\n\n")
	b.WriteString("    $commands = @{\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        %s = %s\n", psQuote(c.Name), psQuote(c.Desc))
	}
	b.WriteString("    }\n")
	b.WriteString("    $flags = @{\n")
	for _, c := range cmds {
		if len(c.Flags) == 0 {
			continue
		}
		quoted := make([]string, 0, len(c.Flags))
		for _, word := range flagWords(c.Flags) {
			quoted = append(quoted, psQuote(word))
		}
		fmt.Fprintf(&b, "        %s = @(%s)\n", psQuote(c.Name), strings.Join(quoted, ", "))
	}
	b.WriteString("    }\n\n")
	b.WriteString("    $elements = $commandAst.CommandElements | ForEach-Object { $_.ToString() }\n")
	b.WriteString("    if ($elements.Count -le 1 -or ($elements.Count -eq 2 -and $wordToComplete)) {\n")
	b.WriteString("        $commands.Keys | Where-Object { $_ -like \"$wordToComplete*\" } | Sort-Object | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $commands[$_])\n")
	b.WriteString("        }\n")
	b.WriteString("        return\n")
	b.WriteString("    }\n\n")
	b.WriteString("    $command = $elements[1]\n")
	b.WriteString("    if ($flags.ContainsKey($command)) {\n")
	b.WriteString("        $flags[$command] | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterName', $_)\n")
	b.WriteString("        }\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pistonpress completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w, "  powershell  PowerShell completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w, "  Bash:        eval \"$(pistonpress completion bash)\"        # ~/.bashrc")
	fmt.Fprintln(w, "  Zsh:         eval \"$(pistonpress completion zsh)\"         # ~/.zshrc, after compinit")
	fmt.Fprintln(w, "  Fish:        pistonpress completion fish > ~/.config/fish/completions/pistonpress.fish")
	fmt.Fprintln(w, "  PowerShell:  pistonpress completion powershell | Out-String | Invoke-Expression")
}
