package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/config"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota
	flagBool
	flagInt
	flagEnum
	flagFile
	flagDir
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long   string
	Short  string
	Type   flagType
	Desc   string
	Values []string // enum values
	Globs  []string // file patterns without the leading "*."
}

// commandDef describes a command for completion.
type commandDef struct {
	Name       string
	Desc       string
	Flags      []flagDef
	TakesFiles bool
}

// completionMeta holds completion hints the FlagSet cannot express.
type completionMeta struct {
	Values []string
	Globs  []string
	IsDir  bool
	IsFile bool
}

var flagCompletionMeta = map[string]completionMeta{
	"engine":     {Values: []string{config.EngineAuto, config.EnginePandoc, config.EngineBuiltin}},
	"config":     {Globs: []string{"yaml", "yml"}},
	"tool":       {IsFile: true},
	"output":     {IsFile: true},
	"input-dir":  {IsDir: true},
	"output-dir": {IsDir: true},
	"asset-path": {IsDir: true},
}

// extractFlags reads flag definitions from fs, enriched with
// flagCompletionMeta.
func extractFlags(fs *flag.FlagSet) []flagDef {
	var flags []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{Long: f.Name, Short: f.Shorthand, Desc: f.Usage}
		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int":
			fd.Type = flagInt
		default:
			fd.Type = flagString
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type, fd.Values = flagEnum, meta.Values
			case len(meta.Globs) > 0:
				fd.Type, fd.Globs = flagFile, meta.Globs
			case meta.IsFile:
				fd.Type = flagFile
			case meta.IsDir:
				fd.Type = flagDir
			}
		}
		flags = append(flags, fd)
	})
	return flags
}

// getCommands returns the command registry. Flags come from the same
// FlagSets the commands parse with.
func getCommands() []commandDef {
	common := func(name string) []flagDef {
		return extractFlags(commonFlagSet(name, &commonFlags{}, printUsage, io.Discard))
	}
	return []commandDef{
		{Name: "convert", Desc: "Convert documents for the e-reader", TakesFiles: true,
			Flags: extractFlags(convertFlagSet(&convertFlags{}, io.Discard))},
		{Name: "list", Desc: "List the input directory", Flags: common("list")},
		{Name: "interactive", Desc: "Pick files to convert", Flags: common("interactive")},
		{Name: "serve", Desc: "Run the upload page",
			Flags: extractFlags(serveFlagSet(&serveFlags{}, io.Discard))},
		{Name: "doctor", Desc: "Check the installation",
			Flags: extractFlags(doctorFlagSet(&doctorFlags{}, io.Discard))},
		{Name: "history", Desc: "Show recorded jobs",
			Flags: extractFlags(historyFlagSet(&historyFlags{}, io.Discard))},
		{Name: "config", Desc: "Print the effective configuration", Flags: common("config")},
		{Name: "completion", Desc: "Generate shell completion script"},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command"},
	}
}

// inputGlobs returns the supported input extensions without dots.
func inputGlobs() []string {
	exts := doc2pub.SupportedExtensions()
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.TrimPrefix(e, ".")
	}
	sort.Strings(out)
	return out
}

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	var script string
	switch shell {
	case ShellBash:
		script = bashCompletion(getCommands())
	case ShellZsh:
		script = zshCompletion(getCommands())
	case ShellFish:
		script = fishCompletion(getCommands())
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	if len(args) > 1 {
		return ErrTooManyArgs
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

// ---------------------------------------------------------------------------
// Bash
// ---------------------------------------------------------------------------

func bashCompletion(cmds []commandDef) string {
	var b strings.Builder
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	inputs := "!*.@(" + strings.Join(inputGlobs(), "|") + ")"

	b.WriteString("# bash completion for doc2pub\n")
	b.WriteString("_doc2pub() {\n")
	b.WriteString("    local cur prev cmd\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	b.WriteString("    cmd=\"${COMP_WORDS[1]}\"\n\n")
	b.WriteString("    if [[ $COMP_CWORD -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(names, " "))
	fmt.Fprintf(&b, "        COMPREPLY+=($(compgen -f -X '%s' -- \"$cur\"))\n", inputs)
	b.WriteString("        return\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    case \"$cmd\" in\n")

	for _, c := range cmds {
		if c.Name == "completion" {
			b.WriteString("    completion)\n")
			b.WriteString("        COMPREPLY=($(compgen -W \"bash zsh fish\" -- \"$cur\"))\n")
			b.WriteString("        ;;\n")
			continue
		}
		if len(c.Flags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		b.WriteString("        case \"$prev\" in\n")
		for _, f := range c.Flags {
			if f.Type == flagBool || f.Type == flagString || f.Type == flagInt {
				continue
			}
			fmt.Fprintf(&b, "        %s)\n", bashFlagPattern(f))
			switch f.Type {
			case flagEnum:
				fmt.Fprintf(&b, "            COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(f.Values, " "))
			case flagDir:
				b.WriteString("            COMPREPLY=($(compgen -d -- \"$cur\"))\n")
			case flagFile:
				if len(f.Globs) > 0 {
					fmt.Fprintf(&b, "            COMPREPLY=($(compgen -f -X '!*.@(%s)' -- \"$cur\"))\n", strings.Join(f.Globs, "|"))
				} else {
					b.WriteString("            COMPREPLY=($(compgen -f -- \"$cur\"))\n")
				}
			}
			b.WriteString("            return\n")
			b.WriteString("            ;;\n")
		}
		b.WriteString("        esac\n")
		b.WriteString("        if [[ \"$cur\" == -* ]]; then\n")
		fmt.Fprintf(&b, "            COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(flagWords(c.Flags), " "))
		if c.TakesFiles {
			b.WriteString("        else\n")
			fmt.Fprintf(&b, "            COMPREPLY=($(compgen -f -X '%s' -- \"$cur\"))\n", inputs)
		}
		b.WriteString("        fi\n")
		b.WriteString("        ;;\n")
	}

	b.WriteString("    esac\n")
	b.WriteString("}\n\n")
	b.WriteString("shopt -s extglob\n")
	b.WriteString("complete -o filenames -F _doc2pub doc2pub\n")
	return b.String()
}

func bashFlagPattern(f flagDef) string {
	if f.Short != "" {
		return "-" + f.Short + "|--" + f.Long
	}
	return "--" + f.Long
}

func flagWords(flags []flagDef) []string {
	words := make([]string, 0, len(flags)*2)
	for _, f := range flags {
		words = append(words, "--"+f.Long)
		if f.Short != "" {
			words = append(words, "-"+f.Short)
		}
	}
	return words
}

// ---------------------------------------------------------------------------
// Zsh
// ---------------------------------------------------------------------------

func zshCompletion(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("#compdef doc2pub\n\n")
	b.WriteString("_doc2pub() {\n")
	b.WriteString("    local -a commands\n")
	b.WriteString("    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	b.WriteString("    )\n\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n")
	b.WriteString("        _describe 'command' commands\n")
	fmt.Fprintf(&b, "        _files -g '*.(%s)'\n", strings.Join(inputGlobs(), "|"))
	b.WriteString("        return\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    case \"${words[2]}\" in\n")

	for _, c := range cmds {
		if c.Name == "completion" {
			b.WriteString("    completion)\n")
			b.WriteString("        _values 'shell' bash zsh fish\n")
			b.WriteString("        ;;\n")
			continue
		}
		if len(c.Flags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		b.WriteString("        _arguments -s \\\n")
		for _, f := range c.Flags {
			fmt.Fprintf(&b, "            %s \\\n", zshFlagSpec(f))
		}
		if c.TakesFiles {
			fmt.Fprintf(&b, "            '*:document:_files -g \"*.(%s)\"'\n", strings.Join(inputGlobs(), "|"))
		} else {
			b.WriteString("            && return\n")
		}
		b.WriteString("        ;;\n")
	}

	b.WriteString("    esac\n")
	b.WriteString("}\n\n")
	b.WriteString("compdef _doc2pub doc2pub\n")
	return b.String()
}

func zshFlagSpec(f flagDef) string {
	desc := "[" + zshEscape(f.Desc) + "]"
	var action string
	switch f.Type {
	case flagBool:
		action = ""
	case flagEnum:
		action = ":" + f.Long + ":(" + strings.Join(f.Values, " ") + ")"
	case flagDir:
		action = ":" + f.Long + ":_directories"
	case flagFile:
		if len(f.Globs) > 0 {
			action = ":" + f.Long + ":_files -g \"*.(" + strings.Join(f.Globs, "|") + ")\""
		} else {
			action = ":" + f.Long + ":_files"
		}
	default:
		action = ":" + f.Long + ":"
	}
	if f.Short != "" {
		return "'(-" + f.Short + " --" + f.Long + ")'{-" + f.Short + ",--" + f.Long + "}'" + desc + action + "'"
	}
	return "'--" + f.Long + desc + action + "'"
}

func zshEscape(s string) string {
	r := strings.NewReplacer("'", "'\\''", "[", "\\[", "]", "\\]", ":", "\\:")
	return r.Replace(s)
}

// ---------------------------------------------------------------------------
// Fish
// ---------------------------------------------------------------------------

func fishCompletion(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# fish completion for doc2pub\n")
	b.WriteString("complete -c doc2pub -f\n\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c doc2pub -n '__fish_use_subcommand' -a %s -d '%s'\n", c.Name, fishEscape(c.Desc))
	}
	b.WriteString("complete -c doc2pub -n '__fish_use_subcommand' -F\n")

	for _, c := range cmds {
		cond := "__fish_seen_subcommand_from " + c.Name
		if c.Name == "completion" {
			fmt.Fprintf(&b, "complete -c doc2pub -n '%s' -xa 'bash zsh fish'\n", cond)
			continue
		}
		if len(c.Flags) == 0 {
			continue
		}
		b.WriteString("\n")
		if c.TakesFiles {
			fmt.Fprintf(&b, "complete -c doc2pub -n '%s' -F\n", cond)
		}
		for _, f := range c.Flags {
			fmt.Fprintf(&b, "complete -c doc2pub -n '%s' -l %s", cond, f.Long)
			if f.Short != "" {
				fmt.Fprintf(&b, " -s %s", f.Short)
			}
			switch f.Type {
			case flagEnum:
				fmt.Fprintf(&b, " -xa '%s'", strings.Join(f.Values, " "))
			case flagDir:
				b.WriteString(" -xa '(__fish_complete_directories)'")
			case flagFile:
				b.WriteString(" -rF")
			case flagString, flagInt:
				b.WriteString(" -x")
			}
			fmt.Fprintf(&b, " -d '%s'\n", fishEscape(f.Desc))
		}
	}
	return b.String()
}

func fishEscape(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pub completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(doc2pub completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (after compinit):")
	fmt.Fprintln(w, "    eval \"$(doc2pub completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    doc2pub completion fish > ~/.config/fish/completions/doc2pub.fish")
}
