package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pub <command> [flags] [args]")
	fmt.Fprintln(w, "       doc2pub <input> [output]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert documents into e-reader packages.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert documents")
	fmt.Fprintln(w, "  list       List the input directory")
	fmt.Fprintln(w, "  -i         Pick files interactively (default with no arguments)")
	fmt.Fprintln(w, "  serve      Start the upload web front end")
	fmt.Fprintln(w, "  doctor     Check the installation")
	fmt.Fprintln(w, "  history    Show recent jobs and retained artifacts")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  completion Generate shell completion script")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'doc2pub help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
}

func printPipelineUsage(w io.Writer) {
	fmt.Fprintln(w, "Pipeline:")
	fmt.Fprintln(w, "      --input-dir <dir>     Directory searched for bare input names")
	fmt.Fprintln(w, "      --output-dir <dir>    Directory receiving converted files")
	fmt.Fprintln(w, "      --tool <path>         Packaging tool (default: search for ebook-convert)")
	fmt.Fprintln(w, "      --profile <name>      Device output profile (default: kindle)")
	fmt.Fprintln(w, "      --format <ext>        Format the tool writes (default: mobi)")
	fmt.Fprintln(w, "      --engine <name>       Interchange engine: auto, pandoc, builtin")
	fmt.Fprintln(w, "      --language <tag>      Book language (default: en)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-stage timeout (e.g., 90s, 5m)")
	fmt.Fprintln(w, "      --asset-path <dir>    Custom styles and EPUB templates")
	fmt.Fprintln(w, "      --no-retain           Remove the interchange when packaging fails")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pub convert <input> [output] [flags]")
	fmt.Fprintln(w, "       doc2pub convert <input>... [-o dir] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert documents (pdf, doc, docx, txt, html, epub, md) to the device format.")
	fmt.Fprintln(w, "Bare names are also looked up in the input directory. Output names get a")
	fmt.Fprintln(w, "timestamp and the configured extension (default .pub).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file, or directory for several inputs")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel conversions (0 = auto)")
	fmt.Fprintln(w)
	printPipelineUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printListUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pub list [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "List the files of the input directory, numbered.")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printInteractiveUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pub -i [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Pick files of the input directory to convert.")
	fmt.Fprintln(w, "Keys: up/down select, enter or a number converts, r reloads, q quits.")
	fmt.Fprintln(w, "Without a terminal, type a number, r or q on each line.")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pub serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve an upload form; converted files are returned as downloads.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default: 127.0.0.1:5000)")
	fmt.Fprintln(w, "      --max-upload <mb>     Upload limit in MB (default: 16)")
	fmt.Fprintln(w)
	printPipelineUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pub doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check the packaging tool, pandoc, directories and job history.")
	fmt.Fprintln(w, "Exits 1 when conversions cannot run.")
}

func printHistoryUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pub history [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Show recent jobs.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -n, --limit <n>           Number of jobs (default: 20)")
	fmt.Fprintln(w, "  -r, --retained            Interchange artifacts kept after failures")
	fmt.Fprintln(w, "      --clean               Delete the retained artifacts")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pub config [print] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration (file, DOC2PUB_* variables, defaults) as YAML.")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "list":
		printListUsage(env.Stdout)
	case "interactive", "-i":
		printInteractiveUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "history":
		printHistoryUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: doc2pub version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: doc2pub help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
