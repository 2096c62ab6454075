package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/automaxprocs/maxprocs"

	doc2pub "github.com/alnah/go-doc2pub"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))

	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches the command line and returns the process exit code.
func runMain(args []string, env *Environment) int {
	loadDotEnv(env)
	warnUnknownEnvVars(env.Stderr, env.Environ())

	ctx, stop := notifyContext(context.Background())
	defer stop()

	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}

	cmd := ""
	if len(rest) > 0 {
		cmd = rest[0]
		rest = rest[1:]
	}

	var err error
	switch {
	case cmd == "" || cmd == "-i" || cmd == "--interactive" || cmd == "interactive":
		err = runInteractive(ctx, rest, env)
	case cmd == "convert":
		err = runConvert(ctx, rest, env)
	case cmd == "list":
		err = runList(rest, env)
	case cmd == "serve":
		err = runServe(ctx, rest, env)
	case cmd == "doctor":
		return runDoctorCmd(rest, env)
	case cmd == "history":
		err = runHistory(ctx, rest, env)
	case cmd == "config":
		err = runConfigCmd(rest, env)
	case cmd == "completion":
		err = runCompletion(rest, env)
	case cmd == "version" || cmd == "--version":
		fmt.Fprintf(env.Stdout, "doc2pub %s\n", Version)
	case cmd == "help" || cmd == "-h" || cmd == "--help":
		runHelp(rest, env)
	case looksLikeDocument(cmd):
		// doc2pub <input> [output]
		err = runConvert(ctx, append([]string{cmd}, rest...), env)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
		printUsage(env.Stderr)
	}

	code := exitCodeFor(err)
	if code != ExitSuccess {
		fmt.Fprintln(env.Stderr, err)
	}
	return code
}

// loadDotEnv reads env.DotEnv into the process environment when present.
// Existing variables win over the file.
func loadDotEnv(env *Environment) {
	if env.DotEnv == "" {
		return
	}
	if err := godotenv.Load(env.DotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(env.Stderr, "warning: reading %s: %v\n", env.DotEnv, err)
	}
}

// looksLikeDocument reports whether arg names an input file rather than a
// command.
func looksLikeDocument(arg string) bool {
	if arg == "" || arg[0] == '-' {
		return false
	}
	return doc2pub.Detect(arg) != doc2pub.FormatUnknown || filepath.Ext(arg) != ""
}
