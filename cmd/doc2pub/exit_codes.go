package main

import (
	"errors"

	flag "github.com/spf13/pflag"
)

// Exit codes for the doc2pub CLI.
const (
	ExitSuccess = 0 // Successful conversion, help or version
	ExitFailure = 1 // Any error
)

// Sentinel errors for CLI operations.
var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrNoInput          = errors.New("no input specified")
	ErrConversionFailed = errors.New("conversion failed")
	ErrTooManyArgs      = errors.New("too many arguments")
)

// exitCodeFor returns the exit code for an error returned by a command.
func exitCodeFor(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	return ExitFailure
}
