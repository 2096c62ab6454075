package main

import (
	"context"
	"io"
	"os"
	"time"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/config"
)

// Converter is the part of *doc2pub.Converter the commands use.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputHint string) (*doc2pub.Artifact, error)
}

// Compile-time interface implementation check.
var _ Converter = (*doc2pub.Converter)(nil)

// ConverterFactory builds a Converter from resolved settings.
type ConverterFactory func(cfg doc2pub.Config, opts ...doc2pub.Option) (Converter, error)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment and converter construction.
type Environment struct {
	Now     func() time.Time
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string
	IsTTY   func() bool

	// DotEnv is loaded before dispatch; "" skips it.
	DotEnv string

	// ConfigName is tried when neither --config nor DOC2PUB_CONFIG is set.
	// A missing file falls back to defaults; "" skips the lookup.
	ConfigName string

	NewConverter ConverterFactory

	// Runner executes version checks for doctor.
	Runner doc2pub.CommandRunner
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:        time.Now,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Getenv:     os.Getenv,
		Environ:    os.Environ,
		IsTTY:      stdinIsTTY,
		DotEnv:     ".env",
		ConfigName: config.DefaultName,
		NewConverter: func(cfg doc2pub.Config, opts ...doc2pub.Option) (Converter, error) {
			return doc2pub.NewConverter(cfg, opts...)
		},
		Runner: &doc2pub.ExecRunner{},
	}
}

func stdinIsTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
