package main

import (
	"fmt"
	"io"

	"github.com/alnah/go-doc2pub/internal/fileutil"
)

// runList prints the numbered contents of the input directory.
func runList(args []string, env *Environment) error {
	flags, positional, err := parseCommonFlags("list", args, printListUsage, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return ErrTooManyArgs
	}

	a, err := newApp(*flags, env, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := ensureInputDir(a.cfg.Directories.Input); err != nil {
		return err
	}
	files, err := fileutil.ListFiles(a.cfg.Directories.Input)
	if err != nil {
		return err
	}
	printFileList(env.Stdout, a.cfg.Directories.Input, files)
	return nil
}

// ensureInputDir creates the input directory on first use.
func ensureInputDir(dir string) error {
	if err := fileutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("preparing input directory: %w", err)
	}
	return nil
}

// printFileList writes "n. name" lines, numbered from 1.
func printFileList(w io.Writer, dir string, files []string) {
	if len(files) == 0 {
		fmt.Fprintf(w, "No files in %s\n", dir)
		return
	}
	fmt.Fprintf(w, "Files in %s:\n", dir)
	for i, name := range files {
		fmt.Fprintf(w, "%3d. %s\n", i+1, name)
	}
}
