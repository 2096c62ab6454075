package main

import (
	"fmt"

	"github.com/alnah/go-doc2pub/internal/yamlutil"
)

// runConfigCmd prints the effective configuration as YAML.
func runConfigCmd(args []string, env *Environment) error {
	flags, positional, err := parseCommonFlags("config", args, printConfigUsage, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) > 1 || (len(positional) == 1 && positional[0] != "print") {
		return fmt.Errorf("%w: config %v", ErrUnknownCommand, positional)
	}

	cfg, err := resolveConfig(*flags, env, nil)
	if err != nil {
		return err
	}
	out, err := yamlutil.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = env.Stdout.Write(out)
	return err
}
