package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alnah/go-doc2pub/internal/assets"
	"github.com/alnah/go-doc2pub/internal/config"
	"github.com/alnah/go-doc2pub/internal/server"
)

// runServe starts the upload front end and blocks until interrupted.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	merge := func(cfg *config.Config) {
		flags.pipeline.apply(cfg)
		setIf(&cfg.Server.Addr, flags.addr)
		if flags.maxUploadMB > 0 {
			cfg.Server.MaxUploadMB = flags.maxUploadMB
		}
	}
	a, err := newApp(flags.common, env, merge)
	if err != nil {
		return err
	}
	defer a.Close()

	// Request and job logs are JSON for log collectors.
	logger := slog.New(slog.NewJSONHandler(env.Stderr, &slog.HandlerOptions{Level: logLevel(flags.common)}))

	conv, err := a.converter(logger)
	if err != nil {
		return err
	}

	pages, err := assets.NewAssetResolver(a.cfg.Assets.BasePath)
	if err != nil {
		return fmt.Errorf("loading assets: %w", err)
	}
	defer func() { _ = pages.Close() }()

	srv, err := server.New(conv, server.Config{
		InputDir:          a.cfg.Directories.Input,
		MaxUploadBytes:    int64(a.cfg.Server.MaxUploadMB) << 20,
		AllowedExtensions: a.cfg.Server.AllowedExtensions,
		Pages:             pages,
	}, logger)
	if err != nil {
		return err
	}

	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "Serving on http://%s\n", a.cfg.Server.Addr)
	}
	return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
}
