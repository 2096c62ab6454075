package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/config"
	"github.com/alnah/go-doc2pub/internal/hints"
	"github.com/alnah/go-doc2pub/internal/history"
)

// app bundles what a command needs once configuration is resolved.
type app struct {
	env     *Environment
	cfg     *config.Config
	logger  *slog.Logger
	history *history.Store // nil when disabled or unavailable
}

// newApp resolves configuration (flags > env > file > defaults), validates
// it and opens the job ledger. merge applies command flags; it may be nil.
func newApp(common commonFlags, env *Environment, merge func(*config.Config)) (*app, error) {
	cfg, err := resolveConfig(common, env, merge)
	if err != nil {
		return nil, err
	}

	a := &app{
		env:    env,
		cfg:    cfg,
		logger: newLogger(env.Stderr, common),
	}

	if cfg.History.Enabled {
		store, err := openHistory(cfg)
		if err != nil {
			a.logger.Warn("job history disabled", "error", err)
		} else {
			a.history = store
		}
	}
	return a, nil
}

// Close releases the job ledger.
func (a *app) Close() {
	if a.history == nil {
		return
	}
	if err := a.history.Close(); err != nil {
		a.logger.Warn("closing history", "error", err)
	}
}

// resolveConfig loads the config file and applies env vars and flags.
func resolveConfig(common commonFlags, env *Environment, merge func(*config.Config)) (*config.Config, error) {
	envCfg := loadEnvConfig(env.Getenv)

	name := common.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	var cfg *config.Config
	var err error
	switch {
	case name != "":
		cfg, err = config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(userConfigPaths(name)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
	case env.ConfigName != "":
		cfg, err = config.LoadConfig(env.ConfigName)
		if errors.Is(err, config.ErrConfigNotFound) {
			cfg, err = config.DefaultConfig(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	default:
		cfg = config.DefaultConfig()
	}

	applyEnvConfig(envCfg, cfg)
	if merge != nil {
		merge(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// userConfigPaths returns the per-user locations searched for name.
func userConfigPaths(name string) []string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(dir, "go-doc2pub", name+".yaml")}
}

// newLogger returns a text logger on w. --verbose enables debug records,
// --quiet keeps errors only.
func newLogger(w io.Writer, common commonFlags) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel(common)}))
}

func logLevel(common commonFlags) slog.Level {
	switch {
	case common.verbose:
		return slog.LevelDebug
	case common.quiet:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// historyPath returns the configured ledger path or the cache default.
func historyPath(cfg *config.Config) (string, error) {
	if cfg.History.Path != "" {
		return cfg.History.Path, nil
	}
	return config.DefaultHistoryPath()
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	path, err := historyPath(cfg)
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

// libraryConfig maps the file configuration onto the library settings.
func libraryConfig(cfg *config.Config) doc2pub.Config {
	return doc2pub.Config{
		InputDir:        cfg.Directories.Input,
		OutputDir:       cfg.Directories.Output,
		ToolPath:        cfg.Tool.Path,
		DeviceProfile:   cfg.Tool.DeviceProfile,
		PackageFormat:   cfg.Tool.PackageFormat,
		ExtraArgs:       cfg.Tool.ExtraArgs,
		Engine:          cfg.Interchange.Engine,
		PandocPath:      cfg.Interchange.PandocPath,
		ExtractMedia:    cfg.Interchange.ExtractMedia,
		Style:           cfg.Interchange.Style,
		Language:        cfg.Interchange.Language,
		PDFToTextPath:   cfg.Interchange.PDFToTextPath,
		AntiwordPath:    cfg.Interchange.AntiwordPath,
		OutputExtension: cfg.Output.Extension,
		RetainOnFailure: cfg.Output.RetainOnFailure,
		UniqueNames:     cfg.Naming.Unique,
		TimestampFormat: cfg.Naming.TimestampFormat,
	}
}

// converter builds the pipeline with the app's logger and ledger.
func (a *app) converter(logger *slog.Logger) (Converter, error) {
	if logger == nil {
		logger = a.logger
	}
	opts := []doc2pub.Option{
		doc2pub.WithLogger(logger),
		doc2pub.WithClock(a.env.Now),
	}
	if d := a.cfg.TimeoutDuration(); d > 0 {
		opts = append(opts, doc2pub.WithTimeout(d))
	}
	if a.cfg.Assets.BasePath != "" {
		opts = append(opts, doc2pub.WithAssetPath(a.cfg.Assets.BasePath))
	}
	if a.history != nil {
		opts = append(opts, doc2pub.WithRecorder(a.history))
	}
	return a.env.NewConverter(libraryConfig(a.cfg), opts...)
}
