package main

import (
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-doc2pub/internal/config"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pipelineFlags override the conversion settings of the config file.
type pipelineFlags struct {
	inputDir  string
	outputDir string
	tool      string
	profile   string
	format    string
	engine    string
	language  string
	timeout   string
	assetPath string
	noRetain  bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common   commonFlags
	pipeline pipelineFlags
	output   string
	workers  int
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common      commonFlags
	pipeline    pipelineFlags
	addr        string
	maxUploadMB int
}

// historyFlags holds flags for the history command.
type historyFlags struct {
	common   commonFlags
	retained bool
	limit    int
	clean    bool
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	common commonFlags
	json   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// addPipelineFlags adds conversion setting flags to a FlagSet.
func addPipelineFlags(fs *flag.FlagSet, f *pipelineFlags) {
	fs.StringVar(&f.inputDir, "input-dir", "", "directory searched for bare input names")
	fs.StringVar(&f.outputDir, "output-dir", "", "directory receiving converted files")
	fs.StringVar(&f.tool, "tool", "", "packaging tool executable (default: search)")
	fs.StringVar(&f.profile, "profile", "", "device output profile, e.g. kindle_pw3")
	fs.StringVar(&f.format, "format", "", "format the packaging tool writes, e.g. mobi")
	fs.StringVar(&f.engine, "engine", "", "interchange engine: auto, pandoc, builtin")
	fs.StringVar(&f.language, "language", "", "book language tag, e.g. fr or pt-BR")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-stage timeout (e.g., 90s, 5m)")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
	fs.BoolVar(&f.noRetain, "no-retain", false, "remove the interchange when packaging fails")
}

// apply merges set flags into cfg. CLI values override config values.
func (f *pipelineFlags) apply(cfg *config.Config) {
	setIf(&cfg.Directories.Input, f.inputDir)
	setIf(&cfg.Directories.Output, f.outputDir)
	setIf(&cfg.Tool.Path, f.tool)
	setIf(&cfg.Tool.DeviceProfile, f.profile)
	setIf(&cfg.Tool.PackageFormat, f.format)
	setIf(&cfg.Interchange.Engine, f.engine)
	setIf(&cfg.Interchange.Language, f.language)
	setIf(&cfg.Timeout, f.timeout)
	setIf(&cfg.Assets.BasePath, f.assetPath)
	if f.noRetain {
		cfg.Output.RetainOnFailure = false
	}
}

func newFlagSet(name string, usage func(io.Writer), w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	return fs
}

// convertFlagSet registers the convert flags into f.
func convertFlagSet(f *convertFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("convert", printConvertUsage, w)
	fs.StringVarP(&f.output, "output", "o", "", "output file, or directory for several inputs")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel conversions (0 = auto)")
	addCommonFlags(fs, &f.common)
	addPipelineFlags(fs, &f.pipeline)
	return fs
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, w io.Writer) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := convertFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func serveFlagSet(f *serveFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("serve", printServeUsage, w)
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default from config)")
	fs.IntVar(&f.maxUploadMB, "max-upload", 0, "upload limit in MB (default from config)")
	addCommonFlags(fs, &f.common)
	addPipelineFlags(fs, &f.pipeline)
	return fs
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, w io.Writer) (*serveFlags, error) {
	f := &serveFlags{}
	fs := serveFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, ErrTooManyArgs
	}
	return f, nil
}

func historyFlagSet(f *historyFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("history", printHistoryUsage, w)
	fs.BoolVarP(&f.retained, "retained", "r", false, "list kept interchange artifacts still on disk")
	fs.IntVarP(&f.limit, "limit", "n", 20, "number of jobs to list")
	fs.BoolVar(&f.clean, "clean", false, "delete retained interchange artifacts")
	addCommonFlags(fs, &f.common)
	return fs
}

// parseHistoryFlags parses history command flags.
func parseHistoryFlags(args []string, w io.Writer) (*historyFlags, error) {
	f := &historyFlags{}
	fs := historyFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, ErrTooManyArgs
	}
	return f, nil
}

func doctorFlagSet(f *doctorFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("doctor", printDoctorUsage, w)
	fs.BoolVar(&f.json, "json", false, "machine-readable output")
	addCommonFlags(fs, &f.common)
	return fs
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, w io.Writer) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := doctorFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func commonFlagSet(name string, f *commonFlags, usage func(io.Writer), w io.Writer) *flag.FlagSet {
	fs := newFlagSet(name, usage, w)
	addCommonFlags(fs, f)
	return fs
}

// parseCommonFlags parses commands that only take the common flags.
func parseCommonFlags(name string, args []string, usage func(io.Writer), w io.Writer) (*commonFlags, []string, error) {
	f := &commonFlags{}
	fs := commonFlagSet(name, f, usage, w)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
