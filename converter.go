package doc2pub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-doc2pub/internal/assets"
	"github.com/alnah/go-doc2pub/internal/fileutil"
	"github.com/alnah/go-doc2pub/internal/hints"
)

// Converter orchestrates the two-stage conversion pipeline.
// Create with NewConverter and call Convert for each document. A Converter
// holds no per-job state and is safe for concurrent use.
type Converter struct {
	cfg      Config
	tool     ExternalTool
	engines  []InterchangeEngine
	runner   CommandRunner
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	timeout  time.Duration

	rename func(oldpath, newpath string) error

	mu      sync.Mutex
	claimed map[string]bool // final paths of jobs in flight
}

// NewConverter validates cfg, resolves the packaging tool and prepares the
// Stage 1 engines. It fails with ErrToolNotFound before any file is touched
// when the packaging tool is absent.
func NewConverter(cfg Config, opts ...Option) (*Converter, error) {
	o := converterConfig{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Engine == "" {
		cfg.Engine = EngineAuto
	}

	locator := o.locator
	if locator == nil {
		if cfg.ToolPath != "" {
			locator = NewToolLocatorAt(cfg.ToolPath)
		} else {
			locator = NewToolLocator(DefaultToolName)
		}
	}
	tool, err := locator.Locate()
	if err != nil {
		return nil, err
	}

	c := &Converter{
		cfg:      cfg,
		tool:     tool,
		engines:  o.engines,
		runner:   o.runner,
		logger:   o.logger,
		recorder: o.recorder,
		now:      o.clock,
		timeout:  o.timeout,
		rename:   os.Rename,
		claimed:  make(map[string]bool),
	}
	if c.runner == nil {
		c.runner = &ExecRunner{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.now == nil {
		c.now = time.Now
	}

	if len(c.engines) == 0 {
		c.engines, err = buildEngines(cfg, c.runner, o.assetPath)
		if err != nil {
			return nil, err
		}
	}

	c.logger.Debug("converter ready", "tool", tool.Path, "engines", engineNames(c.engines))
	return c, nil
}

// buildEngines returns the Stage 1 engines for cfg.Engine in preference
// order. The extract engine is appended whenever an extractor is installed,
// since no other engine reads PDF or DOC.
func buildEngines(cfg Config, runner CommandRunner, assetPath string) ([]InterchangeEngine, error) {
	var engines []InterchangeEngine

	if cfg.Engine == EngineAuto || cfg.Engine == EnginePandoc {
		path, err := LookupPandoc(cfg.PandocPath)
		switch {
		case err == nil:
			engines = append(engines, NewPandocEngine(path, runner))
		case cfg.Engine == EnginePandoc:
			return nil, err
		}
	}

	tools := LookupExtractors(map[Format]string{
		FormatPDF: cfg.PDFToTextPath,
		FormatDOC: cfg.AntiwordPath,
	})
	if cfg.Engine == EnginePandoc && len(tools) == 0 {
		return engines, nil
	}

	resolver, err := assets.NewAssetResolver(assetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// Templates and style are read once; the directory is not needed after.
	builtin, err := newBuiltinEngine(resolver, cfg.Style, cfg.Language)
	_ = resolver.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.Engine == EngineAuto || cfg.Engine == EngineBuiltin {
		engines = append(engines, builtin)
	}
	if len(tools) > 0 {
		engines = append(engines, NewExtractEngine(tools, builtin, runner))
	}
	return engines, nil
}

// Tool returns the resolved packaging executable.
func (c *Converter) Tool() ExternalTool {
	return c.tool
}

// Engines returns the names of the Stage 1 engines in preference order.
func (c *Converter) Engines() []string {
	return engineNames(c.engines)
}

// outputPlan holds every path a job may write.
type outputPlan struct {
	final       string
	interchange string
	packaged    string
	mediaDir    string
}

// Convert runs one document through the pipeline and returns the final
// artifact. outputHint is optional: an existing directory receives a
// generated name, any other value is used as the output path.
//
// Errors match one of ErrInputNotFound, ErrUnsupportedFormat,
// ErrStage1Failed, ErrStage2Failed or ErrRenameFailed with errors.Is.
// Stage failures are *StageError values carrying the tool diagnostics.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, inputPath, outputHint string) (art *Artifact, err error) {
	job := newJob(c.now())
	log := c.logger.With("job", job.ID)

	defer func() {
		job.FinishedAt = c.now()
		if err != nil && !job.State.Terminal() {
			_ = job.fail(failedStage(err), err)
		}
		c.record(ctx, log, job)
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	// 1. Resolve input. Nothing is written before this succeeds.
	resolved, err := c.resolveInput(inputPath)
	if err != nil {
		return nil, err
	}
	job.Input.Path = resolved
	log = log.With("input", resolved)

	// 2. Detect format and pick an engine.
	format := Detect(resolved)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %s%s", ErrUnsupportedFormat,
			filepath.Base(resolved), hints.ForUnsupportedFormat(SupportedExtensions()))
	}
	job.Input.Format = format
	c.transition(log, job, JobDetected)

	engine := c.selectEngine(format)
	if engine == nil {
		return nil, &StageError{
			Kind:  ErrStage1Failed,
			Stage: StageInterchange,
			Err:   fmt.Errorf("%w for %s input%s", ErrEngineNotFound, format, hints.ForNoEngine(string(format))),
		}
	}

	// 3. Name outputs.
	plan, err := c.planOutputs(resolved, outputHint)
	if err != nil {
		return nil, err
	}
	defer c.release(plan)
	job.Output = plan.final
	log = log.With("output", plan.final)

	// 4. Stage 1: source -> EPUB interchange.
	if err := c.runStage1(ctx, log, job, engine, plan); err != nil {
		return nil, err
	}
	c.transition(log, job, JobStage1Done)

	// 5. Stage 2: interchange -> device package.
	if err := c.runStage2(ctx, log, job, plan); err != nil {
		return nil, err
	}
	c.transition(log, job, JobStage2Done)

	// 6. Finalize: relabel the packaged file. Bytes are untouched.
	if plan.packaged != plan.final {
		if err := c.rename(plan.packaged, plan.final); err != nil {
			job.Retained = c.retainOrRemove(log, plan.interchange)
			c.removeMedia(log, job.mediaDir(plan))
			return nil, &StageError{
				Kind:        ErrRenameFailed,
				Stage:       StageFinalize,
				Detail:      "packaged output left at " + plan.packaged,
				Interchange: job.Retained,
				Err:         err,
			}
		}
	}

	// 7. Cleanup: success only. Failures here are logged, not returned.
	c.removeFile(log, plan.interchange)
	c.removeMedia(log, job.mediaDir(plan))
	c.transition(log, job, JobCleaned)

	art = &Artifact{Path: plan.final, Format: format, JobID: job.ID}
	if info, statErr := os.Stat(plan.final); statErr == nil {
		art.Size = info.Size()
	}
	c.transition(log, job, JobDone)
	log.Info("conversion complete", "size", art.Size)
	return art, nil
}

// resolveInput returns path if it exists, else the same base name inside
// the configured input directory.
func (c *Converter) resolveInput(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInputNotFound)
	}
	if fileutil.FileExists(path) {
		return path, nil
	}
	if c.cfg.InputDir != "" {
		alt := filepath.Join(c.cfg.InputDir, filepath.Base(path))
		if fileutil.FileExists(alt) {
			return alt, nil
		}
		return "", fmt.Errorf("%w: %s (also tried %s)", ErrInputNotFound, path, alt)
	}
	return "", fmt.Errorf("%w: %s", ErrInputNotFound, path)
}

func (c *Converter) selectEngine(f Format) InterchangeEngine {
	for _, e := range c.engines {
		if e.Supports(f) {
			return e
		}
	}
	return nil
}

// planOutputs computes the final, interchange, packaged and media paths.
// The output directory is created here, after input checks passed.
func (c *Converter) planOutputs(input, outputHint string) (outputPlan, error) {
	var final string

	dir := c.cfg.OutputDir
	if outputHint != "" {
		if fileutil.DirExists(outputHint) {
			dir = outputHint
		} else {
			final = outputHint
			dir = filepath.Dir(outputHint)
		}
	}
	if dir == "" {
		dir = "."
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		return outputPlan{}, fmt.Errorf("preparing output directory: %w%s", err, hints.ForOutputDirectory())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if final == "" {
		ext := c.cfg.OutputExtension
		pkg := c.cfg.packageExt()
		var name string
		var err error
		if c.cfg.UniqueNames {
			claimed := func(name string) bool { return c.claimed[filepath.Join(dir, name)] }
			name, err = uniqueName(dir, input, ext, c.now(), c.cfg.timestampPattern(), claimed, ".epub", ".stage1.epub", pkg, "_media")
		} else {
			name, err = generateName(input, ext, c.now(), c.cfg.timestampPattern())
		}
		if err != nil {
			return outputPlan{}, fmt.Errorf("naming output: %w", err)
		}
		final = filepath.Join(dir, name)
	}

	stem := strings.TrimSuffix(final, filepath.Ext(final))
	plan := outputPlan{
		final:       final,
		interchange: stem + ".epub",
		packaged:    stem + c.cfg.packageExt(),
	}
	if plan.interchange == final {
		plan.interchange = stem + ".stage1.epub"
	}
	if c.cfg.ExtractMedia {
		media, err := c.freeMediaDir(stem + "_media")
		if err != nil {
			return outputPlan{}, err
		}
		plan.mediaDir = media
		c.claimed[media] = true
	}
	c.claimed[final] = true
	return plan, nil
}

// freeMediaDir returns base, or base_1, base_2, ... when base already exists
// or is held by another job. Callers hold c.mu.
func (c *Converter) freeMediaDir(base string) (string, error) {
	for i := 0; i < maxUniqueAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", base, i)
		}
		if !c.claimed[candidate] && nameFree(filepath.Dir(candidate), filepath.Base(candidate)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("naming media directory: %w: %s after %d attempts", ErrNameExhausted, base, maxUniqueAttempts)
}

func (c *Converter) release(plan outputPlan) {
	c.mu.Lock()
	delete(c.claimed, plan.final)
	if plan.mediaDir != "" {
		delete(c.claimed, plan.mediaDir)
	}
	c.mu.Unlock()
}

func (c *Converter) runStage1(ctx context.Context, log *slog.Logger, job *Job, engine InterchangeEngine, plan outputPlan) error {
	job.Intermediates = append(job.Intermediates, plan.interchange)

	mediaDir := plan.mediaDir
	if mediaDir != "" && fileutil.DirExists(mediaDir) {
		// Created after planning by someone else; only a directory this job
		// creates is removed later.
		log.Warn("media directory appeared before stage 1, extraction skipped", "path", mediaDir)
		mediaDir = ""
	}

	sctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log.Debug("stage 1 starting", "engine", engine.Name(), "interchange", plan.interchange)
	err := engine.ToInterchange(sctx, InterchangeRequest{
		Input:    job.Input.Path,
		Format:   job.Input.Format,
		Output:   plan.interchange,
		MediaDir: mediaDir,
		Title:    stemOf(job.Input.Path),
	})
	if err == nil && !fileutil.FileExists(plan.interchange) {
		err = fmt.Errorf("%s produced no output", engine.Name())
	}
	if err != nil {
		c.removeFile(log, plan.interchange)
		c.removeMedia(log, mediaDir)
		if ctxErr := sctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		log.Warn("stage 1 failed", "engine", engine.Name(), "error", err)
		return &StageError{
			Kind:   ErrStage1Failed,
			Stage:  StageInterchange,
			Detail: toolDetail(err),
			Err:    err,
		}
	}
	if mediaDir != "" {
		job.Intermediates = append(job.Intermediates, mediaDir)
	}
	return nil
}

func (c *Converter) runStage2(ctx context.Context, log *slog.Logger, job *Job, plan outputPlan) error {
	args := []string{plan.interchange, plan.packaged, "--output-profile=" + c.cfg.DeviceProfile}
	args = append(args, c.cfg.ExtraArgs...)

	sctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log.Debug("stage 2 starting", "tool", c.tool.Path, "profile", c.cfg.DeviceProfile)
	res, err := c.runner.Run(sctx, c.tool.Path, args...)
	if err == nil && !fileutil.FileExists(plan.packaged) {
		err = fmt.Errorf("%s exited 0 but wrote no %s", c.tool.Name, filepath.Base(plan.packaged))
	}
	if err == nil {
		return nil
	}

	detail := res.Stderr
	if detail == "" {
		var te *ToolError
		if errors.As(err, &te) {
			detail = te.Stderr
		}
	}

	c.removeFile(log, plan.packaged)
	job.Retained = c.retainOrRemove(log, plan.interchange)
	c.removeMedia(log, job.mediaDir(plan))
	log.Warn("stage 2 failed", "error", err, "exit_code", res.ExitCode)

	return &StageError{
		Kind:        ErrStage2Failed,
		Stage:       StagePackage,
		Detail:      detail,
		Interchange: job.Retained,
		Err:         err,
	}
}

// retainOrRemove applies RetainOnFailure to the interchange and returns
// the retained path, or "".
func (c *Converter) retainOrRemove(log *slog.Logger, interchange string) string {
	if c.cfg.RetainOnFailure && fileutil.FileExists(interchange) {
		log.Warn("interchange retained", "path", interchange)
		return interchange
	}
	c.removeFile(log, interchange)
	return ""
}

func (c *Converter) removeFile(log *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("removing intermediate", "path", path, "error", err)
	}
}

func (c *Converter) removeMedia(log *slog.Logger, dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("removing media directory", "path", dir, "error", err)
	}
}

// transition advances job and logs the new state. An invalid transition is
// a programming error; the panic is recovered by Convert.
func (c *Converter) transition(log *slog.Logger, job *Job, to JobState) {
	if err := job.advance(to); err != nil {
		panic(err)
	}
	log.Debug("job state", "state", to.String())
}

func (c *Converter) record(ctx context.Context, log *slog.Logger, job *Job) {
	if job.State == JobFailed {
		log.Warn("conversion failed", "stage", job.FailedStage.String(), "error", job.Err)
	}
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordJob(context.WithoutCancel(ctx), job.Record()); err != nil {
		log.Warn("recording job", "error", err)
	}
}

// mediaDir returns the media directory the job created, if any.
func (j *Job) mediaDir(plan outputPlan) string {
	for _, p := range j.Intermediates {
		if p == plan.mediaDir {
			return p
		}
	}
	return ""
}

// failedStage maps a Convert error to the stage it belongs to.
func failedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	if errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrInputNotFound) {
		return StageDetect
	}
	return StageNone
}

func engineNames(engines []InterchangeEngine) []string {
	names := make([]string, len(engines))
	for i, e := range engines {
		names[i] = e.Name()
	}
	return names
}
