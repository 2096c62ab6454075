package doc2pub

import (
	"log/slog"
	"time"
)

// InputDocument is a resolved input path with its detected format.
type InputDocument struct {
	Path   string
	Format Format
}

// Artifact is the final packaged file produced by Convert.
type Artifact struct {
	Path   string
	Format Format // Input format the artifact was converted from
	JobID  string
	Size   int64
}

// Locator resolves the packaging executable. *ToolLocator implements it.
type Locator interface {
	Locate() (ExternalTool, error)
}

// Option configures a Converter.
type Option func(*converterConfig)

// converterConfig holds the collaborators injected through options.
type converterConfig struct {
	timeout   time.Duration
	logger    *slog.Logger
	runner    CommandRunner
	locator   Locator
	engines   []InterchangeEngine
	recorder  Recorder
	clock     func() time.Time
	assetPath string
}

// defaultTimeout bounds each external stage when no timeout is specified.
const defaultTimeout = 5 * time.Minute

// WithTimeout sets the per-stage timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("doc2pub: WithTimeout duration must be positive")
	}
	return func(c *converterConfig) {
		c.timeout = d
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *converterConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRunner sets the command runner used for external tools.
func WithRunner(r CommandRunner) Option {
	return func(c *converterConfig) {
		c.runner = r
	}
}

// WithLocator replaces the packaging tool lookup.
func WithLocator(l Locator) Option {
	return func(c *converterConfig) {
		c.locator = l
	}
}

// WithEngines replaces the Stage 1 engines. The first engine supporting
// the detected format is used.
func WithEngines(engines ...InterchangeEngine) Option {
	return func(c *converterConfig) {
		c.engines = engines
	}
}

// WithRecorder sets the job ledger notified after every Convert.
func WithRecorder(r Recorder) Option {
	return func(c *converterConfig) {
		c.recorder = r
	}
}

// WithClock sets the time source used for naming and job timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *converterConfig) {
		c.clock = now
	}
}

// WithAssetPath sets a custom directory for builtin engine styles and
// EPUB templates. Missing assets fall back to the embedded defaults.
func WithAssetPath(path string) Option {
	return func(c *converterConfig) {
		c.assetPath = path
	}
}
