package doc2pub

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alnah/go-doc2pub/internal/dateutil"
)

// Engine selection for Stage 1.
const (
	EngineAuto    = "auto"
	EnginePandoc  = "pandoc"
	EngineBuiltin = "builtin"
)

// Default values used by DefaultConfig.
const (
	DefaultInputDir      = "input"
	DefaultOutputDir     = "output"
	DefaultDeviceProfile = "kindle"
	DefaultPackageFormat = "mobi"
	DefaultExtension     = ".pub"
)

var (
	labelPattern    = regexp.MustCompile(`^\.?[A-Za-z0-9]{1,16}$`)
	languagePattern = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{1,8})*$`)
)

// Config holds the pipeline settings fixed at construction.
type Config struct {
	InputDir  string // Fallback location for bare input names
	OutputDir string // Created on first use; "" = current directory

	ToolPath      string // Explicit packaging tool; "" = search
	DeviceProfile string // --output-profile value
	PackageFormat string // Extension the packaging tool writes, without dot
	ExtraArgs     []string

	Engine       string // EngineAuto, EnginePandoc or EngineBuiltin
	PandocPath   string // "" = search PATH
	ExtractMedia bool   // Extract embedded media next to the interchange
	Style        string // Builtin engine stylesheet name
	Language     string // Builtin engine book language; "" = en

	PDFToTextPath string // PDF text extractor; "" = search PATH
	AntiwordPath  string // DOC text extractor; "" = search PATH

	OutputExtension string // Label applied to the final artifact
	RetainOnFailure bool   // Keep the interchange when Stage 2 fails
	UniqueNames     bool   // Add _N suffixes instead of overwriting
	TimestampFormat string // Naming timestamp; "" = dateutil default
}

// DefaultConfig returns the settings used by the CLI when nothing is configured.
func DefaultConfig() Config {
	return Config{
		InputDir:        DefaultInputDir,
		OutputDir:       DefaultOutputDir,
		DeviceProfile:   DefaultDeviceProfile,
		PackageFormat:   DefaultPackageFormat,
		Engine:          EngineAuto,
		ExtractMedia:    true,
		Style:           "default",
		OutputExtension: DefaultExtension,
		RetainOnFailure: true,
		UniqueNames:     true,
		TimestampFormat: dateutil.DefaultTimestampFormat,
	}
}

// Validate checks the fields NewConverter depends on.
//
// This is a TRUST BOUNDARY for library users who build Config manually.
// CLI users have their file validated earlier by config.Validate.
func (c Config) Validate() error {
	if c.DeviceProfile == "" || strings.ContainsAny(c.DeviceProfile, " \t/\\") {
		return fmt.Errorf("%w: device profile %q", ErrInvalidConfig, c.DeviceProfile)
	}
	if !labelPattern.MatchString(c.PackageFormat) {
		return fmt.Errorf("%w: package format %q", ErrInvalidConfig, c.PackageFormat)
	}
	if !labelPattern.MatchString(c.OutputExtension) {
		return fmt.Errorf("%w: output extension %q", ErrInvalidConfig, c.OutputExtension)
	}
	switch c.Engine {
	case "", EngineAuto, EnginePandoc, EngineBuiltin:
	default:
		return fmt.Errorf("%w: engine %q", ErrInvalidConfig, c.Engine)
	}
	if c.Language != "" && !languagePattern.MatchString(c.Language) {
		return fmt.Errorf("%w: language %q", ErrInvalidConfig, c.Language)
	}
	if _, err := dateutil.ParseTimestampFormat(c.timestampPattern()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, arg := range c.ExtraArgs {
		if arg == "" {
			return fmt.Errorf("%w: empty extra argument", ErrInvalidConfig)
		}
	}
	return nil
}

func (c Config) packageExt() string {
	return "." + strings.TrimLeft(c.PackageFormat, ".")
}

func (c Config) timestampPattern() string {
	if c.TimestampFormat == "" {
		return dateutil.DefaultTimestampFormat
	}
	return c.TimestampFormat
}
