package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alnah/go-doc2pub/internal/dateutil"
	"github.com/alnah/go-doc2pub/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrConfigInvalid   = errors.New("invalid config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
)

// DefaultName is the config name searched when --config is not given.
const DefaultName = "doc2pub"

// appDirName is the per-user config and cache subdirectory.
const appDirName = "go-doc2pub"

// Field length limits.
const (
	MaxPathLength    = 4096
	MaxProfileLength = 40 // calibre output profile, e.g. "kindle_pw3"
	MaxArgLength     = 256
	MaxExtraArgs     = 32
	MaxWorkers       = 32
	MaxUploadMB      = 1024
)

// Engine names for the interchange stage.
const (
	EngineAuto    = "auto"
	EnginePandoc  = "pandoc"
	EngineBuiltin = "builtin"
)

var (
	extensionPattern = regexp.MustCompile(`^\.?[A-Za-z0-9]{1,16}$`)
	profilePattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	languagePattern  = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{1,8})*$`)
)

// Config holds all configuration for document conversion.
type Config struct {
	Directories DirectoriesConfig `yaml:"directories"`
	Tool        ToolConfig        `yaml:"tool"`
	Interchange InterchangeConfig `yaml:"interchange"`
	Output      OutputConfig      `yaml:"output"`
	Naming      NamingConfig      `yaml:"naming"`
	Timeout     string            `yaml:"timeout"` // Go duration, e.g. "2m"; empty = library default
	Workers     int               `yaml:"workers"` // 0 = auto
	History     HistoryConfig     `yaml:"history"`
	Server      ServerConfig      `yaml:"server"`
	Assets      AssetsConfig      `yaml:"assets"`
}

// DirectoriesConfig defines the shared input and output locations.
type DirectoriesConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// ToolConfig defines the device packaging tool invocation.
type ToolConfig struct {
	Path          string   `yaml:"path"`          // Empty = search well-known locations and PATH
	DeviceProfile string   `yaml:"deviceProfile"` // --output-profile value
	PackageFormat string   `yaml:"packageFormat"` // Extension the tool writes, e.g. "mobi"
	ExtraArgs     []string `yaml:"extraArgs"`
}

// InterchangeConfig defines how the EPUB interchange artifact is produced.
type InterchangeConfig struct {
	Engine       string `yaml:"engine"` // "auto", "pandoc", "builtin"
	PandocPath   string `yaml:"pandocPath"`
	ExtractMedia bool   `yaml:"extractMedia"`
	Style        string `yaml:"style"`    // Builtin engine stylesheet name
	Language     string `yaml:"language"` // BCP 47 tag written into the book, e.g. "fr" or "pt-BR"

	// Text extractors for formats no markup engine reads. Empty = search PATH.
	PDFToTextPath string `yaml:"pdftotextPath"`
	AntiwordPath  string `yaml:"antiwordPath"`
}

// OutputConfig defines the final artifact.
type OutputConfig struct {
	Extension       string `yaml:"extension"`       // Label applied to the packaged file
	RetainOnFailure bool   `yaml:"retainOnFailure"` // Keep interchange when packaging fails
}

// NamingConfig defines output file naming.
type NamingConfig struct {
	TimestampFormat string `yaml:"timestampFormat"`
	Unique          bool   `yaml:"unique"`
}

// HistoryConfig defines the job ledger.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // Empty = user cache directory
}

// ServerConfig defines the upload front end.
type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	MaxUploadMB       int      `yaml:"maxUploadMB"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Directories: DirectoriesConfig{Input: "input", Output: "output"},
		Tool: ToolConfig{
			DeviceProfile: "kindle",
			PackageFormat: "mobi",
		},
		Interchange: InterchangeConfig{
			Engine:       EngineAuto,
			ExtractMedia: true,
			Style:        "default",
			Language:     "en",
		},
		Output: OutputConfig{Extension: ".pub", RetainOnFailure: true},
		Naming: NamingConfig{
			TimestampFormat: dateutil.DefaultTimestampFormat,
			Unique:          true,
		},
		Timeout: "5m",
		History: HistoryConfig{Enabled: true},
		Server: ServerConfig{
			Addr:              "127.0.0.1:5000",
			MaxUploadMB:       16,
			AllowedExtensions: []string{".pdf", ".docx", ".txt", ".md", ".html", ".epub"},
		},
	}
}

// TimeoutDuration returns the parsed timeout, or 0 when unset.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks value ranges and formats.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually (e.g., env overrides, library users).
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"directories.input":         c.Directories.Input,
		"directories.output":        c.Directories.Output,
		"tool.path":                 c.Tool.Path,
		"interchange.pandocPath":    c.Interchange.PandocPath,
		"interchange.pdftotextPath": c.Interchange.PDFToTextPath,
		"interchange.antiwordPath":  c.Interchange.AntiwordPath,
		"history.path":              c.History.Path,
		"assets.basePath":           c.Assets.BasePath,
	} {
		if err := validateFieldLength(name, value, MaxPathLength); err != nil {
			return err
		}
	}

	if err := validation.ValidateStruct(&c.Tool,
		validation.Field(&c.Tool.DeviceProfile,
			validation.Required,
			validation.Length(1, MaxProfileLength),
			validation.Match(profilePattern),
		),
		validation.Field(&c.Tool.PackageFormat,
			validation.Required,
			validation.Match(extensionPattern),
		),
		validation.Field(&c.Tool.ExtraArgs,
			validation.Length(0, MaxExtraArgs),
			validation.Each(validation.Required, validation.Length(1, MaxArgLength)),
		),
	); err != nil {
		return fmt.Errorf("%w: tool: %v", ErrConfigInvalid, err)
	}

	if err := validation.ValidateStruct(&c.Interchange,
		validation.Field(&c.Interchange.Engine,
			validation.Required,
			validation.In(EngineAuto, EnginePandoc, EngineBuiltin),
		),
		validation.Field(&c.Interchange.Style, validation.Length(0, 64)),
		validation.Field(&c.Interchange.Language,
			validation.Length(0, 35),
			validation.Match(languagePattern).Error("must be a language tag such as en or pt-BR"),
		),
	); err != nil {
		return fmt.Errorf("%w: interchange: %v", ErrConfigInvalid, err)
	}

	if err := validation.ValidateStruct(&c.Output,
		validation.Field(&c.Output.Extension,
			validation.Required,
			validation.Match(extensionPattern),
		),
	); err != nil {
		return fmt.Errorf("%w: output: %v", ErrConfigInvalid, err)
	}

	if err := validation.ValidateStruct(&c.Naming,
		validation.Field(&c.Naming.TimestampFormat,
			validation.Required,
			validation.By(validTimestampFormat),
		),
	); err != nil {
		return fmt.Errorf("%w: naming: %v", ErrConfigInvalid, err)
	}

	if err := validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.By(validDuration)),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(MaxWorkers)),
	); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Addr, validation.Required),
		validation.Field(&c.Server.MaxUploadMB, validation.Min(1), validation.Max(MaxUploadMB)),
		validation.Field(&c.Server.AllowedExtensions,
			validation.Required,
			validation.Each(validation.Match(extensionPattern)),
		),
	); err != nil {
		return fmt.Errorf("%w: server: %v", ErrConfigInvalid, err)
	}

	return nil
}

func validTimestampFormat(value any) error {
	s, _ := value.(string)
	_, err := dateutil.ParseTimestampFormat(s)
	return err
}

func validDuration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.New("must be a duration such as 90s or 5m")
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Values absent from the file keep their DefaultConfig value.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.DecodeFile(configPath, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultHistoryPath returns the ledger location under the user cache directory.
func DefaultHistoryPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache directory: %w", err)
	}
	return filepath.Join(dir, appDirName, "history.db"), nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-doc2pub/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDirName, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
