package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-doc2pub/internal/config"
)

// envPrefix marks variables read by doc2pub.
const envPrefix = "DOC2PUB_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string // DOC2PUB_CONFIG: config file name or path
	ToolPath   string // DOC2PUB_TOOL_PATH: packaging executable
	Timeout    string // DOC2PUB_TIMEOUT: per-stage timeout

	// Tier 2 - I/O
	InputDir  string // DOC2PUB_INPUT_DIR
	OutputDir string // DOC2PUB_OUTPUT_DIR

	// Tier 3 - Extended
	DeviceProfile string // DOC2PUB_DEVICE_PROFILE: --output-profile value
	Engine        string // DOC2PUB_ENGINE: auto, pandoc, builtin
	PandocPath    string // DOC2PUB_PANDOC_PATH
	Language      string // DOC2PUB_LANGUAGE: book language tag
	Workers       int    // DOC2PUB_WORKERS: parallel conversions
	HistoryPath   string // DOC2PUB_HISTORY_PATH: job ledger location
	Addr          string // DOC2PUB_ADDR: serve listen address
	AssetPath     string // DOC2PUB_ASSET_PATH: custom styles and templates
}

// knownEnvVars lists valid DOC2PUB_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"DOC2PUB_CONFIG":    true,
	"DOC2PUB_TOOL_PATH": true,
	"DOC2PUB_TIMEOUT":   true,
	// Tier 2 - I/O
	"DOC2PUB_INPUT_DIR":  true,
	"DOC2PUB_OUTPUT_DIR": true,
	// Tier 3 - Extended
	"DOC2PUB_DEVICE_PROFILE": true,
	"DOC2PUB_ENGINE":         true,
	"DOC2PUB_PANDOC_PATH":    true,
	"DOC2PUB_LANGUAGE":       true,
	"DOC2PUB_WORKERS":        true,
	"DOC2PUB_HISTORY_PATH":   true,
	"DOC2PUB_ADDR":           true,
	"DOC2PUB_ASSET_PATH":     true,
}

// loadEnvConfig reads configuration from environment variables.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath:    getenv("DOC2PUB_CONFIG"),
		ToolPath:      getenv("DOC2PUB_TOOL_PATH"),
		Timeout:       getenv("DOC2PUB_TIMEOUT"),
		InputDir:      getenv("DOC2PUB_INPUT_DIR"),
		OutputDir:     getenv("DOC2PUB_OUTPUT_DIR"),
		DeviceProfile: getenv("DOC2PUB_DEVICE_PROFILE"),
		Engine:        getenv("DOC2PUB_ENGINE"),
		PandocPath:    getenv("DOC2PUB_PANDOC_PATH"),
		Language:      getenv("DOC2PUB_LANGUAGE"),
		HistoryPath:   getenv("DOC2PUB_HISTORY_PATH"),
		Addr:          getenv("DOC2PUB_ADDR"),
		AssetPath:     getenv("DOC2PUB_ASSET_PATH"),
	}

	// Invalid or non-positive values are ignored
	if workers := getenv("DOC2PUB_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized DOC2PUB_* variables.
// Helps catch typos like DOC2PUB_TOOLPATH instead of DOC2PUB_TOOL_PATH.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies set environment variables over the file values.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied afterwards by the command).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setIf(&cfg.Tool.Path, env.ToolPath)
	setIf(&cfg.Timeout, env.Timeout)
	setIf(&cfg.Directories.Input, env.InputDir)
	setIf(&cfg.Directories.Output, env.OutputDir)
	setIf(&cfg.Tool.DeviceProfile, env.DeviceProfile)
	setIf(&cfg.Interchange.Engine, env.Engine)
	setIf(&cfg.Interchange.PandocPath, env.PandocPath)
	setIf(&cfg.Interchange.Language, env.Language)
	setIf(&cfg.History.Path, env.HistoryPath)
	setIf(&cfg.Server.Addr, env.Addr)
	setIf(&cfg.Assets.BasePath, env.AssetPath)
	if env.Workers > 0 {
		cfg.Workers = env.Workers
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
