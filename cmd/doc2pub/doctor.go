package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/assets"
	"github.com/alnah/go-doc2pub/internal/config"
	"github.com/alnah/go-doc2pub/internal/fileutil"
	"github.com/alnah/go-doc2pub/internal/hints"
)

// versionProbeTimeout bounds each --version call.
const versionProbeTimeout = 10 * time.Second

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status      string          `json:"status"` // "ready", "warnings", "errors"
	Tool        toolInfo        `json:"tool"`
	Pandoc      toolInfo        `json:"pandoc"`
	Extractors  []extractorInfo `json:"extractors"`
	Engine      string          `json:"engine"`
	Directories directoriesInfo `json:"directories"`
	History     historyInfo     `json:"history"`
	Assets      assetsInfo      `json:"assets"`
	Env         envInfo         `json:"environment"`
	Warnings    []string        `json:"warnings,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
}

// toolInfo holds executable detection results.
type toolInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// extractorInfo holds the text extractor of one input format.
type extractorInfo struct {
	Format string `json:"format"`
	Tool   string `json:"tool"`
	Found  bool   `json:"found"`
	Path   string `json:"path,omitempty"`
}

// directoriesInfo holds input and output directory checks.
type directoriesInfo struct {
	Input          string `json:"input"`
	InputExists    bool   `json:"input_exists"`
	Output         string `json:"output"`
	OutputWritable bool   `json:"output_writable"`
}

// historyInfo holds job ledger checks.
type historyInfo struct {
	Enabled  bool   `json:"enabled"`
	Path     string `json:"path,omitempty"`
	OK       bool   `json:"ok"`
	Retained int    `json:"retained"`
}

// assetsInfo holds stylesheet and template checks.
type assetsInfo struct {
	Override string   `json:"override,omitempty"`
	Style    string   `json:"style"`
	Builtin  []string `json:"builtin_styles"`
	OK       bool     `json:"ok"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if code := exitCodeFor(err); code != ExitSuccess {
			fmt.Fprintln(env.Stderr, err)
			return code
		}
		return ExitSuccess
	}

	cfg, err := resolveConfig(flags.common, env, nil)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitFailure
	}

	result := runDoctor(context.Background(), cfg, env)

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitFailure
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg *config.Config, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Engine: cfg.Interchange.Engine,
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	checkTool(ctx, result, cfg, env.Runner)
	checkPandoc(ctx, result, cfg, env.Runner)
	checkExtractors(result, cfg)
	checkDirectories(result, cfg)
	checkHistory(ctx, result, cfg)
	checkAssets(result, cfg)
	checkEnvironment(result, env.Getenv)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}

	return result
}

// checkTool locates the packaging executable and asks for its version.
func checkTool(ctx context.Context, result *doctorResult, cfg *config.Config, runner doc2pub.CommandRunner) {
	locator := doc2pub.NewToolLocator(doc2pub.DefaultToolName)
	if cfg.Tool.Path != "" {
		locator = doc2pub.NewToolLocatorAt(cfg.Tool.Path)
	}

	tool, err := locator.Locate()
	if err != nil {
		result.Errors = append(result.Errors, firstLine(err.Error())+
			". Install Calibre from "+hints.CalibreDownloadURL+" or set tool.path")
		return
	}
	result.Tool = toolInfo{Found: true, Path: tool.Path}

	if version, err := toolVersion(ctx, runner, tool.Path); err == nil {
		result.Tool.Version = version
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get %s version: %v", filepath.Base(tool.Path), err))
	}
}

// checkPandoc resolves the optional pandoc engine.
func checkPandoc(ctx context.Context, result *doctorResult, cfg *config.Config, runner doc2pub.CommandRunner) {
	path, err := doc2pub.LookupPandoc(cfg.Interchange.PandocPath)
	if err != nil {
		switch cfg.Interchange.Engine {
		case config.EnginePandoc:
			result.Errors = append(result.Errors, "pandoc not found but interchange.engine is pandoc")
		case config.EngineAuto:
			result.Warnings = append(result.Warnings,
				"pandoc not found: the builtin engine handles md, txt, html, docx and epub")
		}
		return
	}
	result.Pandoc = toolInfo{Found: true, Path: path}
	if version, err := toolVersion(ctx, runner, path); err == nil {
		result.Pandoc.Version = version
	}
}

// checkExtractors resolves the tools reading pdf and doc input.
func checkExtractors(result *doctorResult, cfg *config.Config) {
	found := doc2pub.LookupExtractors(map[doc2pub.Format]string{
		doc2pub.FormatPDF: cfg.Interchange.PDFToTextPath,
		doc2pub.FormatDOC: cfg.Interchange.AntiwordPath,
	})
	for _, f := range []doc2pub.Format{doc2pub.FormatPDF, doc2pub.FormatDOC} {
		x, _ := doc2pub.ExtractorFor(f)
		info := extractorInfo{Format: string(f), Tool: x.Tool, Path: found[f]}
		info.Found = info.Path != ""
		if !info.Found {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s not found: %s inputs cannot be converted", x.Tool, f))
		}
		result.Extractors = append(result.Extractors, info)
	}
}

// checkDirectories verifies the input directory and output writability.
func checkDirectories(result *doctorResult, cfg *config.Config) {
	d := &result.Directories
	d.Input = cfg.Directories.Input
	d.Output = cfg.Directories.Output

	d.InputExists = fileutil.DirExists(d.Input)
	if !d.InputExists {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Input directory %s does not exist yet", d.Input))
	}

	if err := fileutil.EnsureDir(d.Output); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Output directory not usable: %v", err))
		return
	}
	tmp, err := os.CreateTemp(d.Output, ".doc2pub-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Output directory not writable: %s", d.Output))
		return
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())
	d.OutputWritable = true
}

// checkHistory opens the job ledger and counts retained artifacts.
func checkHistory(ctx context.Context, result *doctorResult, cfg *config.Config) {
	h := &result.History
	h.Enabled = cfg.History.Enabled
	if !h.Enabled {
		return
	}

	path, err := historyPath(cfg)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("History unavailable: %v", err))
		return
	}
	h.Path = path

	store, err := openHistory(cfg)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("History unavailable: %v", err))
		return
	}
	defer func() { _ = store.Close() }()
	h.OK = true

	retained, err := store.Retained(ctx)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Reading history: %v", err))
		return
	}
	h.Retained = len(retained)
	if h.Retained > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d retained interchange artifact(s); run 'doc2pub history --retained'", h.Retained))
	}
}

// checkAssets loads the configured stylesheet and EPUB templates the way
// the builtin engine does.
func checkAssets(result *doctorResult, cfg *config.Config) {
	a := &result.Assets
	a.Style = cfg.Interchange.Style
	if a.Style == "" {
		a.Style = assets.DefaultStyleName
	}
	a.Builtin = assets.NewEmbeddedLoader().Styles()

	resolver, err := assets.NewAssetResolver(cfg.Assets.BasePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Asset directory: %v", err))
		return
	}
	defer func() { _ = resolver.Close() }()
	a.Override = resolver.Override()

	if _, err := resolver.LoadStyle(a.Style); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Style %q: %v (builtin: %s)",
			a.Style, err, strings.Join(a.Builtin, ", ")))
		return
	}
	if _, err := resolver.LoadTemplateSet(assets.DefaultTemplateSetName); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("EPUB templates: %v", err))
		return
	}
	a.OK = true
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, getenv func(string) string) {
	result.Env.Container, result.Env.ContainerHint = isContainer(getenv)

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

func toolVersion(ctx context.Context, runner doc2pub.CommandRunner, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	res, err := runner.Run(ctx, path, "--version")
	if err != nil {
		return "", err
	}
	return firstLine(res.Stdout), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "doc2pub doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Packaging tool")
	printToolInfo(w, r.Tool, "[ERROR]")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Interchange (engine: %s)\n", r.Engine)
	if r.Pandoc.Found {
		printToolInfo(w, r.Pandoc, "")
	} else {
		fmt.Fprintln(w, "  [WARN] pandoc: not found")
	}
	fmt.Fprintln(w, "  [OK] builtin: md, txt, html, docx, epub")
	for _, x := range r.Extractors {
		if x.Found {
			fmt.Fprintf(w, "  [OK] %s (%s): %s\n", x.Tool, x.Format, x.Path)
		} else {
			fmt.Fprintf(w, "  [WARN] %s (%s): not found\n", x.Tool, x.Format)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Directories")
	if r.Directories.InputExists {
		fmt.Fprintf(w, "  [OK] Input: %s\n", r.Directories.Input)
	} else {
		fmt.Fprintf(w, "  [WARN] Input: %s (missing)\n", r.Directories.Input)
	}
	if r.Directories.OutputWritable {
		fmt.Fprintf(w, "  [OK] Output: %s (writable)\n", r.Directories.Output)
	} else {
		fmt.Fprintf(w, "  [ERROR] Output: %s (not writable)\n", r.Directories.Output)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "History")
	switch {
	case !r.History.Enabled:
		fmt.Fprintln(w, "  [OK] Disabled")
	case r.History.OK:
		fmt.Fprintf(w, "  [OK] %s (%d retained)\n", r.History.Path, r.History.Retained)
	default:
		fmt.Fprintln(w, "  [WARN] Unavailable")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Assets")
	switch {
	case r.Assets.OK && r.Assets.Override != "":
		fmt.Fprintf(w, "  [OK] Style %s (override: %s)\n", r.Assets.Style, r.Assets.Override)
	case r.Assets.OK:
		fmt.Fprintf(w, "  [OK] Style %s (embedded)\n", r.Assets.Style)
	default:
		fmt.Fprintf(w, "  [ERROR] Style %s\n", r.Assets.Style)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to convert")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

func printToolInfo(w io.Writer, t toolInfo, missing string) {
	if !t.Found {
		fmt.Fprintf(w, "  %s Not found\n", missing)
		return
	}
	fmt.Fprintf(w, "  [OK] Found at %s\n", t.Path)
	if t.Version != "" {
		fmt.Fprintf(w, "  [OK] Version: %s\n", t.Version)
	}
}
