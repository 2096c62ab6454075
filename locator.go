package doc2pub

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/alnah/go-doc2pub/internal/hints"
)

// DefaultToolName is the device packaging executable shipped with Calibre.
const DefaultToolName = "ebook-convert"

// ExternalTool is a resolved packaging executable.
type ExternalTool struct {
	Name      string
	Path      string
	Available bool
}

// ToolLocator finds the packaging executable on the host.
// Candidates are tried in order, then the search path.
type ToolLocator struct {
	Name       string
	Candidates []string

	// SkipSearchPath disables the PATH lookup after the candidates.
	SkipSearchPath bool

	stat     func(string) (os.FileInfo, error)
	lookPath func(string) (string, error)
}

// NewToolLocator returns a locator for name with the well-known install
// locations of the current platform.
func NewToolLocator(name string) *ToolLocator {
	if name == "" {
		name = DefaultToolName
	}
	return &ToolLocator{
		Name:       name,
		Candidates: DefaultCandidates(runtime.GOOS, name),
		stat:       os.Stat,
		lookPath:   exec.LookPath,
	}
}

// NewToolLocatorAt returns a locator that only accepts path.
func NewToolLocatorAt(path string) *ToolLocator {
	return &ToolLocator{
		Name:           path,
		Candidates:     []string{path},
		SkipSearchPath: true,
		stat:           os.Stat,
		lookPath:       exec.LookPath,
	}
}

// DefaultCandidates lists install locations of name for goos.
func DefaultCandidates(goos, name string) []string {
	switch goos {
	case "windows":
		exe := name
		if !strings.HasSuffix(strings.ToLower(exe), ".exe") {
			exe += ".exe"
		}
		return []string{
			`C:\Program Files\Calibre2\` + exe,
			`C:\Program Files (x86)\Calibre2\` + exe,
			`C:\Program Files\Calibre\` + exe,
		}
	case "darwin":
		return []string{
			"/Applications/calibre.app/Contents/MacOS/" + name,
			"/opt/homebrew/bin/" + name,
			"/usr/local/bin/" + name,
		}
	default:
		return []string{
			"/usr/bin/" + name,
			"/usr/local/bin/" + name,
			"/opt/calibre/" + name,
		}
	}
}

// Locate returns the first existing candidate, falling back to the search
// path. Only filesystem presence is checked, not executability.
func (l *ToolLocator) Locate() (ExternalTool, error) {
	stat := l.stat
	if stat == nil {
		stat = os.Stat
	}
	for _, candidate := range l.Candidates {
		if info, err := stat(candidate); err == nil && !info.IsDir() {
			return ExternalTool{Name: l.Name, Path: candidate, Available: true}, nil
		}
	}

	if !l.SkipSearchPath {
		lookPath := l.lookPath
		if lookPath == nil {
			lookPath = exec.LookPath
		}
		if path, err := lookPath(l.Name); err == nil {
			return ExternalTool{Name: l.Name, Path: path, Available: true}, nil
		}
	}

	return ExternalTool{Name: l.Name}, fmt.Errorf("%w: %s (searched %s)%s",
		ErrToolNotFound, l.Name, l.searched(), hints.ForToolNotFound(l.Name))
}

func (l *ToolLocator) searched() string {
	places := append([]string(nil), l.Candidates...)
	if !l.SkipSearchPath {
		places = append(places, "PATH")
	}
	return strings.Join(places, ", ")
}
