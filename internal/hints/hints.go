// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-doc2pub/internal/fileutil"
)

// CalibreDownloadURL is where the packaging tool can be installed from.
const CalibreDownloadURL = "https://calibre-ebook.com/download"

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForToolNotFound returns installation guidance for the packaging tool.
// Inside containers the distribution package is suggested as well.
func ForToolNotFound(name string) string {
	hints := []string{"install Calibre from " + CalibreDownloadURL}

	if IsInContainer() {
		hints = append(hints, "in Docker, apt-get install -y calibre")
	}
	if os.Getenv("DOC2PUB_TOOL_PATH") == "" {
		hints = append(hints, "or set DOC2PUB_TOOL_PATH to the "+name+" executable")
	}

	return formatHints(hints)
}

// ForPandocMissing returns hints when no interchange engine handles a format.
func ForPandocMissing() string {
	return format("install pandoc from https://pandoc.org/installing.html or set interchange.engine: builtin for md/txt/html/docx")
}

// ForNoEngine names the tool that reads an input format when no engine
// accepts it.
func ForNoEngine(inputFormat string) string {
	switch inputFormat {
	case "pdf":
		return format("install pdftotext (poppler-utils) or set interchange.pdftotextPath")
	case "doc":
		return format("install antiword or set interchange.antiwordPath, or save the file as .docx")
	default:
		return ForPandocMissing()
	}
}

// ForRetainedInterchange points the operator at a kept interchange artifact.
func ForRetainedInterchange(path string) string {
	if path == "" {
		return ""
	}
	return format("interchange kept at " + path + "; inspect it or remove it after diagnosis")
}

// ForTimeout returns a hint about increasing timeout for slow operations.
func ForTimeout() string {
	return format("for large documents, use --timeout flag")
}

// ForUnsupportedFormat lists accepted extensions.
func ForUnsupportedFormat(extensions []string) string {
	if len(extensions) == 0 {
		return ""
	}
	return format("supported: " + strings.Join(extensions, ", "))
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-doc2pub/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, "go-doc2pub") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForListInputs points at the input listing when no file was named.
func ForListInputs() string {
	return format("run 'doc2pub list' to see the input directory, or 'doc2pub -i' to pick interactively")
}

// ForDoctor suggests the environment check.
func ForDoctor() string {
	return format("run 'doc2pub doctor' to check the installation")
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
