package assets

import (
	"embed"
	"io/fs"
	"strings"
)

//go:embed styles epub web
var embedded embed.FS

// EmbeddedLoader serves the assets compiled into the binary.
type EmbeddedLoader struct {
	fsLoader
}

// NewEmbeddedLoader creates an EmbeddedLoader.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{fsLoader{fsys: embedded}}
}

// Styles returns the names of the embedded stylesheets.
func (e *EmbeddedLoader) Styles() []string {
	entries, err := fs.ReadDir(e.fsys, "styles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), ".css"); ok {
			names = append(names, name)
		}
	}
	return names
}

var _ AssetLoader = (*EmbeddedLoader)(nil)
