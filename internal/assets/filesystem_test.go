package assets

// Notes:
// - Symlink escapes are checked on unix-like systems only; creating
//   symlinks on Windows needs extra privileges.

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeAsset(t *testing.T, base, rel, content string) {
	t.Helper()
	p := filepath.Join(base, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func openLoader(t *testing.T, dir string) *FilesystemLoader {
	t.Helper()
	loader, err := NewFilesystemLoader(dir)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error = %v", err)
	}
	t.Cleanup(func() { _ = loader.Close() })
	return loader
}

func TestNewFilesystemLoader_InvalidPaths(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file.txt")
	writeAsset(t, filepath.Dir(file), "file.txt", "x")

	for name, path := range map[string]string{
		"empty":     "",
		"missing":   filepath.Join(t.TempDir(), "nope"),
		"not a dir": file,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewFilesystemLoader(path); !errors.Is(err, ErrInvalidBasePath) {
				t.Errorf("error = %v, want ErrInvalidBasePath", err)
			}
		})
	}
}

func TestFilesystemLoader_Loads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeAsset(t, dir, "styles/large.css", "body { font-size: 1.4em; }")
	writeAsset(t, dir, "web/upload.html", "<form>custom</form>")
	for _, tf := range templateFiles {
		writeAsset(t, dir, "epub/plain/"+tf.file, "<!-- "+tf.file+" -->")
	}

	loader := openLoader(t, dir)
	abs, _ := filepath.Abs(dir)
	if loader.Dir() != abs {
		t.Errorf("Dir() = %q, want %q", loader.Dir(), abs)
	}

	if css, err := loader.LoadStyle("large"); err != nil || css != "body { font-size: 1.4em; }" {
		t.Errorf("LoadStyle() = %q, %v", css, err)
	}
	if page, err := loader.LoadPage("upload"); err != nil || page != "<form>custom</form>" {
		t.Errorf("LoadPage() = %q, %v", page, err)
	}
	if ts, err := loader.LoadTemplateSet("plain"); err != nil || ts.Package != "<!-- content.opf -->" {
		t.Errorf("LoadTemplateSet() = %+v, %v", ts, err)
	}
}

func TestFilesystemLoader_NotFound(t *testing.T) {
	t.Parallel()

	loader := openLoader(t, t.TempDir())

	if _, err := loader.LoadStyle("missing"); !errors.Is(err, ErrStyleNotFound) {
		t.Errorf("LoadStyle() error = %v", err)
	}
	if _, err := loader.LoadPage("missing"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("LoadPage() error = %v", err)
	}
	if _, err := loader.LoadTemplateSet("missing"); !errors.Is(err, ErrTemplateSetNotFound) {
		t.Errorf("LoadTemplateSet() error = %v", err)
	}
}

func TestFilesystemLoader_SymlinkEscape(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := t.TempDir()
	writeAsset(t, outside, "secret.css", "body { secret }")

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "styles"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(outside, "secret.css"), filepath.Join(dir, "styles", "leak.css")); err != nil {
		t.Fatal(err)
	}

	_, err := openLoader(t, dir).LoadStyle("leak")
	if err == nil {
		t.Fatal("LoadStyle() read a file outside the directory")
	}
	if !errors.Is(err, ErrAssetRead) {
		t.Errorf("error = %v, want ErrAssetRead", err)
	}
}
