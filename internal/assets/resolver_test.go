package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewAssetResolver_InvalidDir(t *testing.T) {
	t.Parallel()

	_, err := NewAssetResolver(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrInvalidBasePath) {
		t.Errorf("error = %v, want ErrInvalidBasePath", err)
	}
}

func TestAssetResolver_EmbeddedOnly(t *testing.T) {
	t.Parallel()

	r, err := NewAssetResolver("")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	if r.Override() != "" {
		t.Errorf("Override() = %q, want empty", r.Override())
	}
	if _, err := r.LoadStyle(DefaultStyleName); err != nil {
		t.Errorf("LoadStyle() error = %v", err)
	}
	if _, err := r.LoadStyle("missing"); !errors.Is(err, ErrStyleNotFound) {
		t.Errorf("LoadStyle(missing) error = %v", err)
	}
}

func TestAssetResolver_OverrideFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeAsset(t, dir, "styles/default.css", "body { custom }")

	r, err := NewAssetResolver(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	if r.Override() == "" {
		t.Error("Override() empty with a directory configured")
	}

	css, err := r.LoadStyle("default")
	if err != nil || css != "body { custom }" {
		t.Errorf("LoadStyle(default) = %q, %v; want override", css, err)
	}

	// Not in the override: embedded answers.
	css, err = r.LoadStyle("serif")
	if err != nil || !strings.Contains(css, "body") {
		t.Errorf("LoadStyle(serif) = %q, %v; want embedded", css, err)
	}
	if _, err := r.LoadTemplateSet(DefaultTemplateSetName); err != nil {
		t.Errorf("LoadTemplateSet() error = %v", err)
	}
	if _, err := r.LoadPage(UploadPageName); err != nil {
		t.Errorf("LoadPage() error = %v", err)
	}
}

func TestAssetResolver_BrokenOverrideDoesNotFallBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeAsset(t, dir, "epub/default/container.xml", "<container/>")

	r, err := NewAssetResolver(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	_, err = r.LoadTemplateSet(DefaultTemplateSetName)
	if !errors.Is(err, ErrIncompleteTemplateSet) {
		t.Errorf("error = %v, want ErrIncompleteTemplateSet", err)
	}
}

func TestAssetResolver_UnreadableOverride(t *testing.T) {
	t.Parallel()

	if os.Getuid() == 0 {
		t.Skip("root reads everything")
	}

	dir := t.TempDir()
	writeAsset(t, dir, "styles/default.css", "body {}")
	p := filepath.Join(dir, "styles", "default.css")
	if err := os.Chmod(p, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(p, 0o644) })

	r, err := NewAssetResolver(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	if _, err := r.LoadStyle("default"); !errors.Is(err, ErrAssetRead) {
		t.Errorf("error = %v, want ErrAssetRead", err)
	}
}
