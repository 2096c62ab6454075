package doc2pub

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPandocEngine(t *testing.T) {
	t.Parallel()

	t.Run("arguments", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{}
		e := NewPandocEngine("/usr/bin/pandoc", runner)
		err := e.ToInterchange(context.Background(), InterchangeRequest{
			Input:    "in/a.docx",
			Format:   FormatDOCX,
			Output:   "out/a.epub",
			MediaDir: "out/a_media",
		})
		if err != nil {
			t.Fatalf("ToInterchange() error = %v", err)
		}
		want := "/usr/bin/pandoc in/a.docx -f docx -t epub -o out/a.epub --extract-media=out/a_media"
		if got := strings.Join(runner.calls[0], " "); got != want {
			t.Errorf("call = %q, want %q", got, want)
		}
	})

	t.Run("no media dir", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{}
		e := NewPandocEngine("pandoc", runner)
		_ = e.ToInterchange(context.Background(), InterchangeRequest{Input: "a.txt", Format: FormatTXT, Output: "a.epub"})
		if got := strings.Join(runner.calls[0], " "); got != "pandoc a.txt -f markdown -t epub -o a.epub" {
			t.Errorf("call = %q", got)
		}
	})

	t.Run("supports", func(t *testing.T) {
		t.Parallel()

		e := NewPandocEngine("pandoc", nil)
		for _, f := range []Format{FormatMarkdown, FormatMarkdownLong, FormatTXT, FormatHTML, FormatDOCX, FormatEPUB} {
			if !e.Supports(f) {
				t.Errorf("Supports(%s) = false", f)
			}
		}
		for _, f := range []Format{FormatPDF, FormatDOC, FormatUnknown} {
			if e.Supports(f) {
				t.Errorf("Supports(%s) = true", f)
			}
		}
	})

	t.Run("failure passes tool error through", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{err: &ToolError{Tool: "pandoc", ExitCode: 1, Stderr: "unknown reader"}}
		e := NewPandocEngine("pandoc", runner)
		err := e.ToInterchange(context.Background(), InterchangeRequest{Input: "a.md", Format: FormatMarkdown, Output: "a.epub"})
		if toolDetail(err) != "unknown reader" {
			t.Errorf("toolDetail() = %q", toolDetail(err))
		}
	})
}

func TestLookupPandoc(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pandoc")
	if err := os.WriteFile(path, nil, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := LookupPandoc(path)
	if err != nil || got != path {
		t.Errorf("LookupPandoc(%q) = %q, %v", path, got, err)
	}

	_, err = LookupPandoc(filepath.Join(dir, "nope"))
	if !errors.Is(err, ErrEngineNotFound) {
		t.Errorf("LookupPandoc() error = %v, want ErrEngineNotFound", err)
	}
	if !strings.Contains(err.Error(), "hint:") {
		t.Errorf("error should carry a hint: %v", err)
	}
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("zip.OpenReader() error = %v", err)
	}
	defer func() { _ = zr.Close() }()

	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names
}

func TestBuiltinEngine(t *testing.T) {
	t.Parallel()

	e, err := NewBuiltinEngine("")
	if err != nil {
		t.Fatalf("NewBuiltinEngine() error = %v", err)
	}
	ctx := context.Background()

	t.Run("markdown with image", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "fig.png"), []byte("PNG"), 0o644); err != nil {
			t.Fatal(err)
		}
		input := filepath.Join(dir, "guide.md")
		src := "# Start\n\n![figure](fig.png)\n\n# End\n\ndone\n"
		if err := os.WriteFile(input, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		out := filepath.Join(dir, "guide.epub")

		err := e.ToInterchange(ctx, InterchangeRequest{Input: input, Format: FormatMarkdown, Output: out, Title: "guide"})
		if err != nil {
			t.Fatalf("ToInterchange() error = %v", err)
		}

		names := zipNames(t, out)
		if names[0] != "mimetype" {
			t.Errorf("first entry = %q, want mimetype", names[0])
		}
		joined := strings.Join(names, ",")
		for _, want := range []string{"OEBPS/chapter-001.xhtml", "OEBPS/chapter-002.xhtml", "OEBPS/images/img-001.png"} {
			if !strings.Contains(joined, want) {
				t.Errorf("entries %v missing %s", names, want)
			}
		}
	})

	t.Run("epub passthrough", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		input := filepath.Join(dir, "in.epub")
		if err := os.WriteFile(input, []byte("EPUB-BYTES"), 0o644); err != nil {
			t.Fatal(err)
		}
		out := filepath.Join(dir, "out.epub")

		if err := e.ToInterchange(ctx, InterchangeRequest{Input: input, Format: FormatEPUB, Output: out}); err != nil {
			t.Fatalf("ToInterchange() error = %v", err)
		}
		f, err := os.Open(out)
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = f.Close() }()
		got, _ := io.ReadAll(f)
		if string(got) != "EPUB-BYTES" {
			t.Errorf("copy = %q", got)
		}
	})

	t.Run("pdf unsupported", func(t *testing.T) {
		t.Parallel()

		if e.Supports(FormatPDF) || e.Supports(FormatDOC) {
			t.Error("builtin engine should not support pdf or doc")
		}
		err := e.ToInterchange(ctx, InterchangeRequest{Input: "x.pdf", Format: FormatPDF, Output: filepath.Join(t.TempDir(), "x.epub")})
		if err == nil {
			t.Error("ToInterchange(pdf) should fail")
		}
	})

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(t.TempDir(), "x.epub")
		err := e.ToInterchange(ctx, InterchangeRequest{Input: "/nonexistent/x.md", Format: FormatMarkdown, Output: out})
		if err == nil {
			t.Fatal("ToInterchange() should fail")
		}
		if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
			t.Error("no output should be written")
		}
	})
}

func TestBuiltinEngine_Language(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Engine = EngineBuiltin
	cfg.Language = "pt-BR"
	cfg.PDFToTextPath = filepath.Join(t.TempDir(), "pdftotext")
	cfg.AntiwordPath = filepath.Join(t.TempDir(), "antiword")
	engines, err := buildEngines(cfg, &fakeRunner{}, "")
	if err != nil {
		t.Fatalf("buildEngines() error = %v", err)
	}

	dir := t.TempDir()
	in := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(in, []byte("# Notas\n\nOlá."), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "notes.epub")
	if err := engines[0].ToInterchange(context.Background(), InterchangeRequest{Input: in, Format: FormatMarkdown, Output: out}); err != nil {
		t.Fatalf("ToInterchange() error = %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = zr.Close() }()
	f, err := zr.Open("OEBPS/content.opf")
	if err != nil {
		t.Fatal(err)
	}
	opf, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(opf), ">pt-BR</dc:language>") {
		t.Errorf("content.opf should declare pt-BR:\n%s", opf)
	}
}

func TestConfig_Validate_Language(t *testing.T) {
	t.Parallel()

	for _, tag := range []string{"", "en", "fr-CA", "zh-Hant-TW"} {
		cfg := DefaultConfig()
		cfg.Language = tag
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() with language %q = %v", tag, err)
		}
	}
	for _, tag := range []string{"e", "en US", "en_US", "fr-"} {
		cfg := DefaultConfig()
		cfg.Language = tag
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Validate() with language %q = %v, want ErrInvalidConfig", tag, err)
		}
	}
}
