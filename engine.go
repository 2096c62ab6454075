package doc2pub

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-doc2pub/internal/assets"
	"github.com/alnah/go-doc2pub/internal/epub"
	"github.com/alnah/go-doc2pub/internal/hints"
	"github.com/alnah/go-doc2pub/internal/markup"
)

// Compile-time interface implementation checks.
var (
	_ InterchangeEngine = (*PandocEngine)(nil)
	_ InterchangeEngine = (*BuiltinEngine)(nil)
	_ Locator           = (*ToolLocator)(nil)
	_ CommandRunner     = (*ExecRunner)(nil)
)

// InterchangeRequest describes one Stage 1 conversion.
type InterchangeRequest struct {
	Input    string
	Format   Format
	Output   string // EPUB file to create
	MediaDir string // Directory for extracted media; "" = none
	Title    string // Used when the source has no title of its own
}

// InterchangeEngine converts a source document to the EPUB interchange.
type InterchangeEngine interface {
	Name() string
	Supports(f Format) bool
	ToInterchange(ctx context.Context, req InterchangeRequest) error
}

// pandocReaders maps formats to pandoc reader names.
// Plain text is read as markdown, which pandoc treats as paragraphs.
var pandocReaders = map[Format]string{
	FormatMarkdown:     "markdown",
	FormatMarkdownLong: "markdown",
	FormatTXT:          "markdown",
	FormatHTML:         "html",
	FormatDOCX:         "docx",
	FormatEPUB:         "epub",
}

// PandocEngine runs the pandoc executable.
type PandocEngine struct {
	Path   string
	Runner CommandRunner
}

// NewPandocEngine returns an engine running pandoc at path.
// A nil runner uses ExecRunner.
func NewPandocEngine(path string, runner CommandRunner) *PandocEngine {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &PandocEngine{Path: path, Runner: runner}
}

// LookupPandoc resolves the pandoc binary: explicit path first, then PATH.
func LookupPandoc(explicit string) (string, error) {
	if explicit != "" {
		if info, err := os.Stat(explicit); err == nil && !info.IsDir() {
			return explicit, nil
		}
		return "", fmt.Errorf("%w: pandoc not found at %s%s", ErrEngineNotFound, explicit, hints.ForPandocMissing())
	}
	path, err := exec.LookPath("pandoc")
	if err != nil {
		return "", fmt.Errorf("%w: pandoc not found in PATH%s", ErrEngineNotFound, hints.ForPandocMissing())
	}
	return path, nil
}

func (e *PandocEngine) Name() string { return EnginePandoc }

func (e *PandocEngine) Supports(f Format) bool {
	_, ok := pandocReaders[f]
	return ok
}

func (e *PandocEngine) ToInterchange(ctx context.Context, req InterchangeRequest) error {
	args := []string{req.Input, "-f", pandocReaders[req.Format], "-t", "epub", "-o", req.Output}
	if req.MediaDir != "" {
		args = append(args, "--extract-media="+req.MediaDir)
	}
	_, err := e.Runner.Run(ctx, e.Path, args...)
	return err
}

// BuiltinEngine writes EPUB 3 packages without external tools. It reads
// markdown, plain text, HTML and DOCX, and copies EPUB input unchanged.
type BuiltinEngine struct {
	markup    *markup.Converter
	templates *assets.TemplateSet
	style     string
	language  string
	now       func() time.Time
}

// NewBuiltinEngine returns an engine using the embedded templates and the
// named stylesheet.
func NewBuiltinEngine(style string) (*BuiltinEngine, error) {
	return newBuiltinEngine(assets.NewEmbeddedLoader(), style, "")
}

func newBuiltinEngine(loader assets.AssetLoader, style, language string) (*BuiltinEngine, error) {
	if style == "" {
		style = assets.DefaultStyleName
	}
	css, err := loader.LoadStyle(style)
	if err != nil {
		return nil, fmt.Errorf("loading style %q: %w", style, err)
	}
	ts, err := loader.LoadTemplateSet(assets.DefaultTemplateSetName)
	if err != nil {
		return nil, fmt.Errorf("loading EPUB templates: %w", err)
	}
	return &BuiltinEngine{
		markup:    markup.NewConverter(),
		templates: ts,
		style:     css,
		language:  language,
		now:       time.Now,
	}, nil
}

func (e *BuiltinEngine) Name() string { return EngineBuiltin }

func (e *BuiltinEngine) Supports(f Format) bool {
	switch f {
	case FormatMarkdown, FormatMarkdownLong, FormatTXT, FormatHTML, FormatDOCX, FormatEPUB:
		return true
	}
	return false
}

func (e *BuiltinEngine) ToInterchange(ctx context.Context, req InterchangeRequest) error {
	if req.Format == FormatEPUB {
		return copyFile(req.Input, req.Output)
	}

	doc, err := e.read(ctx, req)
	if err != nil {
		return err
	}
	return e.write(req.Output, doc)
}

// write packages doc as an EPUB at output.
func (e *BuiltinEngine) write(output string, doc *markup.Document) error {
	book := &epub.Book{
		Identifier: uuid.NewString(),
		Title:      doc.Title,
		Language:   e.language,
		Modified:   e.now(),
		Style:      e.style,
	}
	for _, ch := range doc.Chapters {
		book.Chapters = append(book.Chapters, epub.Chapter{Title: ch.Title, Body: ch.Body})
	}
	for _, img := range doc.Images {
		book.Resources = append(book.Resources, epub.Resource{
			Href:      img.Href,
			Source:    img.Source,
			MediaType: img.MediaType,
		})
	}
	return epub.WriteFile(output, book, e.templates)
}

func (e *BuiltinEngine) read(ctx context.Context, req InterchangeRequest) (*markup.Document, error) {
	if req.Format == FormatDOCX {
		return e.markup.DOCX(ctx, req.Input, req.Title)
	}

	src, err := os.ReadFile(req.Input) // #nosec G304 -- resolved input path
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	dir := filepath.Dir(req.Input)

	switch req.Format {
	case FormatMarkdown, FormatMarkdownLong:
		return e.markup.Markdown(ctx, src, dir, req.Title)
	case FormatTXT:
		return e.markup.Text(ctx, src, req.Title)
	case FormatHTML:
		return e.markup.HTML(ctx, src, dir, req.Title)
	default:
		return nil, fmt.Errorf("%w: builtin engine cannot read %s", ErrEngineNotFound, req.Format)
	}
}

// copyFile copies src to dst, removing dst if the copy fails.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src) // #nosec G304 -- resolved input path
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 -- planned output path
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
