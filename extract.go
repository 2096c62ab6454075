package doc2pub

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alnah/go-doc2pub/internal/hints"
	"github.com/alnah/go-doc2pub/internal/markup"
)

// EngineExtract names the engine that reads formats through text extractors.
const EngineExtract = "extract"

var _ InterchangeEngine = (*ExtractEngine)(nil)

// Extractor is a command printing the text of a document on stdout.
type Extractor struct {
	Tool  string                      // executable name searched in PATH
	Args  func(input string) []string // arguments for one input
	Pages bool                        // output separates pages with form feeds
}

// extractors maps the formats no markup reader handles to the tools that
// read them: pdftotext from poppler for PDF, antiword for legacy Word.
var extractors = map[Format]Extractor{
	FormatPDF: {
		Tool:  "pdftotext",
		Args:  func(in string) []string { return []string{"-enc", "UTF-8", "-eol", "unix", in, "-"} },
		Pages: true,
	},
	FormatDOC: {
		Tool: "antiword",
		Args: func(in string) []string { return []string{"-w", "0", in} },
	},
}

// ExtractorFor returns the extractor used for f.
func ExtractorFor(f Format) (Extractor, bool) {
	x, ok := extractors[f]
	return x, ok
}

// ExtractEngine converts PDF and DOC input by running an extractor and
// writing the text as an EPUB with the builtin writer. PDF pages become
// one chapter each; blank pages are skipped.
type ExtractEngine struct {
	paths  map[Format]string // resolved executables
	runner CommandRunner
	book   *BuiltinEngine
}

// NewExtractEngine returns an engine for the formats in paths, a map from
// format to resolved extractor executable. A nil runner uses ExecRunner.
func NewExtractEngine(paths map[Format]string, book *BuiltinEngine, runner CommandRunner) *ExtractEngine {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &ExtractEngine{paths: paths, runner: runner, book: book}
}

// LookupExtractors resolves the extractor of each format. explicit holds
// configured paths; a configured path that does not exist disables its
// format. Formats without a usable tool are left out.
func LookupExtractors(explicit map[Format]string) map[Format]string {
	found := make(map[Format]string)
	for f, x := range extractors {
		if p := explicit[f]; p != "" {
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				found[f] = p
			}
			continue
		}
		if p, err := exec.LookPath(x.Tool); err == nil {
			found[f] = p
		}
	}
	return found
}

func (e *ExtractEngine) Name() string { return EngineExtract }

func (e *ExtractEngine) Supports(f Format) bool {
	_, ok := e.paths[f]
	return ok
}

// Tools returns the resolved extractor executables by format.
func (e *ExtractEngine) Tools() map[Format]string {
	out := make(map[Format]string, len(e.paths))
	for f, p := range e.paths {
		out[f] = p
	}
	return out
}

func (e *ExtractEngine) ToInterchange(ctx context.Context, req InterchangeRequest) error {
	path, ok := e.paths[req.Format]
	if !ok {
		return fmt.Errorf("%w: no extractor for %s%s", ErrEngineNotFound, req.Format, hints.ForNoEngine(string(req.Format)))
	}
	x := extractors[req.Format]

	res, err := e.runner.Run(ctx, path, x.Args(req.Input)...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(strings.ReplaceAll(res.Stdout, "\f", "")) == "" {
		return fmt.Errorf("%s found no text in %s", x.Tool, req.Input)
	}

	var doc *markup.Document
	if x.Pages {
		doc, err = e.book.markup.Pages(ctx, strings.Split(res.Stdout, "\f"), req.Title)
	} else {
		doc, err = e.book.markup.Text(ctx, []byte(res.Stdout), req.Title)
	}
	if err != nil {
		return err
	}
	return e.book.write(req.Output, doc)
}
