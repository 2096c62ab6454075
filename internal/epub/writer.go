package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/alnah/go-doc2pub/internal/assets"
)

// MediaType is the content of the mimetype entry.
const MediaType = "application/epub+zip"

// Sentinel errors for package writing.
var (
	ErrNoChapters    = errors.New("book has no chapters")
	ErrTemplate      = errors.New("EPUB template error")
	ErrMissingSource = errors.New("resource source missing")
)

// Book is the content of one EPUB package.
type Book struct {
	Identifier string // UUID without the urn:uuid: prefix
	Title      string
	Language   string // BCP 47 tag; empty = "en"
	Author     string
	Modified   time.Time
	Style      string // CSS written to OEBPS/style.css
	Chapters   []Chapter
	Resources  []Resource
}

// Chapter is one XHTML content document.
type Chapter struct {
	Title string
	Body  string // XHTML fragment placed inside <body>
}

// Resource is a file copied into the package, typically an image.
type Resource struct {
	Href      string // path relative to OEBPS
	Source    string // file on disk
	MediaType string
}

// chapterEntry and resourceEntry carry the manifest IDs to the templates.
type chapterEntry struct {
	ID    string
	File  string
	Title string
}

type resourceEntry struct {
	ID        string
	Href      string
	MediaType string
}

type packageData struct {
	Identifier string
	Title      string
	Language   string
	Author     string
	Modified   string
	Chapters   []chapterEntry
	Resources  []resourceEntry
}

type chapterData struct {
	Language string
	Title    string
	Body     string
}

var funcs = template.FuncMap{
	"xml": escapeXML,
	"inc": func(i int) int { return i + 1 },
}

// WriteFile writes book to path. On error the partial file is removed.
func WriteFile(path string, book *Book, ts *assets.TemplateSet) (err error) {
	if len(book.Chapters) == 0 {
		return ErrNoChapters
	}

	f, err := os.Create(path) // #nosec G304 -- output path chosen by caller
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return Write(f, book, ts)
}

// Write streams the package to w.
func Write(w io.Writer, book *Book, ts *assets.TemplateSet) error {
	if len(book.Chapters) == 0 {
		return ErrNoChapters
	}

	data := newPackageData(book)
	zw := zip.NewWriter(w)

	// mimetype must be the first entry and stored uncompressed.
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(mw, MediaType); err != nil {
		return err
	}

	entries := []struct {
		name string
		tmpl string
		data any
	}{
		{"META-INF/container.xml", ts.Container, data},
		{"OEBPS/content.opf", ts.Package, data},
		{"OEBPS/nav.xhtml", ts.Nav, data},
		{"OEBPS/toc.ncx", ts.NCX, data},
	}
	for _, e := range entries {
		if err := writeTemplate(zw, e.name, e.tmpl, e.data); err != nil {
			return err
		}
	}

	if err := writeEntry(zw, "OEBPS/style.css", strings.NewReader(book.Style)); err != nil {
		return err
	}

	for i, ch := range book.Chapters {
		cd := chapterData{Language: data.Language, Title: data.Chapters[i].Title, Body: ch.Body}
		if err := writeTemplate(zw, "OEBPS/"+data.Chapters[i].File, ts.Chapter, cd); err != nil {
			return err
		}
	}

	for _, r := range book.Resources {
		if err := copyResource(zw, r); err != nil {
			return err
		}
	}

	return zw.Close()
}

func newPackageData(book *Book) packageData {
	modified := book.Modified
	if modified.IsZero() {
		modified = time.Now()
	}
	data := packageData{
		Identifier: book.Identifier,
		Title:      book.Title,
		Language:   book.Language,
		Author:     book.Author,
		Modified:   modified.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if data.Language == "" {
		data.Language = "en"
	}
	if data.Title == "" {
		data.Title = "Untitled"
	}
	for i, ch := range book.Chapters {
		id := fmt.Sprintf("chapter-%03d", i+1)
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		data.Chapters = append(data.Chapters, chapterEntry{ID: id, File: id + ".xhtml", Title: title})
	}
	for i, r := range book.Resources {
		data.Resources = append(data.Resources, resourceEntry{
			ID:        fmt.Sprintf("res-%03d", i+1),
			Href:      r.Href,
			MediaType: r.MediaType,
		})
	}
	return data
}

func writeTemplate(zw *zip.Writer, name, text string, data any) error {
	tmpl, err := template.New(name).Funcs(funcs).Parse(text)
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrTemplate, name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("%w: executing %s: %v", ErrTemplate, name, err)
	}
	return writeEntry(zw, name, &buf)
}

func writeEntry(zw *zip.Writer, name string, r io.Reader) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func copyResource(zw *zip.Writer, r Resource) error {
	src, err := os.Open(r.Source) // #nosec G304 -- collected from the source directory
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingSource, r.Source, err)
	}
	defer func() { _ = src.Close() }()
	return writeEntry(zw, "OEBPS/"+r.Href, src)
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
