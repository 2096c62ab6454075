package markup

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
)

// maxDocxPart caps the decompressed size of a single DOCX part.
const maxDocxPart = 64 << 20

// ErrInvalidDocx indicates the file is not a readable Word document.
var ErrInvalidDocx = errors.New("invalid DOCX document")

// DOCX converts a Word document into a Document. Paragraph styles named
// Title or Heading1..Heading6 become headings; all other paragraphs become
// <p>. Run formatting beyond bold and italic is dropped.
func (c *Converter) DOCX(ctx context.Context, path, fallbackTitle string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocx, err)
	}
	defer func() { _ = zr.Close() }()

	body, err := readPart(&zr.Reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	fragment, err := docxBody(ctx, body)
	if err != nil {
		return nil, err
	}

	title := ""
	if core, err := readPart(&zr.Reader, "docProps/core.xml"); err == nil {
		title = coreTitle(core)
	}

	doc, err := c.finish(fragment, "", nonEmpty(title, fallbackTitle))
	if err != nil {
		return nil, err
	}
	if title != "" {
		doc.Title = title
	}
	return doc, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", ErrInvalidDocx, name, err)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(io.LimitReader(rc, maxDocxPart))
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidDocx, name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: missing %s", ErrInvalidDocx, name)
}

// docxParagraph accumulates one w:p element.
type docxParagraph struct {
	style string
	text  strings.Builder
	bold  bool
	ital  bool
}

// docxBody streams word/document.xml and renders paragraphs as XHTML.
func docxBody(ctx context.Context, data []byte) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	var out strings.Builder
	var para *docxParagraph
	inText := false
	var runBold, runItal bool

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidDocx, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para = &docxParagraph{}
			case "pStyle":
				if para != nil {
					para.style = attrLocal(t, "val")
				}
			case "r":
				runBold, runItal = false, false
			case "b":
				runBold = attrLocal(t, "val") != "0" && attrLocal(t, "val") != "false"
			case "i":
				runItal = attrLocal(t, "val") != "0" && attrLocal(t, "val") != "false"
			case "t":
				inText = true
			case "tab":
				if para != nil {
					para.text.WriteString(" ")
				}
			case "br":
				if para != nil {
					para.text.WriteString("<br/>")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if para != nil {
					writeParagraph(&out, para)
				}
				para = nil
			}
		case xml.CharData:
			if inText && para != nil {
				s := html.EscapeString(string(t))
				if runItal {
					s = "<em>" + s + "</em>"
				}
				if runBold {
					s = "<strong>" + s + "</strong>"
				}
				para.text.WriteString(s)
			}
		}
	}
	return out.String(), nil
}

func writeParagraph(out *strings.Builder, p *docxParagraph) {
	text := strings.TrimSpace(p.text.String())
	if text == "" {
		return
	}
	tag := "p"
	if level := headingLevel(p.style); level > 0 {
		tag = fmt.Sprintf("h%d", level)
	}
	fmt.Fprintf(out, "<%s>%s</%s>\n", tag, text, tag)
}

// headingLevel maps a paragraph style ID to a heading level, or 0.
func headingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	if !strings.HasPrefix(s, "heading") {
		return 0
	}
	n := strings.TrimPrefix(s, "heading")
	if len(n) == 1 && n[0] >= '1' && n[0] <= '6' {
		return int(n[0] - '0')
	}
	return 0
}

func attrLocal(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// coreTitle extracts dc:title from docProps/core.xml.
func coreTitle(data []byte) string {
	var props struct {
		Title string `xml:"title"`
	}
	if err := xml.Unmarshal(data, &props); err != nil {
		return ""
	}
	return strings.TrimSpace(props.Title)
}
