package markup

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

// Text converts plain text into a Document. Paragraphs are separated by
// blank lines; single line breaks are kept as <br/>.
func (c *Converter) Text(ctx context.Context, src []byte, fallbackTitle string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.finish(paragraphs(string(src)), "", fallbackTitle)
}

// Pages converts extracted page texts into a Document with one chapter per
// non-blank page, titled by its page number.
func (c *Converter) Pages(ctx context.Context, pages []string, fallbackTitle string) (*Document, error) {
	doc := &Document{Title: fallbackTitle}
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body := paragraphs(page)
		if body == "" {
			continue
		}
		doc.Chapters = append(doc.Chapters, Chapter{Title: fmt.Sprintf("Page %d", i+1), Body: body})
	}
	if len(doc.Chapters) == 0 {
		doc.Chapters = []Chapter{{Title: nonEmpty(fallbackTitle, "Chapter 1"), Body: "<p></p>"}}
	}
	return doc, nil
}

// paragraphs renders text as escaped <p> elements.
func paragraphs(src string) string {
	if !utf8.ValidString(src) {
		src = strings.ToValidUTF8(src, "�")
	}

	var b strings.Builder
	for _, para := range strings.Split(normalizeLineEndings(src), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(strings.TrimRight(line, " \t"))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br/>"))
		b.WriteString("</p>\n")
	}
	return b.String()
}
