package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// splitChapters groups the children of body into chapters. The split level
// is h1 when the body has a top-level h1, else h2; without either the whole
// body is one chapter. Content before the first split heading becomes a
// leading chapter titled fallbackTitle.
func splitChapters(body *html.Node, fallbackTitle string) ([]Chapter, error) {
	level := splitLevel(body)

	var chapters []Chapter
	var current strings.Builder
	title := fallbackTitle
	hasContent := false

	flush := func() {
		if hasContent {
			t := title
			if t == "" {
				t = fmt.Sprintf("Chapter %d", len(chapters)+1)
			}
			chapters = append(chapters, Chapter{Title: t, Body: current.String()})
		}
		current.Reset()
		hasContent = false
	}

	for n := body.FirstChild; n != nil; n = n.NextSibling {
		if level != 0 && n.Type == html.ElementNode && n.DataAtom == level {
			flush()
			title = textContent(n)
		}
		if err := html.Render(&current, n); err != nil {
			return nil, fmt.Errorf("%w: rendering XHTML: %v", ErrConversion, err)
		}
		if !isBlank(n) {
			hasContent = true
		}
	}
	flush()

	if len(chapters) == 0 {
		chapters = append(chapters, Chapter{Title: nonEmpty(fallbackTitle, "Chapter 1"), Body: "<p></p>"})
	}
	return chapters, nil
}

// splitLevel returns the heading atom used for chapter breaks, or 0.
func splitLevel(body *html.Node) atom.Atom {
	var hasH2 bool
	for n := body.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.H1:
			return atom.H1
		case atom.H2:
			hasH2 = true
		}
	}
	if hasH2 {
		return atom.H2
	}
	return 0
}

// firstHeading returns the text of the first element a anywhere under n.
func firstHeading(n *html.Node, a atom.Atom) string {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := firstHeading(c, a); t != "" {
			return t
		}
	}
	return ""
}

// textContent returns the whitespace-collapsed text of n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func isBlank(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == "" ||
		n.Type == html.CommentNode
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
