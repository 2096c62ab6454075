package markup

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// newPolicy returns the sanitizer applied to HTML sources: user-generated
// content rules plus heading IDs for in-book links.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").Globally()
	p.AllowElements("figure", "figcaption", "mark")
	return p
}

// HTML converts an HTML document or fragment into a Document. Scripts,
// styles, event handlers and other active content are removed. The
// document <title> is used as the book title when present.
func (c *Converter) HTML(ctx context.Context, src []byte, sourceDir, fallbackTitle string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %v", ErrConversion, err)
	}

	title := findTitle(root)
	body := findElement(root, atom.Body)
	if body == nil {
		body = root
	}

	var inner strings.Builder
	for n := body.FirstChild; n != nil; n = n.NextSibling {
		if err := html.Render(&inner, n); err != nil {
			return nil, fmt.Errorf("%w: rendering HTML: %v", ErrConversion, err)
		}
	}

	clean := c.policy.Sanitize(inner.String())
	doc, err := c.finish(clean, sourceDir, nonEmpty(title, fallbackTitle))
	if err != nil {
		return nil, err
	}
	if title != "" {
		doc.Title = title
	}
	return doc, nil
}

func findTitle(root *html.Node) string {
	if n := findElement(root, atom.Title); n != nil {
		return textContent(n)
	}
	return ""
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
