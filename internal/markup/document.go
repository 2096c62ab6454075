package markup

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-doc2pub/internal/fileutil"
)

// Document is a source converted to XHTML chapters.
type Document struct {
	Title    string
	Chapters []Chapter
	Images   []Image
}

// Chapter is one content document of the book.
type Chapter struct {
	Title string
	Body  string // XHTML fragment
}

// Image is a local file referenced by the document.
type Image struct {
	Href      string // path inside the package, e.g. images/img-001.png
	Source    string // absolute path on disk
	MediaType string
}

// imageTypes are the raster and vector types EPUB readers must support.
var imageTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/svg+xml": true,
	"image/webp":    true,
}

// Converter converts sources to Documents. Safe for concurrent use.
type Converter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewConverter creates a Converter.
func NewConverter() *Converter {
	return &Converter{
		md:     newMarkdown(),
		policy: newPolicy(),
	}
}

// finish parses an HTML fragment, packages local images and splits the
// result into chapters.
func (c *Converter) finish(fragment, sourceDir, fallbackTitle string) (*Document, error) {
	body, err := parseFragment(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %v", ErrConversion, err)
	}

	doc := &Document{}
	collector := &imageCollector{sourceDir: sourceDir, seen: map[string]string{}}
	collector.walk(body)
	doc.Images = collector.images

	doc.Chapters, err = splitChapters(body, fallbackTitle)
	if err != nil {
		return nil, err
	}

	doc.Title = firstHeading(body, atom.H1)
	if doc.Title == "" {
		doc.Title = fallbackTitle
	}
	return doc, nil
}

// parseFragment parses content with a body context so no html/head/body
// wrapper is added. The nodes are returned under a detached body element
// for uniform traversal.
func parseFragment(content string) (*html.Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return body, nil
}

// imageCollector rewrites img[src] to package paths and records the files.
type imageCollector struct {
	sourceDir string
	images    []Image
	seen      map[string]string // absolute source -> href
}

func (ic *imageCollector) walk(n *html.Node) {
	// Collect children first: replacing n detaches it from its siblings.
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		ic.walk(child)
		child = next
	}
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		ic.rewrite(n)
	}
}

func (ic *imageCollector) rewrite(n *html.Node) {
	src := attr(n, "src")
	abs, ok := ic.resolve(src)
	if !ok {
		replaceWithAlt(n)
		return
	}
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(abs)))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !imageTypes[mediaType] {
		replaceWithAlt(n)
		return
	}

	href, ok := ic.seen[abs]
	if !ok {
		href = fmt.Sprintf("images/img-%03d%s", len(ic.images)+1, strings.ToLower(filepath.Ext(abs)))
		ic.seen[abs] = href
		ic.images = append(ic.images, Image{Href: href, Source: abs, MediaType: mediaType})
	}
	setAttr(n, "src", href)
	if attr(n, "alt") == "" {
		setAttr(n, "alt", "")
	}
}

// resolve maps a relative src to an existing file under sourceDir.
func (ic *imageCollector) resolve(src string) (string, bool) {
	if ic.sourceDir == "" || !isRelativePath(src) {
		return "", false
	}
	unescaped, err := url.PathUnescape(src)
	if err != nil {
		return "", false
	}
	base, err := filepath.Abs(ic.sourceDir)
	if err != nil {
		return "", false
	}
	abs := filepath.Join(base, filepath.FromSlash(unescaped))
	if !isPathUnderDir(abs, base) || !fileutil.FileExists(abs) {
		return "", false
	}
	return abs, true
}

// replaceWithAlt swaps an image that cannot be packaged for its alt text.
func replaceWithAlt(n *html.Node) {
	if n.Parent == nil {
		return
	}
	if alt := attr(n, "alt"); alt != "" {
		n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: alt}, n)
	}
	n.Parent.RemoveChild(n)
}

// isRelativePath returns true if the path points at a local file.
func isRelativePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "//") {
		return false
	}
	if u, err := url.Parse(p); err == nil && u.Scheme != "" {
		return false
	}
	return !filepath.IsAbs(p) && !path.IsAbs(p)
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath, cleanDir)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
