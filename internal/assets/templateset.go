package assets

// TemplateSet holds the templates that make up an EPUB package.
type TemplateSet struct {
	Name      string // Identifier (name or directory path)
	Container string // META-INF/container.xml
	Package   string // OEBPS/content.opf
	Nav       string // EPUB 3 navigation document
	NCX       string // EPUB 2 table of contents, kept for older readers
	Chapter   string // Wrapper for each content document
}

// templateFiles maps file names inside a set directory to their field.
var templateFiles = []struct {
	file  string
	field func(*TemplateSet) *string
}{
	{"container.xml", func(ts *TemplateSet) *string { return &ts.Container }},
	{"content.opf", func(ts *TemplateSet) *string { return &ts.Package }},
	{"nav.xhtml", func(ts *TemplateSet) *string { return &ts.Nav }},
	{"toc.ncx", func(ts *TemplateSet) *string { return &ts.NCX }},
	{"chapter.xhtml", func(ts *TemplateSet) *string { return &ts.Chapter }},
}

// DefaultTemplateSetName is the name of the built-in template set.
const DefaultTemplateSetName = "default"

// DefaultStyleName is the name of the built-in stylesheet.
const DefaultStyleName = "default"

// UploadPageName is the web form served by the upload front end.
const UploadPageName = "upload"
