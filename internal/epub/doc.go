// Package epub writes EPUB 3 packages from XHTML chapters.
//
// The archive layout follows the OCF container rules: an uncompressed
// "mimetype" entry first, then META-INF/container.xml and the OEBPS
// directory holding the package document, navigation, stylesheet,
// chapters and images. Package documents are rendered from an
// assets.TemplateSet so users can supply their own templates.
package epub
