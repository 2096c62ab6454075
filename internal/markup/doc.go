// Package markup turns source documents into XHTML chapters for the builtin
// EPUB writer.
//
// Supported sources:
//   - Markdown via Goldmark (GFM, footnotes, syntax highlighting)
//   - plain text (blank-line separated paragraphs)
//   - HTML, sanitized with bluemonday
//   - DOCX paragraph text and heading styles
//
// Every source goes through the same finishing step: the fragment is parsed
// with golang.org/x/net/html, local images are collected for packaging, and
// the body is split into chapters at its top-level headings.
package markup
