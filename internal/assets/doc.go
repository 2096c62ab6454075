// Package assets provides EPUB stylesheets, EPUB package templates and the
// upload web page.
//
// # Loader Architecture
//
// EmbeddedLoader and FilesystemLoader share one reader over an fs.FS: the
// go:embed tree for the defaults, an os.Root for an override directory.
// AssetResolver chains them, override first. The builtin interchange engine
// and the upload server both load through it.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css           # EPUB stylesheets
//	├── epub/
//	│   └── {name}/
//	│       ├── container.xml
//	│       ├── content.opf
//	│       ├── nav.xhtml
//	│       ├── toc.ncx
//	│       └── chapter.xhtml
//	└── web/
//	    └── {name}.html          # upload form
//
// # Security
//
// Names may not contain separators or dots. Override reads are confined to
// the directory by os.Root, symlinks included.
package assets
