// Package doc2pub converts documents into e-reader packages.
//
// # Quick Start
//
// Create a converter once and convert as many documents as needed:
//
//	conv, err := doc2pub.NewConverter(doc2pub.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err) // ErrToolNotFound when Calibre is not installed
//	}
//
//	art, err := conv.Convert(ctx, "input/report.pdf", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(art.Path) // output/report_20260115_143022.pub
//
// # Conversion Pipeline
//
// Each Convert call runs one job through these steps:
//
//  1. Resolve the input path, falling back to Config.InputDir
//  2. Detect the format from the extension (Detect)
//  3. Name the output (UniqueName, or the caller's explicit path)
//  4. Stage 1: convert to an EPUB interchange with pandoc, the builtin engine
//     or a text extractor (pdftotext, antiword)
//  5. Stage 2: run Calibre's ebook-convert with a device profile
//  6. Rename the packaged file to the configured extension
//  7. Remove the interchange and extracted media
//
// Job states only move forward: created, detected, stage1-done,
// stage2-done, cleaned, done, or failed at a stage.
//
// # Errors
//
// Every failure matches one sentinel with errors.Is: ErrInputNotFound,
// ErrUnsupportedFormat, ErrStage1Failed, ErrStage2Failed or ErrRenameFailed.
// NewConverter returns ErrToolNotFound before any file is touched. Stage
// failures are *StageError values; Detail holds the tool's stderr unmodified
// and Interchange names a retained EPUB when Config.RetainOnFailure is set.
//
// # Configuration
//
// Config fixes directories, tool and naming settings at construction.
// Collaborators are injected with functional options:
//
//	conv, err := doc2pub.NewConverter(cfg,
//	    doc2pub.WithTimeout(2*time.Minute),
//	    doc2pub.WithLogger(slog.Default()),
//	    doc2pub.WithAssetPath("/path/to/custom/assets"),
//	)
//
// # Parallel Processing
//
// A Converter is safe for concurrent use. Concurrent jobs never share an
// output name. Use ResolvePoolSize to size a worker pool.
package doc2pub
