package markup

import (
	"context"
	"strings"
	"testing"
)

func TestConverter_HTML(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	ctx := context.Background()

	t.Run("document title and body", func(t *testing.T) {
		t.Parallel()

		src := `<!DOCTYPE html><html><head><title>Field Guide</title>
<style>body{}</style></head><body><h1>Birds</h1><p>Owls.</p></body></html>`

		doc, err := c.HTML(ctx, []byte(src), "", "fallback")
		if err != nil {
			t.Fatalf("HTML() error = %v", err)
		}
		if doc.Title != "Field Guide" {
			t.Errorf("Title = %q, want Field Guide", doc.Title)
		}
		if len(doc.Chapters) != 1 || doc.Chapters[0].Title != "Birds" {
			t.Fatalf("Chapters = %+v", doc.Chapters)
		}
		if strings.Contains(doc.Chapters[0].Body, "<style") {
			t.Errorf("Body should not contain style: %q", doc.Chapters[0].Body)
		}
	})

	t.Run("active content removed", func(t *testing.T) {
		t.Parallel()

		src := `<p onclick="x()">hi</p><script>alert(1)</script><iframe src="x"></iframe>`
		doc, err := c.HTML(ctx, []byte(src), "", "page")
		if err != nil {
			t.Fatalf("HTML() error = %v", err)
		}
		body := doc.Chapters[0].Body
		for _, bad := range []string{"onclick", "<script", "alert", "<iframe"} {
			if strings.Contains(body, bad) {
				t.Errorf("Body contains %q: %q", bad, body)
			}
		}
		if doc.Title != "page" {
			t.Errorf("Title = %q, want fallback page", doc.Title)
		}
	})

	t.Run("heading ids kept", func(t *testing.T) {
		t.Parallel()

		doc, err := c.HTML(ctx, []byte(`<h1 id="intro">Intro</h1>`), "", "t")
		if err != nil {
			t.Fatalf("HTML() error = %v", err)
		}
		if !strings.Contains(doc.Chapters[0].Body, `id="intro"`) {
			t.Errorf("Body = %q, want id kept", doc.Chapters[0].Body)
		}
	})
}

func TestConverter_Text(t *testing.T) {
	t.Parallel()

	src := "First line\r\nsecond <line>\n\n\n\nNext & last\n"
	doc, err := NewConverter().Text(context.Background(), []byte(src), "notes")
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if doc.Title != "notes" {
		t.Errorf("Title = %q, want notes", doc.Title)
	}
	body := doc.Chapters[0].Body
	if strings.Count(body, "<p>") != 2 {
		t.Errorf("Body = %q, want two paragraphs", body)
	}
	if !strings.Contains(body, "First line<br/>second &lt;line&gt;") {
		t.Errorf("Body = %q, want escaped line break", body)
	}
	if !strings.Contains(body, "Next &amp; last") {
		t.Errorf("Body = %q, want escaped ampersand", body)
	}
}

func TestConverter_Pages(t *testing.T) {
	t.Parallel()

	t.Run("one chapter per page, blank pages skipped", func(t *testing.T) {
		t.Parallel()

		pages := []string{"Cover <page>\n", "  \n\n", "Body text\nwrapped\n\nSecond para", ""}
		doc, err := NewConverter().Pages(context.Background(), pages, "report")
		if err != nil {
			t.Fatalf("Pages() error = %v", err)
		}
		if doc.Title != "report" {
			t.Errorf("Title = %q, want report", doc.Title)
		}
		if len(doc.Chapters) != 2 {
			t.Fatalf("len(Chapters) = %d, want 2", len(doc.Chapters))
		}
		if doc.Chapters[0].Title != "Page 1" || doc.Chapters[1].Title != "Page 3" {
			t.Errorf("titles = %q, %q, want Page 1, Page 3", doc.Chapters[0].Title, doc.Chapters[1].Title)
		}
		if !strings.Contains(doc.Chapters[0].Body, "Cover &lt;page&gt;") {
			t.Errorf("Body = %q, want escaped text", doc.Chapters[0].Body)
		}
		if strings.Count(doc.Chapters[1].Body, "<p>") != 2 {
			t.Errorf("Body = %q, want two paragraphs", doc.Chapters[1].Body)
		}
	})

	t.Run("all pages blank", func(t *testing.T) {
		t.Parallel()

		doc, err := NewConverter().Pages(context.Background(), []string{"", "\n"}, "scan")
		if err != nil {
			t.Fatalf("Pages() error = %v", err)
		}
		if len(doc.Chapters) != 1 || doc.Chapters[0].Title != "scan" {
			t.Errorf("Chapters = %+v, want one placeholder titled scan", doc.Chapters)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewConverter().Pages(ctx, []string{"text"}, ""); err == nil {
			t.Error("Pages() expected error for cancelled context")
		}
	})
}
