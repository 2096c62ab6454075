package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doc2pub "github.com/alnah/go-doc2pub"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeConverter records inputs and returns a canned result.
type fakeConverter struct {
	mu     sync.Mutex
	inputs []string
	outDir string
	err    error
}

func (f *fakeConverter) Convert(_ context.Context, inputPath, _ string) (*doc2pub.Artifact, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, inputPath)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	base := filepath.Base(inputPath)
	out := filepath.Join(f.outDir, strings.TrimSuffix(base, filepath.Ext(base))+"_20260115_143022.pub")
	if err := os.WriteFile(out, []byte("PACKAGED"), 0o644); err != nil {
		return nil, err
	}
	return &doc2pub.Artifact{Path: out, Format: doc2pub.FormatPDF, JobID: "job-1", Size: 8}, nil
}

type pageFunc func(string) (string, error)

func (f pageFunc) LoadPage(name string) (string, error) { return f(name) }

func testServer(t *testing.T, conv *fakeConverter) (*Server, string) {
	t.Helper()

	inputDir := filepath.Join(t.TempDir(), "input")
	conv.outDir = t.TempDir()
	s, err := New(conv, Config{
		InputDir:          inputDir,
		MaxUploadBytes:    1 << 20,
		AllowedExtensions: []string{".pdf", "md", ".PDF"},
	}, nil)
	require.NoError(t, err)
	return s, inputDir
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile(formField, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	valid := Config{InputDir: "in", MaxUploadBytes: 1, AllowedExtensions: []string{".md"}}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"no input dir", func(c *Config) { c.InputDir = "" }, ErrNoInputDir},
		{"no extensions", func(c *Config) { c.AllowedExtensions = nil }, ErrNoAllowedTypes},
		{"zero limit", func(c *Config) { c.MaxUploadBytes = 0 }, ErrInvalidMaxBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)
			_, err := New(&fakeConverter{}, cfg, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("page load error", func(t *testing.T) {
		t.Parallel()

		cfg := valid
		cfg.Pages = pageFunc(func(string) (string, error) { return "", os.ErrNotExist })
		_, err := New(&fakeConverter{}, cfg, nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("broken page template", func(t *testing.T) {
		t.Parallel()

		cfg := valid
		cfg.Pages = pageFunc(func(string) (string, error) { return "{{.Error", nil })
		_, err := New(&fakeConverter{}, cfg, nil)
		assert.ErrorContains(t, err, "parsing upload page")
	})
}

// ---------------------------------------------------------------------------
// GET routes
// ---------------------------------------------------------------------------

func TestIndex(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t, &fakeConverter{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="file"`)
	assert.Contains(t, body, ".pdf, .md")
	assert.Contains(t, body, "max 1 MB")
	assert.NotContains(t, body, `class="error"`)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t, &fakeConverter{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// ---------------------------------------------------------------------------
// POST /convert
// ---------------------------------------------------------------------------

func TestConvert_Success(t *testing.T) {
	t.Parallel()

	conv := &fakeConverter{}
	s, inputDir := testServer(t, conv)

	rec := serve(s, uploadRequest(t, "My Report.PDF", []byte("%PDF-1.4")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PACKAGED", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "My_Report_20260115_143022.pub")

	require.Len(t, conv.inputs, 1)
	assert.Equal(t, filepath.Join(inputDir, "My_Report.PDF"), conv.inputs[0])
	assert.Empty(t, dirEntries(t, inputDir), "upload removed after success")
}

func TestConvert_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		filename   string
		content    []byte
		wantStatus int
		wantText   string
	}{
		{"no file", "", nil, http.StatusBadRequest, "No file selected"},
		{"disallowed type", "script.exe", []byte("MZ"), http.StatusBadRequest, "File type not allowed: .exe"},
		{"unusable name", "...", []byte("x"), http.StatusBadRequest, "not usable"},
		{"too large", "big.pdf", bytes.Repeat([]byte("a"), 2<<20), http.StatusRequestEntityTooLarge, "1 MB limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv := &fakeConverter{}
			s, inputDir := testServer(t, conv)

			rec := serve(s, uploadRequest(t, tt.filename, tt.content))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantText)
			assert.Contains(t, rec.Body.String(), `name="file"`, "form re-rendered")
			assert.Empty(t, conv.inputs, "converter not called")
			assert.Empty(t, dirEntries(t, inputDir))
		})
	}
}

func TestConvert_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKept   bool
	}{
		{
			name:       "unsupported format removes upload",
			err:        doc2pub.ErrUnsupportedFormat,
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name: "stage failure keeps upload",
			err: &doc2pub.StageError{
				Kind:        doc2pub.ErrStage2Failed,
				Stage:       doc2pub.StagePackage,
				Detail:      "Error: <bad profile>",
				Interchange: "/out/report.epub",
			},
			wantStatus: http.StatusInternalServerError,
			wantKept:   true,
		},
		{
			name: "no engine for format removes upload",
			err: &doc2pub.StageError{
				Kind:  doc2pub.ErrStage1Failed,
				Stage: doc2pub.StageInterchange,
				Err:   fmt.Errorf("%w for pdf input", doc2pub.ErrEngineNotFound),
			},
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, inputDir := testServer(t, &fakeConverter{err: tt.err})
			rec := serve(s, uploadRequest(t, "report.pdf", []byte("%PDF")))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `class="error"`)
			if tt.wantKept {
				assert.Equal(t, []string{"report.pdf"}, dirEntries(t, inputDir))
				assert.Contains(t, rec.Body.String(), "&lt;bad profile&gt;", "detail escaped")
			} else {
				assert.Empty(t, dirEntries(t, inputDir))
			}
		})
	}
}

func TestConvert_ExistingUploadNotOverwritten(t *testing.T) {
	t.Parallel()

	conv := &fakeConverter{err: &doc2pub.StageError{Kind: doc2pub.ErrStage1Failed}}
	s, inputDir := testServer(t, conv)

	require.NoError(t, os.MkdirAll(inputDir, 0o755))
	existing := filepath.Join(inputDir, "notes.md")
	require.NoError(t, os.WriteFile(existing, []byte("original"), 0o644))

	serve(s, uploadRequest(t, "notes.md", []byte("uploaded")))

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	require.Len(t, conv.inputs, 1)
	assert.NotEqual(t, existing, conv.inputs[0])
	assert.True(t, strings.HasPrefix(filepath.Base(conv.inputs[0]), "notes-"))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestNormalizeExtensions(t *testing.T) {
	t.Parallel()

	got := normalizeExtensions([]string{".PDF", "md", ".pdf", ".Txt"})
	assert.Equal(t, []string{".pdf", ".md", ".txt"}, got)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusUnsupportedMediaType, statusFor(doc2pub.ErrUnsupportedFormat))
	assert.Equal(t, http.StatusBadRequest, statusFor(doc2pub.ErrInputNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t, &fakeConverter{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-done)
}
